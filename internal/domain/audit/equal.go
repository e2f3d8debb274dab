package audit

import (
	"fmt"
	"reflect"
)

// equal compares by formatted value so that decimals and time values with
// equal rendering do not show up as changes.
func equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return fmt.Sprintf("%v", deref(a)) == fmt.Sprintf("%v", deref(b))
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return rv.Elem().Interface()
	}
	return v
}
