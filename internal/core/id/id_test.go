package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UniqueAndValid(t *testing.T) {
	require.NoError(t, Init(7))

	seen := make(map[ID]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		v := New()
		assert.True(t, Valid(v), "generated id %q must parse", v)
		assert.LessOrEqual(t, len(v), 11)
		_, dup := seen[v]
		assert.False(t, dup)
		seen[v] = struct{}{}
	}
}

func TestInit_RejectsOutOfRangeNode(t *testing.T) {
	assert.Error(t, Init(4096))
}

func TestIsNil(t *testing.T) {
	assert.True(t, IsNil(""))
	assert.False(t, IsNil(New()))
	assert.False(t, Valid(""))
}
