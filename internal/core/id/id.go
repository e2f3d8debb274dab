// Package id provides short opaque identifiers for all platform entities.
// Identifiers are snowflake values rendered in Base58, which keeps them
// time-ordered and compact (11 characters or fewer).
package id

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// ID is an opaque identifier. The empty string means "not set".
type ID = string

var (
	nodeMu sync.Mutex
	node   *snowflake.Node
)

// Init configures the snowflake node for this process.
// Every running instance must use a distinct node number (0..1023).
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("init snowflake node %d: %w", nodeID, err)
	}

	nodeMu.Lock()
	node = n
	nodeMu.Unlock()
	return nil
}

// New generates a new identifier.
// Falls back to node 1 when Init was never called (tests, tools).
func New() ID {
	nodeMu.Lock()
	if node == nil {
		node, _ = snowflake.NewNode(1)
	}
	n := node
	nodeMu.Unlock()

	return n.Generate().Base58()
}

// IsNil checks if the identifier is unset.
func IsNil(v ID) bool {
	return v == ""
}

// Valid reports whether s is a well-formed identifier produced by New.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	_, err := snowflake.ParseBase58([]byte(s))
	return err == nil
}
