package testutil

import (
	"fmt"
)

// NewTestDSN generates a DSN for an in-memory SQLite database for
// testing purposes. The testName keeps databases isolated between
// tests sharing a process.
func NewTestDSN(testName string) string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", testName)
}
