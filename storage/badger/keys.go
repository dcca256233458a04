package badger

import "fmt"

// Key prefixes for different data types
const (
	draftPrefix     = "draft"
	executionPrefix = "exec"
)

// makeDraftKey generates a key for a draft by ID.
func makeDraftKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", draftPrefix, id))
}

// makeExecutionKey generates a key for an execution by ID.
func makeExecutionKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", executionPrefix, id))
}
