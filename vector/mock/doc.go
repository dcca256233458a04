// Package mock provides an in-memory test double for the vector store
// port, with function fields for per-test behavior injection.
package mock
