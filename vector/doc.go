// Package vector defines the vector store port. Each knowledge base owns
// one collection; point IDs are the chunk record UIDs, so deletion and
// reconciliation against the relational rows are exact.
package vector
