// Package qdrant implements the vector store port on the qdrant gRPC
// client. Writes use wait-on-write so upserts and deletes are confirmed
// before the caller proceeds, which the reprocessing protocol depends on.
package qdrant
