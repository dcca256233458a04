// Package mock provides test doubles for the ai package interfaces.
//
// MockEmbedder produces deterministic vectors derived from an FNV hash of
// the input text, so equal inputs always embed to equal vectors. Behavior
// can be overridden per-test through its function fields.
package mock
