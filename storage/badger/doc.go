// Package badger implements the keyed TTL storage ports on BadgerDB:
// the draft store (native entry TTL, no sweeper) and the execution store
// (retention-window TTL re-armed on every write).
package badger
