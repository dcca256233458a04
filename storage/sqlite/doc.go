// Package sqlite implements the relational storage ports on gorm with
// the CGO-free glebarez/sqlite driver. Schema comes from AutoMigrate
// over the core record types.
package sqlite
