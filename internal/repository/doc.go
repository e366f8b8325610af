// Package repository defines the data access interfaces for netpanel.
//
// This package provides the repository abstraction layer for persisting
// and retrieving the network configuration. The actual implementation is
// in the sqlite subpackage.
//
// # Repository Interface
//
// The Repository interface covers the active configuration (panel state
// and intnet membership), named snapshots and the machine inventory.
//
// # SQLite Implementation
//
// The sqlite implementation uses the pure Go modernc.org/sqlite driver
// with WAL mode. It handles:
//
// - JSON serialization of node lists, viewports and memberships
// - Unique snapshot names reported as domain.ErrConflict
// - Transactional replacement of intnets and the machine inventory
//
// # Testing
//
// The sqlite repository is tested against in-memory databases.
package repository
