// Package mbean owns the management registrar.
//
// Ownership boundary:
// - object names and their canonical form
// - managed object contract (attributes, operations)
// - in-process registration, lookup and invocation
// - parent/child tracking of the management tree
//
// The startup orchestrator and every loader depend only on Registrar;
// remote access is layered on top by the admin package.
package mbean
