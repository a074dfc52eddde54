// Package loaders owns pluggable management subsystems.
//
// Ownership boundary:
// - loader metadata shape
// - loader load/unload interface
// - loader discovery registry
// - per-cycle runner (one goroutine per loader, joined by the caller)
//
// Runners never retry and never time out. A loader that fails in one
// cycle is simply absent from that cycle's result.
package loaders
