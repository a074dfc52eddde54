// Package startup brings the management tree up and down.
//
// A bring-up cycle registers the static core under the domain root,
// publishes feature.CoreReady, runs every registered loader on its own
// goroutine, joins them all and publishes feature.Ready. Loader failures
// are logged and never reach the caller. Teardown unloads each loader
// best-effort and removes everything below the domain root.
package startup
