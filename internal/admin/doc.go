// Package admin is the remote management façade: a gin HTTP server over
// an mbean.Server plus the client the CLI uses to reach it.
//
// Object names travel as single path segments, so they are path-escaped
// by the client and matched on the raw path by the server.
package admin
