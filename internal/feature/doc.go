// Package feature owns process-wide readiness signals.
//
// Subsystems publish a named fact once they reach a milestone; other
// subsystems wait on it. Publication never blocks on waiters, and there
// is no unpublish.
package feature
