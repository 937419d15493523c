// Package preflight provides readiness checks for the external tools and
// filesystem paths the compositing daemon depends on.
//
// The daemon runs RunAll once at startup and refuses to take jobs when a
// required check fails; the CLI status command reuses the same checks to
// display host readiness.
package preflight
