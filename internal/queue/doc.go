// Package queue moves compose jobs between the upstream task coordinator and
// the daemon's worker pool over a Redis list.
//
// Producers LPUSH JSON-encoded jobs; workers BRPOP with a short timeout so
// context cancellation is observed between polls. Malformed payloads are
// logged and discarded rather than requeued, since delivery upstream is
// at-least-once and a poison message would otherwise wedge the list.
package queue
