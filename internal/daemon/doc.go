// Package daemon ties the worker pool to a single-instance lifecycle. A
// flock on the configured lock file prevents two daemons from sharing one
// scratch tree and queue.
package daemon
