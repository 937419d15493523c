// Package logging centralizes slog construction and the structured field
// vocabulary shared by all pipeline components.
//
// Two output formats are supported: a colorized single-line console format
// for interactive use and JSON for ingestion. Context helpers propagate the
// task id, stage name, and run correlation id into every record emitted
// below a stage boundary.
package logging
