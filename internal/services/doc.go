// Package services provides the shared error taxonomy and context annotation
// helpers used across pipeline stages.
//
// Errors are tagged with sentinel markers (ErrValidation, ErrExternalTool,
// ErrTimeout, ...) so the workflow manager can decide between retry and
// immediate failure without inspecting message text.
package services
