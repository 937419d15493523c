// Package workflow advances compose jobs through the pipeline stages.
//
// The Manager runs a bounded pool of workers; each worker takes whole jobs
// and runs voice synthesis, segment cutting, subtitle building, and final
// compositing strictly in order. Stages never interleave within a job, so a
// failure at any point marks the task failed, fires the callback, and
// removes the job's scratch directory.
package workflow
