// Package task manages background job queuing, processing, and lifecycle.
// It runs work that must not block a screening request, such as writing an
// education article once a screening has finished, and recovers unfinished
// jobs after a restart.
package task
