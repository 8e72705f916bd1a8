// Package engine implements the in-process sequential queue that feeds the
// reconciliation engine from the immediate intake path and manual triggers.
//
// ARCHITECTURE:
//
// Single Consumer:
// The consumer is fixed at construction. Items are executed one at a time
// in FIFO order by a worker goroutine that the queue starts itself whenever
// work arrives and no worker is running. When an item completes the worker
// immediately takes the next one; it exits when the queue is empty.
//
// Manual Side List:
// AddManual collects items without starting work. MergeManual moves them
// into the FIFO, skipping any whose key is already waiting.
//
// Deduplication:
// Enqueue skips items whose key matches an item still waiting. An item that
// is currently executing no longer counts as waiting, so re-enqueueing it
// schedules a fresh run.
//
// Failure Handling:
// Consumer errors and panics are logged and never stop the queue.
//
// The queue is memory-resident: items waiting at process exit are lost.
package engine
