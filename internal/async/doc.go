// Package async is the orchestration layer for background work behind
// UI-bound state. Every consumer goes through one entry point,
// Executor.Execute, which composes:
//
//   - Guard: non-blocking single-flight, at most one load in flight;
//     concurrent callers are rejected, not queued
//   - RetryPolicy: bounded exponential backoff over transient failures,
//     cancellation-responsive during backoff sleeps
//   - ProgressReporter / StepTracker: monotonic percentage and named
//     multi-phase progress for UI binding
//   - OperationState: the IsLoading/StatusMessage pair that is
//     guaranteed to reset on every terminal path
//   - Broadcaster: serialized snapshot fan-out to connected UI clients
//
// Cancellation is cooperative and epoch-scoped: CancelOperations signals
// the current epoch, ResetCancellation replaces it so stale in-flight
// work cannot leak into state owned by a newer epoch.
package async
