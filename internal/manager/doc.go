// Package manager is the orchestration layer of the server: it owns the
// backend registry and the loaded models. It is structured into small
// files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: model entry states.
//   - errors.go: error constructors carrying status codes.
//   - load.go: Load and model creation from the repository.
//   - reload.go: Reload, choosing between an instance-group update and a
//     full replacement.
//   - unload.go: Unload with draining, and Close.
//   - enqueue.go: request entry point.
//   - ops.go: asynchronous reload operations.
//   - status_report.go: Status, Models and Backends reporting.
//   - metrics.go: lifecycle gauges and counters.
//   - events.go, eventpub_memory.go: lifecycle event publishing.
//
// External packages should use the public methods only; entry types are
// subject to change.
package manager
