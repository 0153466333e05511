// Package jobs runs asynchronous analysis work over ingested tables. A
// submitted job enters the registry running at zero progress and advances
// on a fixed tick until completion, cancellation, or failure. Results and
// charts are attached atomically with the completed status, so observers
// never see a finished job without its output.
package jobs
