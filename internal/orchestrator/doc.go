// Package orchestrator executes plans: it schedules subtask groups, runs
// one streaming runner per subtask, maintains the shared render buffer
// store read by the terminal renderer, and merges completed outputs into
// a single final answer.
//
// Groups run strictly in ascending order; subtasks within a group run
// concurrently. A subtask failure never cancels its siblings, and the
// plan only fails overall when every subtask fails. Rendering is fully
// decoupled from execution: a renderer failure drops output to the plain
// linear path but never aborts subtasks.
package orchestrator
