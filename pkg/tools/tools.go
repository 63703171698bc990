// Package tools implements the evaluation tools the orchestrator fans out
// to: balance lookup, risk-signal lookup, and review-case creation. Each
// tool is a small typed unit; the orchestrator consumes them through the
// interfaces it declares, so deployments can swap in real collaborators.
package tools

import "errors"

// ErrToolFailed wraps any tool invocation failure surfaced to the
// orchestrator's retry loop.
var ErrToolFailed = errors.New("tool execution failed")
