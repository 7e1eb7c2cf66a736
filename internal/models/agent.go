package models

import "fmt"

// AgentResult is the single failure representation every executor path
// produces. A failed send is a value, never an error: one channel failing must
// not abort the rest of a tier.
type AgentResult struct {
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AgentSuccess returns a successful result.
func AgentSuccess() AgentResult {
	return AgentResult{Success: true}
}

// AgentFailure returns a failed result with a formatted reason.
func AgentFailure(format string, args ...any) AgentResult {
	return AgentResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// AgentCommand is an inbound command routed to a channel executor, e.g. a
// reply that snoozes a reminder or re-enables the channel itself.
type AgentCommand struct {
	Command string         `json:"command"`
	Payload map[string]any `json:"payload,omitempty"`
}
