package models

import "strings"

// OpType discriminates client operations submitted through the session adapter.
type OpType string

const (
	OpUserTurn     OpType = "user_turn"
	OpExecApproval OpType = "exec_approval"
	OpShutdown     OpType = "shutdown"
	OpInterrupt    OpType = "interrupt"
)

// Op is a client operation. Fields are populated per Type:
//
//	user_turn:     Text
//	exec_approval: CallID, Decision
//	shutdown:      (no fields)
//	interrupt:     (no fields; currently a logged no-op)
type Op struct {
	Type     OpType         `json:"type"`
	Text     string         `json:"text,omitempty"`
	CallID   string         `json:"call_id,omitempty"`
	Decision ReviewDecision `json:"decision,omitempty"`
}

// ReviewDecision is the user's three-way answer to an approval request. The
// UI may produce richer variants (session-scoped approval, policy amendment);
// all of them collapse to a boolean at the signal boundary.
type ReviewDecision string

const (
	DecisionApproved           ReviewDecision = "approved"
	DecisionApprovedForSession ReviewDecision = "approved_for_session"
	DecisionDenied             ReviewDecision = "denied"
	DecisionAbort              ReviewDecision = "abort"
)

// Approved reports whether the decision grants execution. Any variant whose
// name contains "approved" counts, so future session- or policy-amendment
// variants normalize correctly without touching this code.
func (d ReviewDecision) Approved() bool {
	return strings.Contains(strings.ToLower(string(d)), "approved")
}
