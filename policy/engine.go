// Package policy decides whether a crisis analysis authorizes notifying
// emergency contacts.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/xiaot623/lifeline/internal/domain"
)

// Actions returned by the policy.
const (
	ActionNotify = "notify"
	ActionSkip   = "skip"
)

// Decision is the policy's answer for one analysis.
type Decision struct {
	Action string
	Reason string
}

// Notify reports whether contacts should be alerted.
func (d Decision) Notify() bool {
	return d.Action == ActionNotify
}

// Input is the document the policy evaluates.
type Input struct {
	SessionID string                `json:"session_id,omitempty"`
	Analysis  domain.CrisisAnalysis `json:"analysis"`
	Contacts  int                   `json:"contacts"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles policyContent, which must define
// data.notification_policy.decision.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.notification_policy.decision"),
		rego.Module("notification_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the policy. A policy without an answer skips notification.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Action: ActionSkip, Reason: "no policy decision"}, nil
	}

	switch v := results[0].Expressions[0].Value.(type) {
	case string:
		return Decision{Action: v}, nil
	case map[string]interface{}:
		action, _ := v["action"].(string)
		reason, _ := v["reason"].(string)
		if action == "" {
			return Decision{}, fmt.Errorf("policy decision has no action")
		}
		return Decision{Action: action, Reason: reason}, nil
	default:
		return Decision{}, fmt.Errorf("unexpected policy decision type %T", v)
	}
}

// DefaultPolicy notifies exactly when the analysis requires intervention.
const DefaultPolicy = `
package notification_policy

default decision := {"action": "skip", "reason": "Crisis level does not require emergency notification"}

decision := {"action": "notify", "reason": "intervention threshold reached"} if {
	input.analysis.requires_intervention
}
`
