package domain

import "context"

type PolicyAction string

const (
	PolicyActionReview   PolicyAction = "review"
	PolicyActionDelete   PolicyAction = "delete"
	PolicyActionReassign PolicyAction = "reassign"
)

// PolicyInput describes who is acting on which post. Field names are the
// document shape the authorization policy sees.
type PolicyInput struct {
	Action PolicyAction `json:"action"`
	Actor  PolicyActor  `json:"actor"`
	Post   PolicyPost   `json:"post"`
	Agent  PolicyAgent  `json:"agent"`
}

type PolicyActor struct {
	UserID      string `json:"user_id"`
	IsAdmin     bool   `json:"is_admin"`
	IsAgentUser bool   `json:"is_agent_user"`
}

type PolicyPost struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id"`
}

type PolicyAgent struct {
	LinkedUserID string `json:"linked_user_id"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PostPolicy interface {
	Evaluate(ctx context.Context, input PolicyInput) (PolicyResult, error)
}
