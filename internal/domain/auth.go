package domain

import "context"

type PrincipalKind string

const (
	PrincipalHuman PrincipalKind = "human"
	PrincipalAgent PrincipalKind = "agent"
	PrincipalAdmin PrincipalKind = "admin_key"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Kind    PrincipalKind
	Subject string
	User    *User
}

func (p Principal) IsAdmin() bool {
	if p.Kind == PrincipalAdmin {
		return true
	}
	return p.User != nil && p.User.IsAdmin
}

func (p Principal) UserID() string {
	if p.User == nil {
		return ""
	}
	return p.User.ID
}

type HumanAuthenticator interface {
	Authenticate(ctx context.Context, subject, email, name string) (Principal, error)
}
