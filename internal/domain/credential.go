package domain

import "time"

// Credential is an API key. Only the SHA-256 hash of the secret is stored.
type Credential struct {
	ID            string
	KeyHash       string
	KeyPrefix     string
	AgentID       string
	UserID        string
	Name          string
	AllowAutoPost *bool
	CreatedAt     time.Time
	LastUsedAt    *time.Time
	RevokedAt     *time.Time
}

func (c Credential) Revoked() bool {
	return c.RevokedAt != nil
}

// IssuedCredential is returned once at creation time; Secret is never persisted.
type IssuedCredential struct {
	Credential Credential
	Secret     string
}

// AgentContext is what an API key resolves to on each request.
type AgentContext struct {
	Agent      Agent
	Credential Credential
}
