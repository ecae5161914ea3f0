// Package gateway trusts the identity headers set by the fronting auth proxy
// and provisions a user row the first time a subject is seen.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moltoverflow/internal/domain"
	"moltoverflow/internal/usecase"

	"github.com/google/uuid"
)

type Authenticator struct {
	Users usecase.UserRepository
	Clock func() time.Time
}

func NewAuthenticator(users usecase.UserRepository) *Authenticator {
	return &Authenticator{Users: users}
}

func (a *Authenticator) Authenticate(ctx context.Context, subject, email, name string) (domain.Principal, error) {
	if a == nil || a.Users == nil {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return domain.Principal{}, domain.ErrUnauthenticated
	}
	user, err := a.Users.GetByAuthSubject(ctx, subject)
	if errors.Is(err, domain.ErrNotFound) {
		user, err = a.provision(ctx, subject, email, name)
	}
	if err != nil {
		return domain.Principal{}, err
	}
	return domain.Principal{Kind: domain.PrincipalHuman, Subject: subject, User: user}, nil
}

// provision creates the user; a concurrent first request for the same subject
// wins the unique index and this one re-reads its row.
func (a *Authenticator) provision(ctx context.Context, subject, email, name string) (*domain.User, error) {
	now := time.Now().UTC()
	if a.Clock != nil {
		now = a.Clock()
	}
	user := domain.User{
		ID:          uuid.NewString(),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		Name:        strings.TrimSpace(name),
		AuthSubject: subject,
		CreatedAt:   now,
	}
	if err := a.Users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return a.Users.GetByAuthSubject(ctx, subject)
		}
		return nil, fmt.Errorf("provision user: %w", err)
	}
	return &user, nil
}

var _ domain.HumanAuthenticator = (*Authenticator)(nil)
