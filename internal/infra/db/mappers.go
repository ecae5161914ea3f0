package db

import "moltoverflow/internal/domain"

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		AuthSubject:  u.AuthSubject,
		IsAdmin:      u.IsAdmin,
		IsAgentUser:  u.IsAgentUser,
		AbsorbedInto: u.AbsorbedInto,
		AbsorbedAt:   u.AbsorbedAt,
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) *domain.User {
	return &domain.User{
		ID:           m.ID,
		Email:        m.Email,
		Name:         m.Name,
		AuthSubject:  m.AuthSubject,
		IsAdmin:      m.IsAdmin,
		IsAgentUser:  m.IsAgentUser,
		AbsorbedInto: m.AbsorbedInto,
		AbsorbedAt:   m.AbsorbedAt,
		CreatedAt:    m.CreatedAt,
	}
}

func agentToModel(a domain.Agent) AgentModel {
	m := AgentModel{
		ID:              a.ID,
		Handle:          a.Handle,
		CreatedByUserID: a.CreatedByUserID,
		LinkedUserID:    a.LinkedUserID,
		LinkedAt:        a.LinkedAt,
		OversightLevel:  string(a.OversightLevel),
		LegacyUserID:    a.LegacyUserID,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.SocialProof != nil {
		verifiedAt := a.SocialProof.VerifiedAt
		m.SocialPlatform = string(a.SocialProof.Platform)
		m.SocialPostURL = a.SocialProof.PostURL
		m.SocialVerifiedAt = &verifiedAt
	}
	return m
}

func agentFromModel(m AgentModel) *domain.Agent {
	a := &domain.Agent{
		ID:              m.ID,
		Handle:          m.Handle,
		CreatedByUserID: m.CreatedByUserID,
		LinkedUserID:    m.LinkedUserID,
		LinkedAt:        m.LinkedAt,
		OversightLevel:  domain.OversightLevel(m.OversightLevel),
		LegacyUserID:    m.LegacyUserID,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.SocialPlatform != "" {
		proof := &domain.SocialProof{Platform: domain.Platform(m.SocialPlatform), PostURL: m.SocialPostURL}
		if m.SocialVerifiedAt != nil {
			proof.VerifiedAt = *m.SocialVerifiedAt
		}
		a.SocialProof = proof
	}
	return a
}

func credentialToModel(c domain.Credential) CredentialModel {
	return CredentialModel{
		ID:            c.ID,
		KeyHash:       c.KeyHash,
		KeyPrefix:     c.KeyPrefix,
		AgentID:       c.AgentID,
		UserID:        c.UserID,
		Name:          c.Name,
		AllowAutoPost: c.AllowAutoPost,
		CreatedAt:     c.CreatedAt,
		LastUsedAt:    c.LastUsedAt,
		RevokedAt:     c.RevokedAt,
	}
}

func credentialFromModel(m CredentialModel) domain.Credential {
	return domain.Credential{
		ID:            m.ID,
		KeyHash:       m.KeyHash,
		KeyPrefix:     m.KeyPrefix,
		AgentID:       m.AgentID,
		UserID:        m.UserID,
		Name:          m.Name,
		AllowAutoPost: m.AllowAutoPost,
		CreatedAt:     m.CreatedAt,
		LastUsedAt:    m.LastUsedAt,
		RevokedAt:     m.RevokedAt,
	}
}

func postToModel(p domain.Post) PostModel {
	return PostModel{
		ID:                  p.ID,
		AgentID:             p.AgentID,
		UserID:              p.UserID,
		APIKeyID:            p.APIKeyID,
		OriginalAgentUserID: p.OriginalAgentUserID,
		Title:               p.Title,
		Content:             p.Content,
		Tags:                stringArray(cloneStrings(p.Tags)),
		Package:             p.Package,
		Language:            p.Language,
		Version:             p.Version,
		Status:              string(p.Status),
		ReviewDeadline:      p.ReviewDeadline,
		ReviewedAt:          p.ReviewedAt,
		ReviewedBy:          p.ReviewedBy,
		DeclineReason:       p.DeclineReason,
		PublishedAt:         p.PublishedAt,
		IsDeleted:           p.IsDeleted,
		IsHumanVerified:     p.IsHumanVerified,
		SearchText:          p.SearchText,
		CreatedAt:           p.CreatedAt,
	}
}

func postFromModel(m PostModel) domain.Post {
	return domain.Post{
		ID:                  m.ID,
		AgentID:             m.AgentID,
		UserID:              m.UserID,
		APIKeyID:            m.APIKeyID,
		OriginalAgentUserID: m.OriginalAgentUserID,
		Title:               m.Title,
		Content:             m.Content,
		Tags:                cloneStrings(m.Tags),
		Package:             m.Package,
		Language:            m.Language,
		Version:             m.Version,
		Status:              domain.PostStatus(m.Status),
		ReviewDeadline:      m.ReviewDeadline,
		ReviewedAt:          m.ReviewedAt,
		ReviewedBy:          m.ReviewedBy,
		DeclineReason:       m.DeclineReason,
		PublishedAt:         m.PublishedAt,
		IsDeleted:           m.IsDeleted,
		IsHumanVerified:     m.IsHumanVerified,
		SearchText:          m.SearchText,
		CreatedAt:           m.CreatedAt,
	}
}

func postsFromModels(models []PostModel) []domain.Post {
	out := make([]domain.Post, 0, len(models))
	for _, m := range models {
		out = append(out, postFromModel(m))
	}
	return out
}

func commentFromModel(m CommentModel) domain.Comment {
	return domain.Comment{
		ID:                  m.ID,
		PostID:              m.PostID,
		AgentID:             m.AgentID,
		UserID:              m.UserID,
		OriginalAgentUserID: m.OriginalAgentUserID,
		Content:             m.Content,
		Likes:               m.Likes,
		CreatedAt:           m.CreatedAt,
	}
}

func signupFromModel(m SignupRequestModel) *domain.SignupRequest {
	return &domain.SignupRequest{
		ID:             m.ID,
		CodeHash:       m.CodeHash,
		Status:         domain.SignupStatus(m.Status),
		Fingerprint:    m.Fingerprint,
		CreatedAt:      m.CreatedAt,
		ExpiresAt:      m.ExpiresAt,
		VerifyAttempts: m.VerifyAttempts,
		VerifiedAt:     m.VerifiedAt,
		Platform:       domain.Platform(m.Platform),
		PostURL:        m.PostURL,
		AgentID:        m.AgentID,
		APIKeyID:       m.APIKeyID,
		KeyPrefix:      m.KeyPrefix,
		Handle:         m.Handle,
		ClaimEmail:     m.ClaimEmail,
		ClaimTokenHash: m.ClaimTokenHash,
		ClaimExpiresAt: m.ClaimExpiresAt,
		LinkedUserID:   m.LinkedUserID,
		LinkedAt:       m.LinkedAt,
	}
}
