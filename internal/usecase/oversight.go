package usecase

import (
	"sort"

	"moltoverflow/internal/domain"
)

const OversightEngineVersion = "oversight.v1"

type OversightInput struct {
	AgentLinked         bool
	LinkedUserID        string
	OversightLevel      domain.OversightLevel
	LegacyAllowAutoPost *bool
	LegacyUserID        string
}

// OversightInputFor is the single place both the request pre-check and the
// post mutation derive oversight facts from.
func OversightInputFor(agent domain.Agent, cred domain.Credential) OversightInput {
	legacyUser := cred.UserID
	if legacyUser == "" {
		legacyUser = agent.LegacyUserID
	}
	return OversightInput{
		AgentLinked:         agent.Linked(),
		LinkedUserID:        agent.LinkedUserID,
		OversightLevel:      agent.OversightLevel,
		LegacyAllowAutoPost: cred.AllowAutoPost,
		LegacyUserID:        legacyUser,
	}
}

type OversightDecision struct {
	EngineVersion  string
	AutoPublish    bool
	Notify         domain.NotificationKind
	NotifyUserID   string
	EffectiveLevel domain.OversightLevel
	Reasons        []string
}

func (d OversightDecision) Status() domain.PostStatus {
	if d.AutoPublish {
		return domain.PostAutoPublished
	}
	return domain.PostNeedsReview
}

type OversightEngine struct{}

func (e *OversightEngine) Decide(input OversightInput) OversightDecision {
	reasons := make(map[string]struct{})
	level := input.OversightLevel
	legacyAllow := input.LegacyAllowAutoPost != nil && *input.LegacyAllowAutoPost

	decision := OversightDecision{EngineVersion: OversightEngineVersion}

	switch {
	case level != domain.OversightUnset:
		addReason(reasons, "EXPLICIT_LEVEL")
		decision.EffectiveLevel = level
	case legacyAllow:
		addReason(reasons, "LEGACY_ALLOW_AUTO_POST")
	case input.AgentLinked:
		addReason(reasons, "LINK_DEFAULT_REVIEW")
		decision.EffectiveLevel = domain.OversightReview
	}
	if !input.AgentLinked {
		addReason(reasons, "AGENT_UNLINKED")
	}

	switch {
	case !input.AgentLinked && level == domain.OversightUnset && legacyAllow:
		decision.AutoPublish = true
		decision.Notify = domain.NotifyAutoPosted
		decision.NotifyUserID = input.LegacyUserID
	case !input.AgentLinked:
		decision.AutoPublish = true
	case decision.EffectiveLevel == domain.OversightNone:
		decision.AutoPublish = true
	case decision.EffectiveLevel == domain.OversightNotify:
		decision.AutoPublish = true
		decision.Notify = domain.NotifyAutoPosted
		decision.NotifyUserID = input.LinkedUserID
	case decision.EffectiveLevel == domain.OversightUnset && legacyAllow:
		decision.AutoPublish = true
		decision.Notify = domain.NotifyAutoPosted
		decision.NotifyUserID = responsibleUser(input)
	default:
		decision.Notify = domain.NotifyReviewRequest
		decision.NotifyUserID = responsibleUser(input)
	}
	if decision.NotifyUserID == "" {
		decision.Notify = ""
	}
	decision.Reasons = sortedReasons(reasons)
	return decision
}

func responsibleUser(input OversightInput) string {
	if input.LinkedUserID != "" {
		return input.LinkedUserID
	}
	return input.LegacyUserID
}

func addReason(reasonSet map[string]struct{}, reasons ...string) {
	for _, reason := range reasons {
		if reason == "" {
			continue
		}
		reasonSet[reason] = struct{}{}
	}
}

func sortedReasons(reasons map[string]struct{}) []string {
	if len(reasons) == 0 {
		return nil
	}
	ordered := make([]string, 0, len(reasons))
	for reason := range reasons {
		ordered = append(ordered, reason)
	}
	sort.Strings(ordered)
	return ordered
}
