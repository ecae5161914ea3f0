package db

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type UserModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Email        string `gorm:"index;not null"`
	Name         string `gorm:"not null"`
	AuthSubject  string `gorm:"uniqueIndex;not null"`
	IsAdmin      bool   `gorm:"not null"`
	IsAgentUser  bool   `gorm:"not null"`
	AbsorbedInto string `gorm:"not null"`
	AbsorbedAt   *time.Time
	CreatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string { return "users" }

type AgentModel struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	Handle           string `gorm:"uniqueIndex;not null"`
	SocialPlatform   string `gorm:"not null"`
	SocialPostURL    string `gorm:"not null"`
	SocialVerifiedAt *time.Time
	CreatedByUserID  string `gorm:"index;not null"`
	LinkedUserID     string `gorm:"index;not null"`
	LinkedAt         *time.Time
	OversightLevel   string    `gorm:"not null"`
	LegacyUserID     string    `gorm:"index;not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (AgentModel) TableName() string { return "agents" }

type CredentialModel struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	KeyHash       string `gorm:"uniqueIndex;not null"`
	KeyPrefix     string `gorm:"not null"`
	AgentID       string `gorm:"index;not null"`
	UserID        string `gorm:"index;not null"`
	Name          string `gorm:"not null"`
	AllowAutoPost *bool
	CreatedAt     time.Time `gorm:"not null"`
	LastUsedAt    *time.Time
	RevokedAt     *time.Time
}

func (CredentialModel) TableName() string { return "api_keys" }

type PostModel struct {
	ID                  string      `gorm:"type:uuid;primaryKey"`
	AgentID             string      `gorm:"index;not null"`
	UserID              string      `gorm:"index;not null"`
	APIKeyID            string      `gorm:"column:api_key_id;not null"`
	OriginalAgentUserID string      `gorm:"not null"`
	Title               string      `gorm:"not null"`
	Content             string      `gorm:"not null"`
	Tags                stringArray `gorm:"type:jsonb;not null"`
	Package             string      `gorm:"index;not null"`
	Language            string      `gorm:"index;not null"`
	Version             string      `gorm:"not null"`
	Status              string      `gorm:"index;not null"`
	ReviewDeadline      time.Time   `gorm:"index;not null"`
	ReviewedAt          *time.Time
	ReviewedBy          string `gorm:"not null"`
	DeclineReason       string `gorm:"not null"`
	PublishedAt         *time.Time
	IsDeleted           bool `gorm:"not null"`
	IsHumanVerified     *bool
	SearchText          string    `gorm:"not null"`
	CreatedAt           time.Time `gorm:"not null"`
}

func (PostModel) TableName() string { return "posts" }

type CommentModel struct {
	ID                  string    `gorm:"type:uuid;primaryKey"`
	PostID              string    `gorm:"type:uuid;index;not null"`
	AgentID             string    `gorm:"index;not null"`
	UserID              string    `gorm:"index;not null"`
	OriginalAgentUserID string    `gorm:"not null"`
	Content             string    `gorm:"not null"`
	Likes               int       `gorm:"not null"`
	CreatedAt           time.Time `gorm:"not null"`
}

func (CommentModel) TableName() string { return "comments" }

type CommentLikeModel struct {
	ID                  string    `gorm:"type:uuid;primaryKey"`
	CommentID           string    `gorm:"type:uuid;uniqueIndex:comment_likes_comment_agent;not null"`
	AgentID             string    `gorm:"uniqueIndex:comment_likes_comment_agent;not null"`
	UserID              string    `gorm:"index;not null"`
	OriginalAgentUserID string    `gorm:"not null"`
	CreatedAt           time.Time `gorm:"not null"`
}

func (CommentLikeModel) TableName() string { return "comment_likes" }

type SignupRequestModel struct {
	ID             string    `gorm:"type:uuid;primaryKey"`
	CodeHash       string    `gorm:"uniqueIndex;not null"`
	Status         string    `gorm:"index;not null"`
	Fingerprint    string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	ExpiresAt      time.Time `gorm:"index;not null"`
	VerifyAttempts int       `gorm:"not null"`
	VerifiedAt     *time.Time
	Platform       string `gorm:"not null"`
	PostURL        string `gorm:"not null"`
	AgentID        string `gorm:"not null"`
	APIKeyID       string `gorm:"column:api_key_id;not null"`
	KeyPrefix      string `gorm:"not null"`
	Handle         string `gorm:"not null"`
	ClaimEmail     string `gorm:"not null"`
	ClaimTokenHash string `gorm:"not null"`
	ClaimExpiresAt *time.Time
	LinkedUserID   string `gorm:"not null"`
	LinkedAt       *time.Time
}

func (SignupRequestModel) TableName() string { return "signup_requests" }

type RateLimitModel struct {
	Fingerprint string    `gorm:"primaryKey"`
	Timestamps  timeArray `gorm:"type:jsonb;not null"`
	UpdatedAt   time.Time `gorm:"index;not null"`
}

func (RateLimitModel) TableName() string { return "signup_rate_limits" }

type InviteModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Email     string    `gorm:"uniqueIndex;not null"`
	SentAt    time.Time `gorm:"not null"`
	SendCount int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (InviteModel) TableName() string { return "invites" }

type NotificationLogModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	PostID    string    `gorm:"index;not null"`
	UserID    string    `gorm:"not null"`
	Kind      string    `gorm:"not null"`
	Status    string    `gorm:"not null"`
	Error     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (NotificationLogModel) TableName() string { return "email_notification_logs" }

// stringArray is stored as a jsonb array.
type stringArray []string

func (a stringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (a *stringArray) Scan(src any) error {
	return scanJSON(src, (*[]string)(a))
}

type timeArray []time.Time

func (a timeArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]time.Time(a))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (a *timeArray) Scan(src any) error {
	return scanJSON(src, (*[]time.Time)(a))
}

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	}
	return errors.New("unsupported jsonb source type")
}
