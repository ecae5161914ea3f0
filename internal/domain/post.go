package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type PostStatus string

const (
	PostNeedsReview   PostStatus = "needs_review"
	PostApproved      PostStatus = "approved"
	PostDeclined      PostStatus = "declined"
	PostAutoPublished PostStatus = "auto_published"
)

func (s PostStatus) Published() bool {
	return s == PostApproved || s == PostAutoPublished
}

const (
	ReviewWindow = 7 * 24 * time.Hour

	MaxTitleLen    = 200
	MaxContentLen  = 50000
	MaxTags        = 10
	MaxTagLen      = 50
	MaxPackageLen  = 100
	MaxLanguageLen = 50
	MaxVersionLen  = 50
)

type Post struct {
	ID                  string
	AgentID             string
	UserID              string
	APIKeyID            string
	OriginalAgentUserID string
	Title               string
	Content             string
	Tags                []string
	Package             string
	Language            string
	Version             string
	Status              PostStatus
	ReviewDeadline      time.Time
	ReviewedAt          *time.Time
	ReviewedBy          string
	DeclineReason       string
	PublishedAt         *time.Time
	IsDeleted           bool
	IsHumanVerified     *bool
	SearchText          string
	CreatedAt           time.Time
}

// Visible reports whether the post may be served on public read paths.
func (p Post) Visible() bool {
	return !p.IsDeleted && p.Status.Published()
}

type PostDraft struct {
	Title    string
	Content  string
	Tags     []string
	Package  string
	Language string
	Version  string
}

// Normalize trims fields and lowercases, de-duplicates and drops empty tags.
func (d PostDraft) Normalize() PostDraft {
	out := PostDraft{
		Title:    strings.TrimSpace(d.Title),
		Content:  strings.TrimSpace(d.Content),
		Package:  strings.TrimSpace(d.Package),
		Language: strings.TrimSpace(d.Language),
		Version:  strings.TrimSpace(d.Version),
	}
	seen := make(map[string]struct{}, len(d.Tags))
	for _, tag := range d.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out.Tags = append(out.Tags, tag)
	}
	return out
}

func (d PostDraft) Validate() error {
	if d.Title == "" {
		return NewValidationError("title", "REQUIRED", "title is required")
	}
	if utf8.RuneCountInString(d.Title) > MaxTitleLen {
		return NewValidationError("title", "TOO_LONG", fmt.Sprintf("title must be at most %d characters", MaxTitleLen))
	}
	if d.Content == "" {
		return NewValidationError("content", "REQUIRED", "content is required")
	}
	if utf8.RuneCountInString(d.Content) > MaxContentLen {
		return NewValidationError("content", "TOO_LONG", fmt.Sprintf("content must be at most %d characters", MaxContentLen))
	}
	if d.Package == "" {
		return NewValidationError("package", "REQUIRED", "package is required")
	}
	if utf8.RuneCountInString(d.Package) > MaxPackageLen {
		return NewValidationError("package", "TOO_LONG", fmt.Sprintf("package must be at most %d characters", MaxPackageLen))
	}
	if d.Language == "" {
		return NewValidationError("language", "REQUIRED", "language is required")
	}
	if utf8.RuneCountInString(d.Language) > MaxLanguageLen {
		return NewValidationError("language", "TOO_LONG", fmt.Sprintf("language must be at most %d characters", MaxLanguageLen))
	}
	if utf8.RuneCountInString(d.Version) > MaxVersionLen {
		return NewValidationError("version", "TOO_LONG", fmt.Sprintf("version must be at most %d characters", MaxVersionLen))
	}
	if len(d.Tags) > MaxTags {
		return NewValidationError("tags", "TOO_MANY", fmt.Sprintf("at most %d tags are allowed", MaxTags))
	}
	for _, tag := range d.Tags {
		if utf8.RuneCountInString(tag) > MaxTagLen {
			return NewValidationError("tags", "TOO_LONG", fmt.Sprintf("tags must be at most %d characters", MaxTagLen))
		}
	}
	return nil
}

// BuildSearchText is the denormalized, lowercased text the search filter matches against.
func BuildSearchText(title, content string, tags []string, pkg, language string) string {
	parts := []string{title, content, strings.Join(tags, " "), pkg, language}
	return strings.ToLower(strings.Join(parts, " "))
}

type PostEdits struct {
	Title   *string
	Content *string
}

func (e PostEdits) Validate() error {
	if e.Title != nil {
		title := strings.TrimSpace(*e.Title)
		if title == "" {
			return NewValidationError("title", "REQUIRED", "title must not be empty")
		}
		if utf8.RuneCountInString(title) > MaxTitleLen {
			return NewValidationError("title", "TOO_LONG", fmt.Sprintf("title must be at most %d characters", MaxTitleLen))
		}
	}
	if e.Content != nil {
		content := strings.TrimSpace(*e.Content)
		if content == "" {
			return NewValidationError("content", "REQUIRED", "content must not be empty")
		}
		if utf8.RuneCountInString(content) > MaxContentLen {
			return NewValidationError("content", "TOO_LONG", fmt.Sprintf("content must be at most %d characters", MaxContentLen))
		}
	}
	return nil
}

// ReviewTransition is applied atomically only while a post is still needs_review.
type ReviewTransition struct {
	To              PostStatus
	At              time.Time
	ReviewedBy      string
	DeclineReason   string
	Title           *string
	Content         *string
	SearchText      *string
	ReassignAgentID string
}
