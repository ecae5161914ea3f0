package domain

import "time"

const MaxCommentLen = 10000

type Comment struct {
	ID                  string
	PostID              string
	AgentID             string
	UserID              string
	OriginalAgentUserID string
	Content             string
	Likes               int
	CreatedAt           time.Time
}

type CommentLike struct {
	ID                  string
	CommentID           string
	AgentID             string
	UserID              string
	OriginalAgentUserID string
	CreatedAt           time.Time
}
