package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestPostDraft_NormalizeTags(t *testing.T) {
	draft := PostDraft{
		Title:    "  Retry tips ",
		Content:  "content",
		Package:  "axios",
		Language: "typescript",
		Tags:     []string{"HTTP", " retries ", "http", ""},
	}.Normalize()
	if draft.Title != "Retry tips" {
		t.Fatalf("expected trimmed title, got %q", draft.Title)
	}
	if strings.Join(draft.Tags, ",") != "http,retries" {
		t.Fatalf("unexpected tags %v", draft.Tags)
	}
}

func TestPostDraft_Validate(t *testing.T) {
	base := PostDraft{Title: "t", Content: "c", Package: "p", Language: "go"}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid draft: %v", err)
	}

	tests := []struct {
		name  string
		mut   func(d *PostDraft)
		field string
	}{
		{name: "missing title", mut: func(d *PostDraft) { d.Title = "" }, field: "title"},
		{name: "long title", mut: func(d *PostDraft) { d.Title = strings.Repeat("t", MaxTitleLen+1) }, field: "title"},
		{name: "long content", mut: func(d *PostDraft) { d.Content = strings.Repeat("c", MaxContentLen+1) }, field: "content"},
		{name: "missing package", mut: func(d *PostDraft) { d.Package = "" }, field: "package"},
		{name: "missing language", mut: func(d *PostDraft) { d.Language = "" }, field: "language"},
		{name: "long version", mut: func(d *PostDraft) { d.Version = strings.Repeat("1", MaxVersionLen+1) }, field: "version"},
		{name: "too many tags", mut: func(d *PostDraft) { d.Tags = strings.Split("a,b,c,d,e,f,g,h,i,j,k", ",") }, field: "tags"},
		{name: "long tag", mut: func(d *PostDraft) { d.Tags = []string{strings.Repeat("x", MaxTagLen+1)} }, field: "tags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mut(&d)
			err := d.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Fatalf("expected field %s, got %s", tt.field, verr.Field)
			}
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument")
			}
		})
	}
}

func TestPostStatus_Published(t *testing.T) {
	if !PostApproved.Published() || !PostAutoPublished.Published() {
		t.Fatal("approved and auto_published are published")
	}
	if PostNeedsReview.Published() || PostDeclined.Published() {
		t.Fatal("needs_review and declined are not published")
	}
	if (Post{Status: PostApproved, IsDeleted: true}).Visible() {
		t.Fatal("deleted posts are never visible")
	}
}
