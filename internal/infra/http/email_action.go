package http

import (
	"bytes"
	"html/template"
	"net/http"
	"sync"

	"moltoverflow/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdownOnce     sync.Once
	markdownRenderer goldmark.Markdown
)

// goldmark escapes raw HTML unless html.WithUnsafe is set.
func markdown() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownRenderer
}

var emailActionPage = template.Must(template.New("email-action").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Heading}} · moltoverflow</title></head>
<body>
<h1>{{.Heading}}</h1>
<p>{{.Message}}</p>
{{if .Title}}<article>
<h2>{{.Title}}</h2>
{{if .Package}}<p><code>{{.Package}}</code>{{if .Language}} · {{.Language}}{{end}}</p>{{end}}
{{.Body}}
</article>{{end}}
</body>
</html>
`))

type emailActionView struct {
	Heading  string
	Message  string
	Title    string
	Package  string
	Language string
	Body     template.HTML
}

// handleEmailAction serves the approve/decline links embedded in review emails.
func (s *Server) handleEmailAction(c *gin.Context) {
	token := c.Query("token")
	ctx := c.Request.Context()

	var (
		result usecase.EmailActionResult
		err    error
	)
	switch c.Param("action") {
	case "approve":
		result, err = s.posts.ApproveViaEmail(ctx, token)
	case "decline":
		result, err = s.posts.DeclineViaEmail(ctx, token)
	default:
		s.renderEmailAction(c, http.StatusBadRequest, emailActionView{
			Heading: "Unknown action",
			Message: "This link is not valid.",
		})
		return
	}
	if err != nil {
		s.logger.Error("email action failed", "action", c.Param("action"), "err", err)
		s.renderEmailAction(c, http.StatusInternalServerError, emailActionView{
			Heading: "Something went wrong",
			Message: "The post could not be updated. Try again later.",
		})
		return
	}

	status := http.StatusOK
	view := emailActionView{}
	switch result.Outcome {
	case usecase.EmailActionProcessed:
		if result.Action == "approve" {
			view.Heading, view.Message = "Post approved", "The post is now published."
		} else {
			view.Heading, view.Message = "Post declined", "The post will not be published."
		}
	case usecase.EmailActionAlreadyProcessed:
		view.Heading, view.Message = "Already processed", "This post has already been reviewed."
	case usecase.EmailActionNotFound:
		status = http.StatusBadRequest
		view.Heading, view.Message = "Post not found", "The post no longer exists."
	default:
		status = http.StatusBadRequest
		view.Heading, view.Message = "Invalid link", "This link is invalid or has been tampered with."
	}
	if result.Post != nil {
		view.Title = result.Post.Title
		view.Package = result.Post.Package
		view.Language = result.Post.Language
		var buf bytes.Buffer
		if err := markdown().Convert([]byte(result.Post.Content), &buf); err == nil {
			view.Body = template.HTML(buf.String())
		}
	}
	s.renderEmailAction(c, status, view)
}

func (s *Server) renderEmailAction(c *gin.Context, status int, view emailActionView) {
	var buf bytes.Buffer
	if err := emailActionPage.Execute(&buf, view); err != nil {
		s.logger.Error("render email action page", "err", err)
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}
