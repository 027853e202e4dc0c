// Package views holds the embedded HTML templates and the helpers every
// handler module renders through.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"blogpress/auth"
)

//go:embed templates/*.html
var files embed.FS

// markdown renderer configured with Goldmark and useful extensions. Raw HTML
// is escaped since any registered user may write posts.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,     // tables, strikethrough, task lists, autolinks (GFM set)
		extension.Linkify, // linkify raw URLs
	),
)

// Markdown renders content to HTML. On a conversion error the escaped source
// is returned so the page still renders.
func Markdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}

func FuncMap(baseURL string) template.FuncMap {
	return template.FuncMap{
		"markdown": Markdown,
		"now":      time.Now,
		"baseURL":  func() string { return baseURL },
		"date": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("Jan 2, 2006 15:04")
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
}

// New parses every embedded template into one set for gin's SetHTMLTemplate.
func New(baseURL string) (*template.Template, error) {
	return template.New("").Funcs(FuncMap(baseURL)).ParseFS(files, "templates/*.html")
}

const flashKey = "_flash"

// Flash queues a one-shot message shown on the next rendered page.
func Flash(c *gin.Context, msg string) {
	session := sessions.Default(c)
	session.AddFlash(msg, flashKey)
	session.Save()
}

// Render adds the values the layout needs (current user, pending flash
// messages) and renders name.
func Render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["user"] = auth.Current(c)

	session := sessions.Default(c)
	if raw := session.Flashes(flashKey); len(raw) > 0 {
		msgs := make([]string, 0, len(raw))
		for _, m := range raw {
			if s, ok := m.(string); ok {
				msgs = append(msgs, s)
			}
		}
		data["flashes"] = msgs
		session.Save()
	}

	c.HTML(status, name, data)
}

// Error renders the shared error page.
func Error(c *gin.Context, status int, msg string) {
	Render(c, status, "error.html", gin.H{"title": msg, "error": msg})
}
