// Package notify sends the best-effort email notices attached to content
// creation and feedback.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"blogpress/email"
	"blogpress/models"
)

// Dispatcher never reports a delivery failure to its caller: every notice is
// sent on its own goroutine and errors are only logged.
type Dispatcher struct {
	sender  email.Sender
	admin   string
	from    string
	baseURL string
	timeout time.Duration
	wg      sync.WaitGroup
}

type Options struct {
	AdminAddress string
	From         string
	BaseURL      string
	Timeout      time.Duration
}

func NewDispatcher(sender email.Sender, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Dispatcher{
		sender:  sender,
		admin:   opts.AdminAddress,
		from:    opts.From,
		baseURL: opts.BaseURL,
		timeout: opts.Timeout,
	}
}

// PostCreated tells the administrators a post is waiting for review.
func (d *Dispatcher) PostCreated(ctx context.Context, post *models.Post) {
	d.dispatch(ctx, "post_created", email.Message{
		Subject: "New post",
		Body:    fmt.Sprintf("New post %q created! Check it on admin panel.", post.Title),
		From:    d.from,
		To:      []string{d.admin},
	})
}

// CommentCreated sends two independent notices: one to the administrators and
// one to the author of the post. author may be nil or have no email.
func (d *Dispatcher) CommentCreated(ctx context.Context, comment *models.Comment, author *models.User) {
	d.dispatch(ctx, "comment_created", email.Message{
		Subject: "New comment",
		Body:    "New comment created! Check it on admin panel.",
		From:    d.from,
		To:      []string{d.admin},
	})

	if author == nil || author.Email == "" {
		slog.InfoContext(ctx, "post author has no email, skipping notice", "post_id", comment.PostID)
		return
	}
	d.dispatch(ctx, "comment_author", email.Message{
		Subject: "New comment on your post",
		Body:    fmt.Sprintf("New comment created! You can check it here %s", d.PostURL(comment.PostID)),
		From:    d.from,
		To:      []string{author.Email},
	})
}

// Feedback forwards a visitor message with the visitor as sender.
func (d *Dispatcher) Feedback(ctx context.Context, from, message string) {
	d.dispatch(ctx, "feedback", email.Message{
		Subject: "New feedback!",
		Body:    message,
		From:    from,
		To:      []string{d.admin},
	})
}

func (d *Dispatcher) PostURL(id uint) string {
	return fmt.Sprintf("%s/posts/%d/", d.baseURL, id)
}

// Wait blocks until every notice dispatched so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, kind string, msg email.Message) {
	// detach from the request so a finished response does not cancel the send
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := d.sender.Send(sendCtx, msg); err != nil {
			slog.ErrorContext(sendCtx, "notification failed",
				"kind", kind,
				"to", msg.To,
				"err", err,
			)
			return
		}
		slog.DebugContext(sendCtx, "notification sent", "kind", kind, "to", msg.To)
	}()
}
