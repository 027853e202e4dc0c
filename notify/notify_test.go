package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogpress/email"
	"blogpress/models"
)

func newTestDispatcher(outbox *email.Outbox) *Dispatcher {
	return NewDispatcher(outbox, Options{
		AdminAddress: "admin@example.com",
		From:         "ad@example.com",
		BaseURL:      "http://127.0.0.1:8000",
	})
}

func TestPostCreated(t *testing.T) {
	outbox := &email.Outbox{}
	d := newTestDispatcher(outbox)

	d.PostCreated(context.Background(), &models.Post{Title: "Hello"})
	d.Wait()

	msgs := outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "New post", msgs[0].Subject)
	assert.Equal(t, `New post "Hello" created! Check it on admin panel.`, msgs[0].Body)
	assert.Equal(t, "ad@example.com", msgs[0].From)
	assert.Equal(t, []string{"admin@example.com"}, msgs[0].To)
}

func TestCommentCreated_TwoNotices(t *testing.T) {
	outbox := &email.Outbox{}
	d := newTestDispatcher(outbox)

	d.CommentCreated(context.Background(), &models.Comment{PostID: 7}, &models.User{Email: "author@example.com"})
	d.Wait()

	msgs := outbox.Messages()
	require.Len(t, msgs, 2)

	bySubject := map[string]email.Message{}
	for _, m := range msgs {
		bySubject[m.Subject] = m
	}
	assert.Equal(t, []string{"admin@example.com"}, bySubject["New comment"].To)
	author := bySubject["New comment on your post"]
	assert.Equal(t, []string{"author@example.com"}, author.To)
	assert.Contains(t, author.Body, "http://127.0.0.1:8000/posts/7/")
}

func TestCommentCreated_AuthorWithoutEmail(t *testing.T) {
	outbox := &email.Outbox{}
	d := newTestDispatcher(outbox)

	d.CommentCreated(context.Background(), &models.Comment{PostID: 1}, &models.User{})
	d.CommentCreated(context.Background(), &models.Comment{PostID: 1}, nil)
	d.Wait()

	msgs := outbox.Messages()
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.Equal(t, "New comment", m.Subject)
	}
}

func TestFeedback(t *testing.T) {
	outbox := &email.Outbox{}
	d := newTestDispatcher(outbox)

	d.Feedback(context.Background(), "visitor@example.com", "great blog")
	d.Wait()

	msgs := outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "New feedback!", msgs[0].Subject)
	assert.Equal(t, "visitor@example.com", msgs[0].From)
	assert.Equal(t, "great blog", msgs[0].Body)
}

func TestDispatch_FailureIsSwallowed(t *testing.T) {
	outbox := &email.Outbox{Err: errors.New("smtp down")}
	d := newTestDispatcher(outbox)

	assert.NotPanics(t, func() {
		d.PostCreated(context.Background(), &models.Post{Title: "x"})
		d.Wait()
	})
	assert.Empty(t, outbox.Messages())
}

type blockingSender struct{}

func (blockingSender) Send(ctx context.Context, _ email.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestDispatch_Bounded(t *testing.T) {
	d := NewDispatcher(blockingSender{}, Options{AdminAddress: "admin@example.com", Timeout: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	d.PostCreated(ctx, &models.Post{Title: "x"})
	cancel() // request finished; the send keeps its own deadline

	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not give up after its timeout")
	}
}
