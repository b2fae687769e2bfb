package tasks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/mailer"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/tasks"
)

type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakeQueue struct {
	tasks []*asynq.Task
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestHandleEmailSend(t *testing.T) {
	m := &fakeMailer{}
	h := tasks.NewHandler(m)

	task, err := tasks.NewEmailTask(tasks.EmailPayload{To: "ama@example.tg", Subject: "Bienvenue", Body: "Merci"})
	require.NoError(t, err)

	require.NoError(t, h.HandleEmailSend(context.Background(), task))
	require.Len(t, m.sent, 1)
	assert.Equal(t, "ama@example.tg", m.sent[0].To)
	assert.Equal(t, "Bienvenue", m.sent[0].Subject)
}

func TestHandleEmailSend_BadPayloadSkipsRetry(t *testing.T) {
	h := tasks.NewHandler(&fakeMailer{})

	err := h.HandleEmailSend(context.Background(), asynq.NewTask(tasks.TypeEmailSend, []byte("{not json")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	task, err := tasks.NewEmailTask(tasks.EmailPayload{Subject: "no recipient"})
	require.NoError(t, err)
	assert.True(t, errors.Is(h.HandleEmailSend(context.Background(), task), asynq.SkipRetry))
}

func TestHandleEmailSend_MailerErrorRetries(t *testing.T) {
	h := tasks.NewHandler(&fakeMailer{err: errors.New("smtp down")})

	task, err := tasks.NewEmailTask(tasks.EmailPayload{To: "kofi@example.tg"})
	require.NoError(t, err)

	err = h.HandleEmailSend(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestEnqueueEmail(t *testing.T) {
	q := &fakeQueue{}
	require.NoError(t, tasks.EnqueueEmail(context.Background(), q, tasks.EmailPayload{To: "afi@example.tg"}))
	require.Len(t, q.tasks, 1)
	assert.Equal(t, tasks.TypeEmailSend, q.tasks[0].Type())

	assert.NoError(t, tasks.EnqueueEmail(context.Background(), nil, tasks.EmailPayload{To: "afi@example.tg"}))
}
