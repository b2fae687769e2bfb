package tasks

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
)

// Enqueuer is the part of *asynq.Client the services use.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func NewClient(addr, password string) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
	})
}

func NewServer(addr, password string, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}

	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)
}

// EnqueueEmail queues an email. A nil queue drops the email with a warning.
func EnqueueEmail(ctx context.Context, q Enqueuer, payload EmailPayload) error {
	if q == nil {
		logutils.Log.WithField("to", payload.To).Warn("no task queue configured, email dropped")
		return nil
	}
	task, err := NewEmailTask(payload)
	if err != nil {
		return err
	}
	_, err = q.EnqueueContext(ctx, task)
	return err
}
