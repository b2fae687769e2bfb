package cronjob

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
)

// PurgeReadSpec runs the notification cleanup every night at 03:00.
const PurgeReadSpec = "0 3 * * *"

// NotificationPurger deletes read notifications older than a cutoff.
type NotificationPurger interface {
	PurgeRead(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Manager struct {
	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
	timeout time.Duration
}

func NewManager() *Manager {
	return &Manager{
		cron:    cron.New(cron.WithLocation(time.Local)),
		entries: make(map[string]cron.EntryID),
		timeout: 5 * time.Minute,
	}
}

// Add registers a named job. Re-adding a name replaces the previous entry.
func (m *Manager) Add(name, spec string, job func(ctx context.Context) error) (cron.EntryID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.cron.AddFunc(spec, m.wrap(name, job))
	if err != nil {
		return 0, fmt.Errorf("cronjob: add %s with spec %q: %w", name, spec, err)
	}
	if old, ok := m.entries[name]; ok {
		m.cron.Remove(old)
	}
	m.entries[name] = id
	return id, nil
}

// RunNow executes a registered job synchronously.
func (m *Manager) RunNow(name string) error {
	m.mu.Lock()
	id, ok := m.entries[name]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("cronjob: unknown job %s", name)
	}
	m.cron.Entry(id).WrappedJob.Run()
	return nil
}

func (m *Manager) Entries() map[string]cron.EntryID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]cron.EntryID, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

func (m *Manager) Start() {
	m.cron.Start()
	logutils.Log.WithField("jobs", len(m.Entries())).Info("cron scheduler started")
}

// Stop waits for running jobs to finish or ctx to expire.
func (m *Manager) Stop(ctx context.Context) {
	done := m.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logutils.Log.Warn("cron scheduler stop timed out")
	}
}

func (m *Manager) wrap(name string, job func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		start := time.Now()
		log := logutils.Log.WithField("job", name)
		if err := job(ctx); err != nil {
			log.WithError(err).Error("cron job failed")
			return
		}
		log.WithField("took", time.Since(start).String()).Info("cron job finished")
	}
}

// RegisterPurgeRead schedules the nightly cleanup of read notifications.
func (m *Manager) RegisterPurgeRead(p NotificationPurger, retention time.Duration) error {
	if retention <= 0 {
		logutils.Log.Info("notification retention disabled, purge job not scheduled")
		return nil
	}
	_, err := m.Add("purge-read-notifications", PurgeReadSpec, func(ctx context.Context) error {
		n, err := p.PurgeRead(ctx, retention)
		if err != nil {
			return err
		}
		logutils.Log.WithField("deleted", n).Info("read notifications purged")
		return nil
	})
	return err
}
