package cronjob_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/cronjob"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/models"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/services/notifications"
	"github.com/Windi-Fikriyansyah/togo_freelance/internal/testutil"
)

type fakePurger struct {
	calls     int
	olderThan time.Duration
	err       error
}

func (p *fakePurger) PurgeRead(_ context.Context, olderThan time.Duration) (int64, error) {
	p.calls++
	p.olderThan = olderThan
	return 3, p.err
}

func TestAdd_RejectsBadSpec(t *testing.T) {
	m := cronjob.NewManager()
	_, err := m.Add("bad", "not a spec", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Empty(t, m.Entries())
}

func TestAdd_ReplacesByName(t *testing.T) {
	m := cronjob.NewManager()
	first, err := m.Add("job", "@hourly", func(context.Context) error { return nil })
	require.NoError(t, err)
	second, err := m.Add("job", "@daily", func(context.Context) error { return nil })
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, second, m.Entries()["job"])
}

func TestRegisterPurgeRead(t *testing.T) {
	m := cronjob.NewManager()
	p := &fakePurger{}
	require.NoError(t, m.RegisterPurgeRead(p, 90*24*time.Hour))
	require.NoError(t, m.RunNow("purge-read-notifications"))

	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 90*24*time.Hour, p.olderThan)

	// failures are logged, not propagated
	p.err = errors.New("db down")
	require.NoError(t, m.RunNow("purge-read-notifications"))
	assert.Equal(t, 2, p.calls)

	assert.Error(t, m.RunNow("missing"))
}

func TestRegisterPurgeRead_DisabledRetention(t *testing.T) {
	m := cronjob.NewManager()
	require.NoError(t, m.RegisterPurgeRead(&fakePurger{}, 0))
	assert.Empty(t, m.Entries())
}

func TestPurgeJobAgainstStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	user := testutil.CreateTestUser(t, db, models.RoleFreelance)
	old := testutil.CreateTestNotification(t, db, user)
	fresh := testutil.CreateTestNotification(t, db, user)
	unread := testutil.CreateTestNotification(t, db, user)

	now := time.Now()
	require.NoError(t, db.Model(old).Updates(map[string]any{"read": true, "read_at": now.AddDate(0, 0, -120)}).Error)
	require.NoError(t, db.Model(fresh).Updates(map[string]any{"read": true, "read_at": now.AddDate(0, 0, -1)}).Error)

	svc := notifications.NewNotificationService(db, nil, nil)
	m := cronjob.NewManager()
	require.NoError(t, m.RegisterPurgeRead(svc, 90*24*time.Hour))
	require.NoError(t, m.RunNow("purge-read-notifications"))

	var ids []string
	require.NoError(t, db.Model(&models.Notification{}).Pluck("id", &ids).Error)
	assert.ElementsMatch(t, []string{fresh.ID.String(), unread.ID.String()}, ids)
}

func TestStartStop(t *testing.T) {
	m := cronjob.NewManager()
	m.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Stop(ctx)
}
