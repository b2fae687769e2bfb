package realtime_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/realtime"
)

func startHub(t *testing.T) *realtime.Hub {
	t.Helper()
	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func TestHub_PublishReachesEveryConnectionOfUser(t *testing.T) {
	hub := startHub(t)
	user := uuid.New()
	other := uuid.New()

	a, b, c := realtime.NewClient(user), realtime.NewClient(user), realtime.NewClient(other)
	hub.RegisterClient(a)
	hub.RegisterClient(b)
	hub.RegisterClient(c)
	require.Eventually(t, func() bool { return hub.Connections(user) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), user, map[string]string{"type": "notification"}))

	for _, cl := range []*realtime.Client{a, b} {
		select {
		case msg := <-cl.Send:
			var got map[string]string
			require.NoError(t, json.Unmarshal(msg, &got))
			assert.Equal(t, "notification", got["type"])
		case <-time.After(time.Second):
			t.Fatal("no message delivered")
		}
	}
	assert.Empty(t, c.Send)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	user := uuid.New()
	cl := realtime.NewClient(user)
	hub.RegisterClient(cl)
	hub.UnregisterClient(cl)

	_, open := <-cl.Send
	assert.False(t, open)
	assert.Zero(t, hub.Connections(user))
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := startHub(t)
	user := uuid.New()
	cl := &realtime.Client{ID: "slow", UserID: user, Send: make(chan []byte, 1)}
	hub.RegisterClient(cl)
	require.Eventually(t, func() bool { return hub.Connections(user) == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.SendRaw(user, []byte(`{}`))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendRaw blocked on a full client")
	}
	assert.Len(t, cl.Send, 1)
}

func TestHub_PublishRejectsUnencodable(t *testing.T) {
	hub := startHub(t)
	err := hub.Publish(context.Background(), uuid.New(), make(chan int))
	assert.Error(t, err)
}

func TestUserChannel(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "notifications:"+id.String(), realtime.UserChannel(id))
}

func TestHub_StoppedHubDoesNotBlock(t *testing.T) {
	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	live := realtime.NewClient(uuid.New())
	hub.RegisterClient(live)
	cancel()
	<-stopped

	_, open := <-live.Send
	assert.False(t, open, "running clients are closed on stop")

	late := realtime.NewClient(uuid.New())
	hub.RegisterClient(late)
	_, open = <-late.Send
	assert.False(t, open)
	hub.UnregisterClient(late)
}
