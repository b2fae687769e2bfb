package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/logutils"
)

const channelPrefix = "notifications:"

func NewRedis(addr, password string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	logutils.Log.WithField("addr", addr).Info("redis client created")
	return rdb
}

func UserChannel(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

// RedisPublisher sends events through redis so every API instance can
// reach the user's sockets.
type RedisPublisher struct {
	RDB *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{RDB: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, userID uuid.UUID, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.RDB.Publish(ctx, UserChannel(userID), payload).Err()
}

// Bridge forwards every per-user channel into the local hub until ctx ends.
func Bridge(ctx context.Context, rdb *redis.Client, hub *Hub) {
	sub := rdb.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	logutils.Log.Info("realtime bridge subscribed")
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, channelPrefix))
			if err != nil {
				logutils.Log.WithField("channel", msg.Channel).Warn("bridge: ignoring channel")
				continue
			}
			hub.SendRaw(userID, []byte(msg.Payload))
		}
	}
}
