// Package live mirrors the newest observation into Redis for dashboards that
// want the current occupancy without reading the daily logs.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/baranekm/sauna-attendance/internal/record"
)

// ErrNoObservation is returned when nothing has been published yet.
var ErrNoObservation = errors.New("no live observation")

const (
	defaultKey     = "attendance:latest"
	defaultChannel = "attendance:observations"
)

// Envelope is the JSON document stored under the latest key and sent on the channel.
type Envelope struct {
	Source      string             `json:"source"` // poller instance id
	PublishedAt time.Time          `json:"publishedAt"`
	Observation record.Observation `json:"observation"`
}

// RedisFeed publishes observations to a Redis key and pub/sub channel.
type RedisFeed struct {
	client  *redis.Client
	source  uuid.UUID
	key     string
	channel string
}

// NewRedisFeed connects to the Redis instance described by opts and verifies it responds.
func NewRedisFeed(ctx context.Context, opts *redis.Options, source uuid.UUID) (*RedisFeed, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisFeed{
		client:  client,
		source:  source,
		key:     defaultKey,
		channel: defaultChannel,
	}, nil
}

// NewRedisFeedFromURL parses a redis:// URL.
func NewRedisFeedFromURL(ctx context.Context, rawURL string, source uuid.UUID) (*RedisFeed, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisFeed(ctx, opts, source)
}

// Channel is the pub/sub channel observations are announced on.
func (f *RedisFeed) Channel() string {
	return f.channel
}

// Publish stores obs as the latest observation and announces it on the channel.
func (f *RedisFeed) Publish(ctx context.Context, obs record.Observation) error {
	payload, err := json.Marshal(Envelope{
		Source:      f.source.String(),
		PublishedAt: time.Now().UTC(),
		Observation: obs,
	})
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}

	pipe := f.client.Pipeline()
	pipe.Set(ctx, f.key, payload, 0)
	pipe.Publish(ctx, f.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish observation: %w", err)
	}
	return nil
}

// Latest returns the most recently published observation.
func (f *RedisFeed) Latest(ctx context.Context) (record.Observation, error) {
	env, err := f.LatestEnvelope(ctx)
	if err != nil {
		return record.Observation{}, err
	}
	return env.Observation, nil
}

// LatestEnvelope returns the most recent envelope including its metadata.
func (f *RedisFeed) LatestEnvelope(ctx context.Context) (Envelope, error) {
	data, err := f.client.Get(ctx, f.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Envelope{}, ErrNoObservation
	}
	if err != nil {
		return Envelope{}, fmt.Errorf("read latest observation: %w", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode latest observation: %w", err)
	}
	env.Observation.Weekday = env.Observation.Timestamp.Weekday()
	return env, nil
}

// Subscribe returns a subscription to the observation channel.
func (f *RedisFeed) Subscribe(ctx context.Context) *redis.PubSub {
	return f.client.Subscribe(ctx, f.channel)
}

// Watch hands every envelope announced on the channel to fn until ctx is
// cancelled. Payloads that do not decode are skipped.
func (f *RedisFeed) Watch(ctx context.Context, fn func(Envelope)) error {
	sub := f.Subscribe(ctx)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe to %s: %w", f.channel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("live: skipping malformed payload: %v", err)
				continue
			}
			env.Observation.Weekday = env.Observation.Timestamp.Weekday()
			fn(env)
		}
	}
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}
