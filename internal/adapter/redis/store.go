// Package redis persists user preferences and the pending notification
// queue in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/couchcryptid/weather-dashboard-service/internal/config"
	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
)

// PendingAlertsKey is the Redis list holding notifications awaiting publish.
const PendingAlertsKey = "pending_weather_alerts"

// cmdable is the subset of *goredis.Client the stores use.
type cmdable interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	RPush(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	LPush(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	LPop(ctx context.Context, key string) *goredis.StringCmd
	Ping(ctx context.Context) *goredis.StatusCmd
}

// NewClient creates a go-redis client from config.
func NewClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// PreferenceStore keeps user preferences as JSON under prefs:{userID}.
type PreferenceStore struct {
	client          cmdable
	defaultLocation string
}

// NewPreferenceStore creates a store. Users without stored preferences get
// defaultLocation and alerts turned off.
func NewPreferenceStore(client cmdable, defaultLocation string) *PreferenceStore {
	return &PreferenceStore{client: client, defaultLocation: defaultLocation}
}

func prefsKey(userID string) string {
	return "prefs:" + userID
}

// Get loads a user's preferences, returning defaults if none are stored.
func (s *PreferenceStore) Get(ctx context.Context, userID string) (domain.Preferences, error) {
	data, err := s.client.Get(ctx, prefsKey(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Preferences{UserID: userID, Location: s.defaultLocation}, nil
	}
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("get preferences %s: %v: %w", userID, err, domain.ErrTransientNetwork)
	}

	var p domain.Preferences
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Preferences{}, fmt.Errorf("decode preferences %s: %v: %w", userID, err, domain.ErrIncompleteData)
	}
	p.UserID = userID
	if p.Location == "" {
		p.Location = s.defaultLocation
	}
	return p, nil
}

// Put stores a user's preferences.
func (s *PreferenceStore) Put(ctx context.Context, p domain.Preferences) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := s.client.Set(ctx, prefsKey(p.UserID), data, 0).Err(); err != nil {
		return fmt.Errorf("put preferences %s: %v: %w", p.UserID, err, domain.ErrTransientNetwork)
	}
	return nil
}

// Update merges the present fields of u into the stored preferences.
func (s *PreferenceStore) Update(ctx context.Context, userID string, u domain.ProfileUpdate) (domain.Preferences, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return domain.Preferences{}, err
	}
	p = u.Apply(p)
	if err := s.Put(ctx, p); err != nil {
		return domain.Preferences{}, err
	}
	return p, nil
}

// CheckReadiness pings Redis.
func (s *PreferenceStore) CheckReadiness(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// PendingQueue is a FIFO Redis list of notifications. It implements
// notify.PendingQueue.
type PendingQueue struct {
	client cmdable
	key    string
}

// NewPendingQueue creates a queue on the pending_weather_alerts list.
func NewPendingQueue(client cmdable) *PendingQueue {
	return &PendingQueue{client: client, key: PendingAlertsKey}
}

// Push appends n to the tail of the queue.
func (q *PendingQueue) Push(ctx context.Context, n domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return q.client.RPush(ctx, q.key, data).Err()
}

// PushFront returns n to the head of the queue.
func (q *PendingQueue) PushFront(ctx context.Context, n domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return q.client.LPush(ctx, q.key, data).Err()
}

// Pop removes and returns the head of the queue. It returns false when the
// queue is empty. Undecodable entries are dropped with an error.
func (q *PendingQueue) Pop(ctx context.Context) (domain.Notification, bool, error) {
	data, err := q.client.LPop(ctx, q.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Notification{}, false, nil
	}
	if err != nil {
		return domain.Notification{}, false, err
	}
	var n domain.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return domain.Notification{}, false, fmt.Errorf("decode pending notification: %w", err)
	}
	return n, true, nil
}
