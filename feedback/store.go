package feedback

import (
	iface "RouteGrader/interface"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store persists training feedback and users' saved routes.
type Store interface {
	SaveFeedback(ctx context.Context, rec iface.FeedbackRecord) (string, error)
	SaveRoute(ctx context.Context, route iface.SavedRoute) error
	Routes(ctx context.Context, userID string) ([]iface.SavedRoute, error)
}

const feedbackList = "feedback"

func feedbackKey(id string) string { return "feedback:" + id }

func routesKey(userID string) string { return "users:" + userID + ":routes" }

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) SaveFeedback(ctx context.Context, rec iface.FeedbackRecord) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, feedbackKey(id), data, 0)
		pipe.RPush(ctx, feedbackList, id)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("save feedback: %w", err)
	}
	return id, nil
}

// Feedback reads back a stored record.
func (s *RedisStore) Feedback(ctx context.Context, id string) (iface.FeedbackRecord, error) {
	var rec iface.FeedbackRecord
	data, err := s.client.Get(ctx, feedbackKey(id)).Bytes()
	if err != nil {
		return rec, err
	}
	err = json.Unmarshal(data, &rec)
	return rec, err
}

func (s *RedisStore) SaveRoute(ctx context.Context, route iface.SavedRoute) error {
	data, err := json.Marshal(route)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, routesKey(route.UserID), route.ID, data).Err(); err != nil {
		return fmt.Errorf("save route: %w", err)
	}
	return nil
}

func (s *RedisStore) Routes(ctx context.Context, userID string) ([]iface.SavedRoute, error) {
	raw, err := s.client.HGetAll(ctx, routesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	routes := make([]iface.SavedRoute, 0, len(raw))
	for id, data := range raw {
		var r iface.SavedRoute
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decode route %s: %w", id, err)
		}
		routes = append(routes, r)
	}
	sortRoutes(routes)
	return routes, nil
}

// MemoryStore is used when Redis is unavailable.
type MemoryStore struct {
	mu       sync.RWMutex
	feedback map[string]iface.FeedbackRecord
	routes   map[string][]iface.SavedRoute
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		feedback: map[string]iface.FeedbackRecord{},
		routes:   map[string][]iface.SavedRoute{},
	}
}

func (s *MemoryStore) SaveFeedback(_ context.Context, rec iface.FeedbackRecord) (string, error) {
	id := uuid.NewString()
	rec.Coordinates = append([]int(nil), rec.Coordinates...)
	s.mu.Lock()
	s.feedback[id] = rec
	s.mu.Unlock()
	return id, nil
}

func (s *MemoryStore) Feedback(_ context.Context, id string) (iface.FeedbackRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.feedback[id]
	return rec, ok
}

func (s *MemoryStore) SaveRoute(_ context.Context, route iface.SavedRoute) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[route.UserID] = append(s.routes[route.UserID], route)
	return nil
}

func (s *MemoryStore) Routes(_ context.Context, userID string) ([]iface.SavedRoute, error) {
	s.mu.RLock()
	routes := append([]iface.SavedRoute(nil), s.routes[userID]...)
	s.mu.RUnlock()
	sortRoutes(routes)
	return routes, nil
}

// sortRoutes orders routes oldest first.
func sortRoutes(routes []iface.SavedRoute) {
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].CreatedAt != routes[j].CreatedAt {
			return routes[i].CreatedAt < routes[j].CreatedAt
		}
		return routes[i].ID < routes[j].ID
	})
}

// Connect returns a Redis store when the server answers within timeout, and a
// MemoryStore otherwise. The error explains the fallback.
func Connect(ctx context.Context, cfg RedisConfig, timeout time.Duration) (Store, error) {
	rs := NewRedisStore(cfg)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		_ = rs.Close()
		return NewMemoryStore(), err
	}
	return rs, nil
}
