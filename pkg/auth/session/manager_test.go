package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jebdekho/jebdekho-backend/pkg/config"
	redisclient "github.com/jebdekho/jebdekho-backend/pkg/redis"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redisclient.Nil
	}
	return val, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func newTestManager(t *testing.T, store *mockStore) *Manager {
	t.Helper()
	m, err := newManager(store, config.JWTConfig{ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60})
	if err != nil {
		t.Fatalf("newManager: %v", err)
	}
	return m
}

func TestStartAndRotate(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(t, store)
	ctx := context.Background()

	accessID, token, err := manager.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if store.data["sess:"+accessID] != token {
		t.Fatalf("expected token stored under access id")
	}
	if store.ttls["sess:"+accessID] != time.Hour {
		t.Fatalf("expected 1h ttl, got %v", store.ttls["sess:"+accessID])
	}

	if _, _, err := manager.Rotate(ctx, accessID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, accessID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newAccessID == accessID || newToken == token {
		t.Fatal("expected a fresh session")
	}
	if _, exists := store.data["sess:"+accessID]; exists {
		t.Fatal("old session left behind")
	}

	if _, _, err := manager.Rotate(ctx, accessID, token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected replayed refresh token to fail, got %v", err)
	}
}

func TestRevokeAndHasSession(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(t, store)
	ctx := context.Background()

	accessID, _, err := manager.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if ok, err := manager.HasSession(ctx, accessID); err != nil || !ok {
		t.Fatalf("expected live session, ok=%v err=%v", ok, err)
	}
	if err := manager.Revoke(ctx, accessID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, err := manager.HasSession(ctx, accessID); err != nil || ok {
		t.Fatalf("expected revoked session, ok=%v err=%v", ok, err)
	}
	if _, err := manager.HasSession(ctx, ""); err == nil {
		t.Fatal("expected error for empty access id")
	}
}

func TestNewManagerRejectsShortRefreshTTL(t *testing.T) {
	if _, err := newManager(newMockStore(), config.JWTConfig{ExpirationMinutes: 60, RefreshTokenTTLMinutes: 30}); err == nil {
		t.Fatal("expected ttl validation error")
	}
}
