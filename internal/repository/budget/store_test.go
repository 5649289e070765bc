package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/askdex/internal/db"
)

type expireCall struct {
	key string
	ttl time.Duration
	nx  bool
}

type mockStore struct {
	values   map[string][]byte
	getErr   error
	incrErr  error
	incrs    map[string]int64
	expires  []expireCall
	expireFn func(key string) error
}

func newMockStore() *mockStore {
	return &mockStore{values: map[string][]byte{}, incrs: map[string]int64{}}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) IncrBy(_ context.Context, key string, val int64) error {
	if m.incrErr != nil {
		return m.incrErr
	}
	m.incrs[key] += val
	return nil
}

func (m *mockStore) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	m.expires = append(m.expires, expireCall{key: key, ttl: ttl, nx: nx})
	if m.expireFn != nil {
		return m.expireFn(key)
	}
	return nil
}

func TestIncrBy_DailyTTL(t *testing.T) {
	ms := newMockStore()
	s := New(ms, time.Hour, 24*time.Hour)

	key := "askdex:budget:openai:daily:2026-10-19"
	if err := s.IncrBy(context.Background(), key, 120); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.incrs[key] != 120 {
		t.Errorf("incr = %d, want 120", ms.incrs[key])
	}
	if len(ms.expires) != 1 || ms.expires[0].ttl != time.Hour || !ms.expires[0].nx {
		t.Errorf("expire calls = %+v", ms.expires)
	}
}

func TestIncrBy_MonthlyTTL(t *testing.T) {
	ms := newMockStore()
	s := New(ms, time.Hour, 24*time.Hour)

	if err := s.IncrBy(context.Background(), "askdex:budget:openai:monthly:2026-10", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.expires[0].ttl != 24*time.Hour {
		t.Errorf("ttl = %v, want 24h", ms.expires[0].ttl)
	}
}

func TestIncrBy_ProviderNamedDaily(t *testing.T) {
	ms := newMockStore()
	s := New(ms, time.Hour, 24*time.Hour)

	// Only the window segment counts, not a provider that happens to be called "daily".
	if err := s.IncrBy(context.Background(), "askdex:budget:daily:monthly:2026-10", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ms.expires[0].ttl != 24*time.Hour {
		t.Errorf("ttl = %v, want monthly ttl", ms.expires[0].ttl)
	}
}

func TestIncrBy_Errors(t *testing.T) {
	ms := newMockStore()
	ms.incrErr = errors.New("conn refused")
	s := New(ms, 0, 0)
	if err := s.IncrBy(context.Background(), "k:daily:x", 1); err == nil {
		t.Error("expected incr error")
	}
	if len(ms.expires) != 0 {
		t.Error("expire must not run after failed incr")
	}

	ms = newMockStore()
	ms.expireFn = func(string) error { return errors.New("readonly") }
	s = New(ms, 0, 0)
	if err := s.IncrBy(context.Background(), "k:daily:x", 1); err == nil {
		t.Error("expected expire error")
	}
}

func TestNew_DefaultTTLs(t *testing.T) {
	ms := newMockStore()
	s := New(ms, 0, -1)

	_ = s.IncrBy(context.Background(), "askdex:budget:p:daily:2026-10-19", 1)
	_ = s.IncrBy(context.Background(), "askdex:budget:p:monthly:2026-10", 1)
	if ms.expires[0].ttl != DefaultDailyTTL || ms.expires[1].ttl != DefaultMonthlyTTL {
		t.Errorf("expire calls = %+v", ms.expires)
	}
}

func TestGet(t *testing.T) {
	ms := newMockStore()
	ms.values["k"] = []byte("4096")
	s := New(ms, 0, 0)

	got, err := s.Get(context.Background(), "k")
	if err != nil || got != 4096 {
		t.Fatalf("Get = %d, %v; want 4096", got, err)
	}

	got, err = s.Get(context.Background(), "missing")
	if err != nil || got != 0 {
		t.Fatalf("missing key: Get = %d, %v; want 0, nil", got, err)
	}
}

func TestGet_Errors(t *testing.T) {
	ms := newMockStore()
	ms.values["k"] = []byte("not-a-number")
	s := New(ms, 0, 0)
	if _, err := s.Get(context.Background(), "k"); err == nil {
		t.Error("expected parse error")
	}

	ms.getErr = &db.Error{Op: db.OpGet, Err: errors.New("boom")}
	if _, err := s.Get(context.Background(), "k"); err == nil {
		t.Error("expected store error")
	}
}
