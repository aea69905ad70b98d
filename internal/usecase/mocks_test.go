// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"idea-to-market/internal/domain"
	"idea-to-market/internal/domain/model"
	"idea-to-market/internal/infra/worker"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// clone round-trips through JSON so stored records never alias caller memory,
// matching what the key-value store does.
func clone[T any](v *T) *T {
	b, _ := json.Marshal(v)
	out := new(T)
	_ = json.Unmarshal(b, out)
	return out
}

// memUserRepo is a small in-memory implementation used by unit tests.
type memUserRepo struct {
	mu       sync.RWMutex
	store    map[string]*model.User
	byEmail  map[string]string
	SaveFunc func(u *model.User) error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{store: map[string]*model.User{}, byEmail: map[string]string{}}
}

func (m *memUserRepo) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[u.Email]; ok {
		return domain.ErrEmailExists
	}
	m.byEmail[u.Email] = u.ID
	m.store[u.ID] = clone(u)
	return nil
}

func (m *memUserRepo) Save(_ context.Context, u *model.User) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(u); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[u.ID] = clone(u)
	return nil
}

func (m *memUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(u), nil
}

func (m *memUserRepo) FindIDByEmail(_ context.Context, email string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return "", domain.ErrNotFound
	}
	return id, nil
}

func (m *memUserRepo) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
}

type memSessionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.PaymentSession
	ttls  map[string]time.Duration
	// FindFunc runs before every read, outside the repo mutex.
	FindFunc func(id string)
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{store: map[string]*model.PaymentSession{}, ttls: map[string]time.Duration{}}
}

func (m *memSessionRepo) Create(_ context.Context, s *model.PaymentSession, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[s.ID] = clone(s)
	m.ttls[s.ID] = ttl
	return nil
}

func (m *memSessionRepo) Update(_ context.Context, s *model.PaymentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[s.ID]; !ok {
		return domain.ErrNotFound
	}
	m.store[s.ID] = clone(s)
	return nil
}

func (m *memSessionRepo) FindByID(_ context.Context, id string) (*model.PaymentSession, error) {
	if m.FindFunc != nil {
		m.FindFunc(id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(s), nil
}

func (m *memSessionRepo) evict(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, id)
}

type memSubRepo struct {
	mu       sync.RWMutex
	store    map[string]*model.Subscription
	saves    int
	SaveFunc func(s *model.Subscription) error
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{store: map[string]*model.Subscription{}}
}

func (m *memSubRepo) Save(_ context.Context, s *model.Subscription) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(s); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.store[s.UserID] = clone(s)
	return nil
}

func (m *memSubRepo) FindByUserID(_ context.Context, userID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(s), nil
}

type memEventRepo struct {
	mu         sync.Mutex
	events     []*model.Event
	AppendFunc func(e *model.Event) error
}

func (m *memEventRepo) Append(_ context.Context, e *model.Event) error {
	if m.AppendFunc != nil {
		if err := m.AppendFunc(e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append([]*model.Event{e}, m.events...)
	return nil
}

func (m *memEventRepo) ListRecent(_ context.Context, limit int) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.events) {
		limit = len(m.events)
	}
	return append([]*model.Event(nil), m.events[:limit]...), nil
}

func (m *memEventRepo) ListByUser(_ context.Context, userID string, limit int) ([]*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Event
	for _, e := range m.events {
		if e.UserID == userID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEventRepo) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Name)
	}
	return out
}

type memLocker struct {
	mu          sync.Mutex
	held        map[string]string
	TryLockFunc func(key string) error
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]string{}} }

func (m *memLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	if m.TryLockFunc != nil {
		if err := m.TryLockFunc(key); err != nil {
			return "", err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return "", domain.ErrLockNotAcquired
	}
	m.held[key] = key + "-token"
	return m.held[key], nil
}

func (m *memLocker) Unlock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

// plainHasher keeps tests fast; bcrypt is covered in infra/security.
type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "h:" + pw, nil }
func (plainHasher) Verify(hash, pw string) bool    { return hash == "h:"+pw }

// syncSubmitter runs tasks inline so analytics writes are visible immediately.
type syncSubmitter struct {
	SubmitFunc func(task worker.Task) error
}

func (s syncSubmitter) Submit(task worker.Task) error {
	if s.SubmitFunc != nil {
		return s.SubmitFunc(task)
	}
	return task(context.Background())
}

type emitted struct {
	Name   string
	UserID string
	Props  map[string]any
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recordingEmitter) Emit(_ context.Context, name, userID string, _ model.Locale, props map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{Name: name, UserID: userID, Props: props})
}

func (r *recordingEmitter) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

type activatorFunc func(ctx context.Context, userID string, plan model.Plan, at time.Time) (*model.Subscription, error)

func (f activatorFunc) Activate(ctx context.Context, userID string, plan model.Plan, at time.Time) (*model.Subscription, error) {
	return f(ctx, userID, plan, at)
}
