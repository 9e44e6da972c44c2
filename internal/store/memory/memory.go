// Package memory is the in-process store adapter, used for development and
// tests. It derives tenant collection names exactly like the mongo adapter
// so tenant isolation behaves the same in both.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tenkit/tenkit/internal/store/core"
	"github.com/tenkit/tenkit/internal/tenant"
)

type Store struct {
	mu sync.RWMutex

	accounts map[string]*core.Account
	users    map[string]*core.User
	appIDs   map[string]*core.ApplicationID // keyed by public identifier

	// tenant-scoped, outer key is the derived collection name
	apps          map[string]map[string]*core.Application // -> ApplicationIDID -> app
	grants        map[string]map[string]*core.AccessGrant // -> ApplicationIDID -> grant
	schemas       map[string][]*core.Schema
	notifications map[string][]*core.Notification

	// token kind -> token value -> token
	tokens map[string]map[string]*core.Token
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:      map[string]*core.Account{},
		users:         map[string]*core.User{},
		appIDs:        map[string]*core.ApplicationID{},
		apps:          map[string]map[string]*core.Application{},
		grants:        map[string]map[string]*core.AccessGrant{},
		schemas:       map[string][]*core.Schema{},
		notifications: map[string][]*core.Notification{},
		tokens:        map[string]map[string]*core.Token{},
	}
}

func (s *Store) Ping(ctx context.Context) error  { return nil }
func (s *Store) Close(ctx context.Context) error { return nil }

// ─── accounts / users ───

func (s *Store) CreateAccount(ctx context.Context, a *core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if _, ok := s.accounts[a.ID]; ok {
		return core.ErrConflict
	}
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return a, nil
}

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if _, ok := s.users[u.ID]; ok {
		return core.ErrConflict
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByUniqueKey(ctx context.Context, key string) (*core.User, error) {
	if key == "" {
		return nil, core.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.UniqueKey == key {
			return u, nil
		}
	}
	return nil, core.ErrNotFound
}

// ─── client registry ───

func (s *Store) CreateApplicationID(ctx context.Context, a *core.ApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AccountID == "" {
		if acc := tenant.Current(ctx); acc != nil {
			a.AccountID = acc.ID
		}
	}
	if _, ok := s.appIDs[a.Identifier]; ok {
		return core.ErrConflict
	}
	s.appIDs[a.Identifier] = a
	return nil
}

func (s *Store) GetApplicationID(ctx context.Context, identifier string) (*core.ApplicationID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appIDs[identifier]
	if !ok {
		return nil, core.ErrNotFound
	}
	return a, nil
}

func (s *Store) CreateApplication(ctx context.Context, acc *core.Account, app *core.Application) error {
	col := tenant.CollectionNameFromContext(ctx, acc, "applications")
	s.mu.Lock()
	defer s.mu.Unlock()
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	m := s.apps[col]
	if m == nil {
		m = map[string]*core.Application{}
		s.apps[col] = m
	}
	if _, ok := m[app.ApplicationIDID]; ok {
		return core.ErrConflict
	}
	m[app.ApplicationIDID] = app
	return nil
}

func (s *Store) GetApplication(ctx context.Context, acc *core.Account, applicationIDID string) (*core.Application, error) {
	col := tenant.CollectionNameFromContext(ctx, acc, "applications")
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[col][applicationIDID]
	if !ok {
		return nil, core.ErrNotFound
	}
	return app, nil
}

// ─── access grants ───

func (s *Store) UpsertAccessGrant(ctx context.Context, acc *core.Account, applicationIDID, scope string) (*core.AccessGrant, error) {
	col := tenant.CollectionNameFromContext(ctx, acc, "oauth_access_grants")
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.grants[col]
	if m == nil {
		m = map[string]*core.AccessGrant{}
		s.grants[col] = m
	}
	now := nowUTC()
	g, ok := m[applicationIDID]
	if !ok {
		g = &core.AccessGrant{
			ID:            uuid.NewString(),
			ApplicationID: applicationIDID,
			CreatedAt:     now,
		}
		m[applicationIDID] = g
	}
	g.Scope = scope
	g.UpdatedAt = now
	return g, nil
}

// ─── tokens ───

func (s *Store) CreateToken(ctx context.Context, kind string, t *core.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m := s.tokens[kind]
	if m == nil {
		m = map[string]*core.Token{}
		s.tokens[kind] = m
	}
	if _, ok := m[t.Token]; ok {
		return core.ErrConflict
	}
	m[t.Token] = t
	return nil
}

func (s *Store) FindToken(ctx context.Context, kind, value string) (*core.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[kind][value]
	if !ok {
		return nil, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) ConsumeToken(ctx context.Context, kind, value string) (*core.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[kind][value]
	if !ok {
		return nil, core.ErrNotFound
	}
	delete(s.tokens[kind], value)
	return t, nil
}

func (s *Store) FindTokenByApplication(ctx context.Context, kind, accountID, applicationIDID string) (*core.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tokens[kind] {
		if t.AccountID == accountID && t.ApplicationID == applicationIDID {
			return t, nil
		}
	}
	return nil, core.ErrNotFound
}

// ─── schemas ───

func (s *Store) CreateSchema(ctx context.Context, sch *core.Schema) error {
	col := tenant.CollectionNameFromContext(ctx, nil, "schemas")
	s.mu.Lock()
	defer s.mu.Unlock()
	if sch.ID == "" {
		sch.ID = uuid.NewString()
	}
	s.schemas[col] = append(s.schemas[col], sch)
	return nil
}

func (s *Store) FindSchema(ctx context.Context, namespace, uri string) (*core.Schema, error) {
	col := tenant.CollectionNameFromContext(ctx, nil, "schemas")
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sch := range s.schemas[col] {
		if sch.Namespace == namespace && sch.URI == uri {
			return sch, nil
		}
	}
	return nil, core.ErrNotFound
}

// ─── notifications ───

func (s *Store) CreateNotification(ctx context.Context, n *core.Notification) error {
	col := tenant.CollectionNameFromContext(ctx, nil, "notifications")
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = nowUTC()
	}
	s.notifications[col] = append(s.notifications[col], n)
	return nil
}

// Notifications returns the recorded notifications for the given tenant
// collection (nil account means the global collection). Test helper.
func (s *Store) Notifications(acc *core.Account) []*core.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col := tenant.CollectionName(acc, "notifications")
	out := make([]*core.Notification, len(s.notifications[col]))
	copy(out, s.notifications[col])
	return out
}

// TokenCount reports how many tokens of the given kind exist. Test helper.
func (s *Store) TokenCount(kind string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens[kind])
}

func nowUTC() time.Time { return time.Now().UTC() }
