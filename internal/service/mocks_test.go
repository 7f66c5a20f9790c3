package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/auth"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	listCalls int
	createErr error
	getErr    error
	updateErr error
	deleteErr error
	listErr   error
	listGate  chan struct{} // when set, ListDirectory blocks until it is closed
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]*domain.User),
	}
}

// seed stores a user whose password hash is produced by fakeHasher.
func (m *MockUserRepository) seed(username string, access domain.AccessControl, name, password string) {
	hash, _ := fakeHasher{}.Hash(password)
	m.users[username] = domain.NewUser(username, access, name, hash)
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.users[user.Username]; exists {
		return domain.ErrUserAlreadyExists
	}
	u := *user
	m.users[user.Username] = &u
	return nil
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, exists := m.users[username]
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	u, exists := m.users[user.Username]
	if !exists {
		return domain.ErrUserNotFound
	}
	u.AccessControl = user.AccessControl
	u.Name = user.Name
	u.PasswordHash = user.PasswordHash
	return nil
}

func (m *MockUserRepository) DeleteByUsername(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	if _, exists := m.users[username]; !exists {
		return false, nil
	}
	delete(m.users, username)
	return true, nil
}

func (m *MockUserRepository) ListDirectory(ctx context.Context) ([]domain.DirectoryEntry, error) {
	m.mu.Lock()
	m.listCalls++
	gate := m.listGate
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]domain.DirectoryEntry, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, u.DirectoryEntry())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return false, m.getErr
	}
	_, exists := m.users[username]
	return exists, nil
}

func (m *MockUserRepository) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

// fakeHasher is a reversible stand-in for bcrypt that keeps tests fast.
type fakeHasher struct {
	dummyCalls *int
}

func (fakeHasher) Hash(password string) (string, error) {
	if len(password) > auth.MaxPasswordBytes {
		return "", auth.ErrPasswordTooLong
	}
	return "hashed:" + password, nil
}

func (fakeHasher) Verify(hash, password string) error {
	if strings.TrimPrefix(hash, "hashed:") != password {
		return auth.ErrPasswordMismatch
	}
	return nil
}

func (h fakeHasher) VerifyDummy(password string) {
	if h.dummyCalls != nil {
		*h.dummyCalls++
	}
}

var _ auth.PasswordHasher = fakeHasher{}

// clockCache is a repository.Cache whose expiry follows a test-controlled clock.
type clockCache struct {
	mu      sync.Mutex
	now     *time.Time
	items   map[string][]byte
	expires map[string]time.Time
}

func newClockCache(now *time.Time) *clockCache {
	return &clockCache{
		now:     now,
		items:   make(map[string][]byte),
		expires: make(map[string]time.Time),
	}
}

func (c *clockCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.items[key]
	if !ok {
		return nil, repository.ErrCacheMiss
	}
	if at, ok := c.expires[key]; ok && c.now.After(at) {
		delete(c.items, key)
		delete(c.expires, key)
		return nil, repository.ErrCacheMiss
	}
	return value, nil
}

func (c *clockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = value
	delete(c.expires, key)
	if ttl > 0 {
		c.expires[key] = c.now.Add(ttl)
	}
	return nil
}

func (c *clockCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	delete(c.expires, key)
	return nil
}

func (c *clockCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; !ok {
		return nil
	}
	delete(c.expires, key)
	if ttl > 0 {
		c.expires[key] = c.now.Add(ttl)
	}
	return nil
}

func (c *clockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
