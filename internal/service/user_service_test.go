package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/lock"
)

var (
	admin   = domain.SessionUser{Username: "admin", AccessControl: domain.AccessAdmin, Name: "Administrator"}
	regular = domain.SessionUser{Username: "alice", AccessControl: domain.AccessUser, Name: "Alice"}
)

// countingInvalidator records directory invalidations.
type countingInvalidator struct {
	mu    sync.Mutex
	count int
	err   error
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return c.err
}

func newTestUserService(repo *MockUserRepository, dir DirectoryInvalidator) *UserService {
	return NewUserService(UserServiceConfig{
		UserRepo:  repo,
		Hasher:    fakeHasher{},
		Locker:    lock.NewNoOpLocker(),
		Directory: dir,
	}, zerolog.Nop())
}

func TestUserService_Authenticate(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		password  string
		setupRepo func(*MockUserRepository)
		wantErr   error
		wantDummy int
	}{
		{
			name:     "valid credentials",
			username: "alice",
			password: "secret",
			setupRepo: func(m *MockUserRepository) {
				m.seed("alice", domain.AccessUser, "Alice", "secret")
			},
		},
		{
			name:     "wrong password",
			username: "alice",
			password: "nope",
			setupRepo: func(m *MockUserRepository) {
				m.seed("alice", domain.AccessUser, "Alice", "secret")
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:      "unknown user runs dummy verify",
			username:  "ghost",
			password:  "secret",
			setupRepo: func(m *MockUserRepository) {},
			wantErr:   ErrInvalidCredentials,
			wantDummy: 1,
		},
		{
			name:      "empty password",
			username:  "alice",
			password:  "",
			setupRepo: func(m *MockUserRepository) {},
			wantErr:   ErrValidation,
		},
		{
			name:     "store down",
			username: "alice",
			password: "secret",
			setupRepo: func(m *MockUserRepository) {
				m.getErr = errors.New("connection refused")
			},
			wantErr: ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepository()
			tt.setupRepo(repo)

			var dummy int
			svc := NewUserService(UserServiceConfig{
				UserRepo: repo,
				Hasher:   fakeHasher{dummyCalls: &dummy},
			}, zerolog.Nop())

			user, err := svc.Authenticate(context.Background(), tt.username, tt.password)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				if user != nil {
					t.Errorf("expected no user, got %+v", user)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if user.Username != tt.username {
					t.Errorf("expected username %s, got %s", tt.username, user.Username)
				}
			}
			if dummy != tt.wantDummy {
				t.Errorf("expected %d dummy verifications, got %d", tt.wantDummy, dummy)
			}
		})
	}
}

func TestUserService_AddUser(t *testing.T) {
	tests := []struct {
		name      string
		actor     domain.SessionUser
		input     AddUserInput
		setupRepo func(*MockUserRepository)
		wantErr   error
	}{
		{
			name:  "valid user",
			actor: admin,
			input: AddUserInput{Username: "bob", AccessControl: "User", Name: "Bob", Password: "pw"},
		},
		{
			name:  "access control is case-insensitive",
			actor: admin,
			input: AddUserInput{Username: "carol", AccessControl: "admin", Name: "Carol", Password: "pw"},
		},
		{
			name:    "missing name",
			actor:   admin,
			input:   AddUserInput{Username: "bob", AccessControl: "User", Password: "pw"},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown access control",
			actor:   admin,
			input:   AddUserInput{Username: "bob", AccessControl: "Root", Name: "Bob", Password: "pw"},
			wantErr: ErrValidation,
		},
		{
			name:    "password too long",
			actor:   admin,
			input:   AddUserInput{Username: "bob", AccessControl: "User", Name: "Bob", Password: strings.Repeat("x", 73)},
			wantErr: ErrPasswordTooLong,
		},
		{
			name:  "duplicate username",
			actor: admin,
			input: AddUserInput{Username: "bob", AccessControl: "User", Name: "Bob", Password: "pw"},
			setupRepo: func(m *MockUserRepository) {
				m.seed("bob", domain.AccessUser, "Bob", "old")
			},
			wantErr: ErrUserAlreadyExists,
		},
		{
			name:    "regular user denied",
			actor:   regular,
			input:   AddUserInput{Username: "bob", AccessControl: "User", Name: "Bob", Password: "pw"},
			wantErr: ErrAccessDenied,
		},
		{
			name:  "store down",
			actor: admin,
			input: AddUserInput{Username: "bob", AccessControl: "User", Name: "Bob", Password: "pw"},
			setupRepo: func(m *MockUserRepository) {
				m.createErr = domain.Unavailable("insert", errors.New("timeout"))
			},
			wantErr: ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepository()
			if tt.setupRepo != nil {
				tt.setupRepo(repo)
			}
			dir := &countingInvalidator{}
			svc := newTestUserService(repo, dir)

			out, err := svc.AddUser(context.Background(), tt.actor, tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				if dir.count != 0 {
					t.Errorf("directory invalidated on failure")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.User.Username != tt.input.Username {
				t.Errorf("expected username %s, got %s", tt.input.Username, out.User.Username)
			}
			stored := repo.users[tt.input.Username]
			if stored.PasswordHash == tt.input.Password {
				t.Error("password stored in plaintext")
			}
			if !stored.AccessControl.IsValid() {
				t.Errorf("stored non-canonical access control %q", stored.AccessControl)
			}
			if dir.count != 1 {
				t.Errorf("expected 1 invalidation, got %d", dir.count)
			}
		})
	}
}

func TestUserService_AddUser_TrimsUsername(t *testing.T) {
	repo := NewMockUserRepository()
	repo.seed("bob", domain.AccessUser, "Bob", "pw")
	svc := newTestUserService(repo, nil)
	ctx := context.Background()

	_, err := svc.AddUser(ctx, admin, AddUserInput{Username: "bob ", AccessControl: "User", Name: "Bob", Password: "pw"})
	require.ErrorIs(t, err, ErrUserAlreadyExists)

	out, err := svc.AddUser(ctx, admin, AddUserInput{Username: "\tcarol  ", AccessControl: "User", Name: "Carol", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "carol", out.User.Username)
	require.Contains(t, repo.users, "carol")
	require.Len(t, repo.users, 2)

	_, err = svc.AddUser(ctx, admin, AddUserInput{Username: "   ", AccessControl: "User", Name: "Blank", Password: "pw"})
	require.ErrorIs(t, err, ErrValidation)

	out2, err := svc.DeleteUser(ctx, admin, " carol ")
	require.NoError(t, err)
	require.True(t, out2.Deleted)
}

func TestUserService_PasswordTooLong(t *testing.T) {
	repo := NewMockUserRepository()
	repo.seed("bob", domain.AccessUser, "Bob", "pw")
	svc := newTestUserService(repo, nil)
	ctx := context.Background()
	long := strings.Repeat("x", 73)

	_, err := svc.EditUser(ctx, admin, EditUserInput{Username: "bob", AccessControl: "User", Name: "Bob", Password: long})
	require.ErrorIs(t, err, ErrPasswordTooLong)
	require.NotErrorIs(t, err, ErrValidation)

	_, err = svc.EditOwnProfile(ctx, domain.SessionUser{Username: "bob", AccessControl: domain.AccessUser}, EditProfileInput{Name: "Bob", Password: long})
	require.ErrorIs(t, err, ErrPasswordTooLong)

	require.ErrorIs(t, svc.SetPassword(ctx, SystemActor, "bob", long), ErrPasswordTooLong)
	require.Equal(t, "hashed:pw", repo.users["bob"].PasswordHash)
}

func TestUserService_DeleteUser(t *testing.T) {
	repo := NewMockUserRepository()
	repo.seed("bob", domain.AccessUser, "Bob", "pw")
	dir := &countingInvalidator{}
	svc := newTestUserService(repo, dir)
	ctx := context.Background()

	out, err := svc.DeleteUser(ctx, admin, "bob")
	require.NoError(t, err)
	require.True(t, out.Deleted)
	require.NotContains(t, repo.users, "bob")

	// A second delete of the same user is not an error.
	out, err = svc.DeleteUser(ctx, admin, "bob")
	require.NoError(t, err)
	require.False(t, out.Deleted)
	require.Equal(t, 2, dir.count)

	_, err = svc.DeleteUser(ctx, admin, "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.DeleteUser(ctx, regular, "admin")
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestUserService_EditUser(t *testing.T) {
	repo := NewMockUserRepository()
	repo.seed("bob", domain.AccessUser, "Bob", "pw")
	dir := &countingInvalidator{}
	svc := newTestUserService(repo, dir)
	ctx := context.Background()

	out, err := svc.EditUser(ctx, admin, EditUserInput{
		Username: "bob", AccessControl: "Admin", Name: "Robert", Password: "new",
	})
	require.NoError(t, err)
	require.Equal(t, domain.DirectoryEntry{Username: "bob", AccessControl: domain.AccessAdmin, Name: "Robert"}, out.User)

	_, err = svc.Authenticate(ctx, "bob", "new")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "bob", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.EditUser(ctx, admin, EditUserInput{
		Username: "ghost", AccessControl: "User", Name: "Ghost", Password: "x",
	})
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.EditUser(ctx, admin, EditUserInput{Username: "bob", AccessControl: "User", Name: "", Password: "x"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"name"}, verr.Fields)

	require.Equal(t, 1, dir.count)
}

func TestUserService_EditOwnProfile(t *testing.T) {
	repo := NewMockUserRepository()
	repo.seed("alice", domain.AccessUser, "Alice", "pw")
	repo.seed("admin", domain.AccessAdmin, "Administrator", "pw")
	svc := newTestUserService(repo, &countingInvalidator{})
	ctx := context.Background()

	out, err := svc.EditOwnProfile(ctx, regular, EditProfileInput{Name: "Alice B", Password: "pw2"})
	require.NoError(t, err)
	require.Equal(t, "Alice B", out.User.Name)
	require.Equal(t, domain.AccessUser, repo.users["alice"].AccessControl)
	require.Equal(t, domain.AccessAdmin, repo.users["admin"].AccessControl, "other users untouched")

	out, err = svc.EditOwnProfile(ctx, admin, EditProfileInput{Name: "Root", Password: "pw2"})
	require.NoError(t, err)
	require.Equal(t, domain.AccessAdmin, out.User.AccessControl)

	_, err = svc.EditOwnProfile(ctx, regular, EditProfileInput{Name: "Alice", Password: " "})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUserService_SetPassword(t *testing.T) {
	repo := NewMockUserRepository()
	repo.seed("bob", domain.AccessUser, "Bob", "pw")
	svc := newTestUserService(repo, nil)
	ctx := context.Background()

	require.NoError(t, svc.SetPassword(ctx, SystemActor, "bob", "rotated"))
	_, err := svc.Authenticate(ctx, "bob", "rotated")
	require.NoError(t, err)
	require.Equal(t, "Bob", repo.users["bob"].Name)

	require.ErrorIs(t, svc.SetPassword(ctx, SystemActor, "ghost", "x"), ErrUserNotFound)
}

func TestUserService_LockBusy(t *testing.T) {
	repo := NewMockUserRepository()
	locker := lock.NewMemoryLocker()
	defer locker.Stop()

	svc := NewUserService(UserServiceConfig{UserRepo: repo, Hasher: fakeHasher{}, Locker: locker}, zerolog.Nop())
	ctx := context.Background()

	ok, err := locker.Acquire(ctx, lock.Keys.User("bob"), userLockTTL)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.AddUser(ctx, admin, AddUserInput{Username: "bob", AccessControl: "User", Name: "Bob", Password: "pw"})
	require.ErrorIs(t, err, ErrUserBusy)
	require.NotContains(t, repo.users, "bob")

	_, err = locker.Release(ctx, lock.Keys.User("bob"))
	require.NoError(t, err)

	_, err = svc.AddUser(ctx, admin, AddUserInput{Username: "bob", AccessControl: "User", Name: "Bob", Password: "pw"})
	require.NoError(t, err)
}
