package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
)

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", hash)

	require.NoError(t, h.Verify(hash, "s3cret"))
	require.ErrorIs(t, h.Verify(hash, "wrong"), ErrPasswordMismatch)
	require.ErrorIs(t, h.Verify("not-a-hash", "s3cret"), ErrPasswordMismatch)

	_, err = h.Hash(strings.Repeat("x", MaxPasswordBytes+1))
	require.ErrorIs(t, err, ErrPasswordTooLong)

	require.NotPanics(t, func() { h.VerifyDummy("anything") })
}

func TestNewBcryptHasher_CostFallback(t *testing.T) {
	require.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	require.Equal(t, bcrypt.MinCost, NewBcryptHasher(bcrypt.MinCost).cost)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := UserFromContext(r.Context()); u != nil {
			_, _ = w.Write([]byte(u.Username))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	})
}

func TestLoadSession(t *testing.T) {
	store := new(MockSessionStore)
	alice := &domain.Session{Token: "tok-a", User: &domain.SessionUser{Username: "alice", AccessControl: domain.AccessAdmin}}
	store.On("Get", mock.Anything, "tok-a").Return(alice, nil)
	store.On("Get", mock.Anything, "stale").Return(nil, domain.ErrSessionNotFound)

	h := LoadSession(store, "sid", zerolog.Nop())(okHandler())

	t.Run("valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "tok-a"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, "alice", rec.Body.String())
	})

	t.Run("stale cookie cleared", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "stale"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, "anonymous", rec.Body.String())
		require.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
	})

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, "anonymous", rec.Body.String())
	})

	store.AssertExpectations(t)
}

func TestRequireLoginAndCapability(t *testing.T) {
	h := RequireLogin(RequireCapability(ManageUsers)(okHandler()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/access/users", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, LoginPath, rec.Header().Get("Location"))

	asUser := func(access domain.AccessControl) *http.Request {
		s := &domain.Session{User: &domain.SessionUser{Username: "u", AccessControl: access}}
		req := httptest.NewRequest(http.MethodGet, "/access/users", nil)
		return req.WithContext(WithSession(req.Context(), s))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, asUser(domain.AccessUser))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, asUser(domain.AccessAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u", rec.Body.String())
}
