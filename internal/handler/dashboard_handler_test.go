package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/auth"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/cache/memory"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/config"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/lock"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/metrics"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository/sqlite"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/service"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/tabular"
)

const testCookie = "sentimen_session"

// keywordClassifier labels texts containing "bagus" as positive.
type keywordClassifier struct{}

func (keywordClassifier) Predict(ctx context.Context, texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "negative"
		if strings.Contains(t, "bagus") {
			out[i] = "positive"
		}
	}
	return out, nil
}

func (keywordClassifier) Classes() []string { return []string{"negative", "positive"} }

type fixture struct {
	t      *testing.T
	router http.Handler
	db     *sqlite.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	db, err := sqlite.NewDB(ctx, config.SQLiteConfig{Path: ":memory:", BusyTimeout: 1000}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(ctx) })
	require.NoError(t, db.EnsureSchema(ctx))

	m := metrics.New()
	cache := memory.NewCache()
	t.Cleanup(cache.Stop)
	locker := lock.NewMemoryLocker()
	t.Cleanup(locker.Stop)

	directory := service.NewDirectoryService(db.Users(), nil, "directory", m, logger)
	users := service.NewUserService(service.UserServiceConfig{
		UserRepo:  db.Users(),
		Hasher:    auth.NewBcryptHasher(bcrypt.MinCost),
		Locker:    locker,
		Directory: directory,
		Metrics:   m,
	}, logger)
	sessions := service.NewSessionService(cache, users, db.Users(), time.Hour, logger)

	dataset := &tabular.Table{
		Header: []string{"sentiment_label", "text"},
		Rows:   [][]string{{"positif", "motor bagus"}, {"negatif", "rangka kuning"}},
	}
	reports := service.NewReportService(func(context.Context) (*tabular.Table, error) {
		return dataset, nil
	}, config.ReportConfig{
		Title:       "Analisis Sentimen Komentar Youtube Honda Menggunakan Metode Naive Bayes",
		PreviewRows: 10,
		TopWords:    10,
		Evaluation:  config.EvaluationConfig{Method: "Complement Naive Bayes", Accuracy: 84.82},
	}, logger)

	dashboard, err := NewDashboardHandler(DashboardConfig{
		SessionService:    sessions,
		UserService:       users,
		DirectoryService:  directory,
		PredictionService: service.NewPredictionService(keywordClassifier{}, m, logger),
		ReportService:     reports,
		Cookie:            CookieConfig{Name: testCookie, TTL: time.Hour},
		MaxUploadSize:     1 << 20,
		Logger:            logger,
	})
	require.NoError(t, err)

	_, err = users.AddUser(ctx, service.SystemActor, service.AddUserInput{
		Username: "admin", AccessControl: "Admin", Name: "Administrator", Password: "admin123",
	})
	require.NoError(t, err)
	_, err = users.AddUser(ctx, service.SystemActor, service.AddUserInput{
		Username: "alice", AccessControl: "User", Name: "Alice", Password: "alice123",
	})
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		Dashboard:  dashboard,
		Sessions:   sessions,
		CookieName: testCookie,
		Store:      db,
		Metrics:    m,
		Logger:     logger,
	})
	return &fixture{t: t, router: router, db: db}
}

func (f *fixture) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, path, nil), cookie)
}

func (f *fixture) post(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req, cookie)
}

func (f *fixture) login(username, password string) *http.Cookie {
	f.t.Helper()
	rec := f.post("/login", url.Values{"username": {username}, "password": {password}}, nil)
	require.Equal(f.t, http.StatusSeeOther, rec.Code)
	require.Equal(f.t, auth.HomePath, rec.Header().Get("Location"))

	for _, c := range rec.Result().Cookies() {
		if c.Name == testCookie {
			require.True(f.t, c.HttpOnly)
			require.Equal(f.t, http.SameSiteStrictMode, c.SameSite)
			return c
		}
	}
	f.t.Fatal("login did not set a session cookie")
	return nil
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/about", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, auth.LoginPath, rec.Header().Get("Location"))

	rec = f.get("/login", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Selamat Datang!")

	rec = f.post("/login", url.Values{"username": {"admin"}, "password": {"wrong"}}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), msgBadCredentials)
	require.Empty(t, rec.Result().Cookies())

	rec = f.post("/login", url.Values{"username": {"nobody"}, "password": {"wrong"}}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), msgBadCredentials)

	rec = f.post("/login", url.Values{"username": {"admin"}}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), msgFillAllFields)

	cookie := f.login("admin", "admin123")

	rec = f.get("/login", cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.get("/about", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Selamat datang, Admin Administrator")
	require.Contains(t, body, "Menu Admin")
	require.Contains(t, body, "Analisis Sentimen Komentar Youtube Honda")
	require.Contains(t, body, "84.82%")

	rec = f.post("/logout", nil, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, auth.LoginPath, rec.Header().Get("Location"))

	rec = f.get("/about", cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestAdminAccessManagement(t *testing.T) {
	f := newFixture(t)
	cookie := f.login("admin", "admin123")

	rec := f.get("/access", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Form Add User")
	require.Contains(t, rec.Body.String(), "<td>alice</td>")

	add := url.Values{"username": {"bob"}, "access_control": {"User"}, "name": {"Bob"}, "password": {"pw"}}
	rec = f.post("/access/users", add, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/access?form=add", rec.Header().Get("Location"))

	rec = f.get("/access?form=add", cookie)
	require.Contains(t, rec.Body.String(), "User Bob telah berhasil ditambahkan")
	require.Contains(t, rec.Body.String(), "<td>bob</td>")

	rec = f.get("/access?form=add", cookie)
	require.NotContains(t, rec.Body.String(), "telah berhasil ditambahkan", "flash shown once")

	rec = f.post("/access/users", add, cookie)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), msgUserExists)

	rec = f.post("/access/users", url.Values{"username": {"carol"}, "access_control": {"User"}}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), msgFillAllFields)
	require.Contains(t, rec.Body.String(), `value="carol"`)

	rec = f.post("/access/users/edit", url.Values{
		"username": {"bob"}, "access_control": {"Admin"}, "name": {"Robert"}, "password": {"pw2"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = f.get("/access?form=edit", cookie)
	require.Contains(t, rec.Body.String(), "User bob telah berhasil diperbarui")
	require.Contains(t, rec.Body.String(), "<td>Robert</td>")

	rec = f.post("/access/users/delete", url.Values{"username": {""}}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), msgPickUsername)

	rec = f.post("/access/users/delete", url.Values{"username": {"bob"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = f.get("/access?form=delete", cookie)
	require.Contains(t, rec.Body.String(), "User bob telah berhasil dihapus")
	require.NotContains(t, rec.Body.String(), "<td>bob</td>")

	// Deleting again is not an error.
	rec = f.post("/access/users/delete", url.Values{"username": {"bob"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestUserSelfService(t *testing.T) {
	f := newFixture(t)
	cookie := f.login("alice", "alice123")

	rec := f.get("/access", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Menu User")
	require.Contains(t, rec.Body.String(), `action="/access/profile"`)
	require.NotContains(t, rec.Body.String(), "Users Data")

	rec = f.post("/access/users", url.Values{
		"username": {"mallory"}, "access_control": {"Admin"}, "name": {"M"}, "password": {"x"},
	}, cookie)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.post("/access/profile", url.Values{"name": {"Alice B"}, "password": {""}}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), msgFillAllFields)

	rec = f.post("/access/profile", url.Values{"name": {"Alice B"}, "password": {"newpass"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.get("/about", cookie)
	require.Contains(t, rec.Body.String(), "Selamat datang, User Alice B")

	f.login("alice", "newpass")
}

func TestSessionFollowsUserRecord(t *testing.T) {
	f := newFixture(t)
	admin := f.login("admin", "admin123")

	rec := f.post("/access/users", url.Values{
		"username": {"bob"}, "access_control": {"Admin"}, "name": {"Bob"}, "password": {"bob123"},
	}, admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	bob := f.login("bob", "bob123")

	rec = f.get("/about", bob)
	require.Contains(t, rec.Body.String(), "Selamat datang, Admin Bob")

	rec = f.post("/access/users/edit", url.Values{
		"username": {"bob"}, "access_control": {"User"}, "name": {"Bobby"}, "password": {"bob123"},
	}, admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	// The open session picks up the demotion on its next request.
	rec = f.get("/about", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Selamat datang, User Bobby")
	require.NotContains(t, rec.Body.String(), "Menu Admin")

	rec = f.post("/access/users", url.Values{
		"username": {"eve1"}, "access_control": {"Admin"}, "name": {"Eve"}, "password": {"x"},
	}, bob)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.post("/access/users/delete", url.Values{"username": {"bob"}}, admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	// A removed user's session is gone.
	rec = f.post("/access/users", url.Values{
		"username": {"eve2"}, "access_control": {"Admin"}, "name": {"Eve"}, "password": {"x"},
	}, bob)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, auth.LoginPath, rec.Header().Get("Location"))

	rec = f.get("/about", bob)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, auth.LoginPath, rec.Header().Get("Location"))

	rec = f.get("/access", admin)
	require.NotContains(t, rec.Body.String(), "<td>eve1</td>")
	require.NotContains(t, rec.Body.String(), "<td>eve2</td>")
	require.NotContains(t, rec.Body.String(), "<td>bob</td>")
}

func TestPasswordTooLong(t *testing.T) {
	f := newFixture(t)
	admin := f.login("admin", "admin123")
	long := strings.Repeat("a", 73)

	rec := f.post("/access/users", url.Values{
		"username": {"bob"}, "access_control": {"User"}, "name": {"Bob"}, "password": {long},
	}, admin)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), msgPasswordTooLong)
	require.NotContains(t, rec.Body.String(), msgFillAllFields)

	alice := f.login("alice", "alice123")
	rec = f.post("/access/profile", url.Values{"name": {"Alice"}, "password": {long}}, alice)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), msgPasswordTooLong)

	f.login("alice", "alice123")
}

func TestAddUserTrimsUsername(t *testing.T) {
	f := newFixture(t)
	admin := f.login("admin", "admin123")

	rec := f.post("/access/users", url.Values{
		"username": {"alice "}, "access_control": {"User"}, "name": {"Alice 2"}, "password": {"pw"},
	}, admin)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), msgUserExists)

	rec = f.post("/access/users", url.Values{
		"username": {"  bob\t"}, "access_control": {"User"}, "name": {"Bob"}, "password": {"pw"},
	}, admin)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	f.login("bob", "pw")
}

func TestPredictText(t *testing.T) {
	f := newFixture(t)
	cookie := f.login("alice", "alice123")

	rec := f.post("/predict/text", url.Values{"text": {"motor ini bagus"}}, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Predicted Sentiment: <strong>positive</strong>")
	require.Contains(t, rec.Body.String(), "Prediction time taken:")

	rec = f.post("/predict/text", url.Values{"text": {""}}, cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), msgFillText)
}

func upload(t *testing.T, name, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/predict/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestPredictFile(t *testing.T) {
	f := newFixture(t)
	cookie := f.login("alice", "alice123")

	rec := f.do(upload(t, "comments.csv", "id,text\n1,bagus sekali\n2,jelek\n3,kurang\n"), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "<td>bagus sekali</td><td>positive</td>")
	require.Contains(t, body, "<td>negative</td><td>2</td><td>66.67%</td>")

	rec = f.do(upload(t, "comments.csv", "id,comment\n1,bagus\n"), cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "File harus memiliki kolom")

	rec = f.do(upload(t, "comments.txt", "text\nbagus\n"), cookie)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), msgFileFormat)
}

func TestHealthAndNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get(auth.RequestIDHeader))

	rec = f.get("/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), msgNotFound)
}

func TestStoreUnavailable(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Close(context.Background()))

	rec := f.post("/login", url.Values{"username": {"admin"}, "password": {"admin123"}}, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), msgStoreUnavailable)

	rec = f.get("/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
