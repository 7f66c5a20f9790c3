// Package handler provides the HTTP handlers of the sentiment dashboard.
package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/auth"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/service"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/tabular"
)

//go:embed templates/*.html
var templateFS embed.FS

// User-facing messages.
const (
	msgFillAllFields      = "Harap isi semua field"
	msgPickUsername       = "Harap pilih username"
	msgBadCredentials     = "Username atau password salah. Silakan coba lagi."
	msgStoreUnavailable   = "Database sedang tidak tersedia, silakan coba lagi."
	msgModelUnavailable   = "Model belum tersedia, silakan coba lagi nanti."
	msgDatasetUnavailable = "Dataset tidak dapat dimuat."
	msgUserExists         = "Username sudah digunakan"
	msgUserNotFound       = "User tidak ditemukan"
	msgUserBusy           = "User sedang diubah, silakan coba lagi."
	msgPasswordTooLong    = "Password terlalu panjang (maksimal 72 byte)"
	msgAccessDenied       = "Anda tidak memiliki akses ke halaman ini."
	msgInternal           = "Terjadi kesalahan, silakan coba lagi."
	msgFillText           = "Harap isi teks"
	msgPickFile           = "Harap pilih file"
	msgFileFormat         = "Format file harus .xlsx atau .csv"
	msgFileUnreadable     = "File tidak dapat dibaca"
	msgFileTooLarge       = "Ukuran file melebihi batas"
	msgNoTextColumn       = "File harus memiliki kolom 'text'"
	msgNotFound           = "Halaman tidak ditemukan."
)

// piePalette colours the label distribution bars.
var piePalette = []string{"#be185d", "#500724"}

// DashboardHandler handles web dashboard requests.
type DashboardHandler struct {
	sessions    *service.SessionService
	users       *service.UserService
	directory   *service.DirectoryService
	predictions *service.PredictionService
	reports     *service.ReportService
	cookie      CookieConfig
	maxUpload   int64
	pages       map[string]*template.Template
	logger      zerolog.Logger
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// DashboardConfig contains configuration for the dashboard.
type DashboardConfig struct {
	SessionService    *service.SessionService
	UserService       *service.UserService
	DirectoryService  *service.DirectoryService
	PredictionService *service.PredictionService
	ReportService     *service.ReportService
	Cookie            CookieConfig
	MaxUploadSize     int64
	Logger            zerolog.Logger
}

// pageFiles lists every page; each is parsed together with the layout.
var pageFiles = []string{
	"login.html",
	"about.html",
	"predict_text.html",
	"predict_file.html",
	"access_admin.html",
	"access_self.html",
	"error.html",
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(cfg DashboardConfig) (*DashboardHandler, error) {
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, name := range pageFiles {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &DashboardHandler{
		sessions:    cfg.SessionService,
		users:       cfg.UserService,
		directory:   cfg.DirectoryService,
		predictions: cfg.PredictionService,
		reports:     cfg.ReportService,
		cookie:      cfg.Cookie,
		maxUpload:   cfg.MaxUploadSize,
		pages:       pages,
		logger:      cfg.Logger.With().Str("handler", "dashboard").Logger(),
	}, nil
}

var templateFuncs = template.FuncMap{
	"seconds": func(d time.Duration) string {
		return strconv.FormatFloat(d.Seconds(), 'f', 2, 64)
	},
	"percent": func(f float64) string {
		return strconv.FormatFloat(f, 'f', 2, 64)
	},
	"color": func(i int) string {
		return piePalette[i%len(piePalette)]
	},
	"barWidth": func(words []service.WordCount, n int) string {
		if len(words) == 0 || words[0].Count == 0 {
			return "0"
		}
		return strconv.FormatFloat(float64(n)*100/float64(words[0].Count), 'f', 1, 64)
	},
}

// =============================================================================
// Template Data Structs
// =============================================================================

// MenuItem is one entry of the navigation menu.
type MenuItem struct {
	Label  string
	Path   string
	Active bool
}

// PageData contains common page data.
type PageData struct {
	Title     string
	User      *domain.SessionUser
	MenuTitle string
	Menu      []MenuItem
	Flash     *domain.Flash
	Error     string
}

// LoginPageData contains login page data.
type LoginPageData struct {
	PageData
	Username string
}

// AboutPageData contains the report screen data.
type AboutPageData struct {
	PageData
	Report *service.Report
}

// PredictTextPageData contains the text prediction screen data.
type PredictTextPageData struct {
	PageData
	Text   string
	Result *service.PredictTextOutput
}

// PredictedRow pairs an uploaded text with its label.
type PredictedRow struct {
	Text  string
	Label string
}

// PredictFilePageData contains the file prediction screen data.
type PredictFilePageData struct {
	PageData
	FileName string
	Uploaded *tabular.Table
	Rows     []PredictedRow
	Result   *service.PredictTableOutput
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers dashboard routes. The session loader must already
// be installed on r.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, auth.HomePath, http.StatusSeeOther)
		})
		r.Get("/about", h.handleAbout)
		r.Get("/predict/text", h.handlePredictTextPage)
		r.Post("/predict/text", h.handlePredictText)
		r.Get("/predict/file", h.handlePredictFilePage)
		r.Post("/predict/file", h.handlePredictFile)

		r.Get("/access", h.handleAccess)
		r.Post("/access/profile", h.handleEditProfile)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireCapability(auth.ManageUsers))

			r.Post("/access/users", h.handleAddUser)
			r.Post("/access/users/delete", h.handleDeleteUser)
			r.Post("/access/users/edit", h.handleEditUser)
		})
	})
}

// =============================================================================
// Authentication Handlers
// =============================================================================

func (h *DashboardHandler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if auth.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, auth.HomePath, http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "login.html", LoginPageData{PageData: PageData{Title: "Login"}})
}

func (h *DashboardHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, http.StatusBadRequest, "", msgFillAllFields)
		return
	}

	username := r.PostFormValue("username")
	output, err := h.sessions.Login(r.Context(), service.LoginInput{
		Username: username,
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		status, message := errorMessage(err)
		if errors.Is(err, service.ErrValidation) {
			message = msgFillAllFields
		}
		h.logger.Debug().Err(err).Str("username", username).Msg("login failed")
		h.renderLoginError(w, status, username, message)
		return
	}

	// A fresh token replaces any session the browser already had.
	if old := h.sessionToken(r); old != "" {
		_ = h.sessions.Logout(r.Context(), old)
	}
	h.setSessionCookie(w, output.Session.Token)
	http.Redirect(w, r, auth.HomePath, http.StatusSeeOther)
}

func (h *DashboardHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := h.sessionToken(r); token != "" {
		if err := h.sessions.Logout(r.Context(), token); err != nil {
			h.logger.Warn().Err(err).Msg("failed to delete session")
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

// =============================================================================
// About Handler
// =============================================================================

func (h *DashboardHandler) handleAbout(w http.ResponseWriter, r *http.Request) {
	data := AboutPageData{PageData: h.page(r, "About", "/about")}

	report, err := h.reports.Report(r.Context())
	if err != nil {
		data.Error = msgDatasetUnavailable
		h.render(w, http.StatusInternalServerError, "about.html", data)
		return
	}

	data.Report = report
	h.render(w, http.StatusOK, "about.html", data)
}

// =============================================================================
// Prediction Handlers
// =============================================================================

func (h *DashboardHandler) handlePredictTextPage(w http.ResponseWriter, r *http.Request) {
	data := PredictTextPageData{PageData: h.page(r, "Predict Text", "/predict/text")}
	h.render(w, http.StatusOK, "predict_text.html", data)
}

func (h *DashboardHandler) handlePredictText(w http.ResponseWriter, r *http.Request) {
	data := PredictTextPageData{PageData: h.page(r, "Predict Text", "/predict/text")}
	if err := r.ParseForm(); err != nil {
		data.Error = msgFillText
		h.render(w, http.StatusBadRequest, "predict_text.html", data)
		return
	}

	data.Text = r.PostFormValue("text")
	result, err := h.predictions.PredictText(r.Context(), data.Text)
	if err != nil {
		status, message := errorMessage(err)
		if errors.Is(err, service.ErrValidation) {
			message = msgFillText
		}
		data.Error = message
		h.render(w, status, "predict_text.html", data)
		return
	}

	data.Result = result
	h.render(w, http.StatusOK, "predict_text.html", data)
}

func (h *DashboardHandler) handlePredictFilePage(w http.ResponseWriter, r *http.Request) {
	data := PredictFilePageData{PageData: h.page(r, "Predict DataFrame", "/predict/file")}
	h.render(w, http.StatusOK, "predict_file.html", data)
}

func (h *DashboardHandler) handlePredictFile(w http.ResponseWriter, r *http.Request) {
	data := PredictFilePageData{PageData: h.page(r, "Predict DataFrame", "/predict/file")}
	fail := func(status int, message string) {
		data.Error = message
		h.render(w, status, "predict_file.html", data)
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(http.StatusRequestEntityTooLarge, msgFileTooLarge)
			return
		}
		fail(http.StatusBadRequest, msgPickFile)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(http.StatusBadRequest, msgPickFile)
		return
	}
	defer file.Close()

	data.FileName = header.Filename
	table, err := tabular.Read(header.Filename, file)
	if err != nil {
		h.logger.Debug().Err(err).Str("file", header.Filename).Msg("failed to read upload")
		if errors.Is(err, tabular.ErrUnsupportedFormat) {
			fail(http.StatusBadRequest, msgFileFormat)
			return
		}
		fail(http.StatusBadRequest, msgFileUnreadable)
		return
	}
	data.Uploaded = table

	result, err := h.predictions.PredictTable(r.Context(), table)
	if err != nil {
		status, message := errorMessage(err)
		if errors.Is(err, service.ErrValidation) {
			message = msgNoTextColumn
		}
		fail(status, message)
		return
	}

	data.Result = result
	data.Rows = make([]PredictedRow, len(result.Labels))
	for i := range result.Labels {
		data.Rows[i] = PredictedRow{Text: result.Texts[i], Label: result.Labels[i]}
	}
	h.render(w, http.StatusOK, "predict_file.html", data)
}

// NotFound renders the error page for unknown paths.
func (h *DashboardHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	data := h.page(r, "Not Found", "")
	data.Error = msgNotFound
	h.render(w, http.StatusNotFound, "error.html", data)
}

// =============================================================================
// Helper Methods
// =============================================================================

// errorMessage maps a service error to a status code and message.
func errorMessage(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrPasswordTooLong):
		return http.StatusBadRequest, msgPasswordTooLong
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, msgFillAllFields
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgBadCredentials
	case errors.Is(err, service.ErrUserAlreadyExists):
		return http.StatusConflict, msgUserExists
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, msgUserNotFound
	case errors.Is(err, service.ErrUserBusy):
		return http.StatusConflict, msgUserBusy
	case errors.Is(err, service.ErrAccessDenied):
		return http.StatusForbidden, msgAccessDenied
	case errors.Is(err, service.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, msgStoreUnavailable
	case errors.Is(err, service.ErrModelUnavailable):
		return http.StatusServiceUnavailable, msgModelUnavailable
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// page builds the common page data and consumes the pending flash.
func (h *DashboardHandler) page(r *http.Request, title, active string) PageData {
	data := PageData{Title: title}

	session := auth.SessionFromContext(r.Context())
	if !session.LoggedIn() {
		return data
	}

	data.User = session.User
	data.MenuTitle = "Menu User"
	if session.User.AccessControl == domain.AccessAdmin {
		data.MenuTitle = "Menu Admin"
	}
	data.Menu = []MenuItem{
		{Label: "About", Path: "/about"},
		{Label: "Predict Text", Path: "/predict/text"},
		{Label: "Predict DataFrame", Path: "/predict/file"},
		{Label: "Access Management", Path: "/access"},
	}
	for i := range data.Menu {
		data.Menu[i].Active = data.Menu[i].Path == active
	}

	if session.Flash != nil {
		flash, err := h.sessions.PopFlash(r.Context(), session.Token)
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to pop flash")
		}
		data.Flash = flash
	}
	return data
}

// flash stores a notification for the next page and redirects to location.
func (h *DashboardHandler) flash(w http.ResponseWriter, r *http.Request, kind domain.FlashKind, message, location string) {
	if session := auth.SessionFromContext(r.Context()); session != nil {
		if err := h.sessions.SetFlash(r.Context(), session.Token, domain.Flash{Kind: kind, Message: message}); err != nil {
			h.logger.Warn().Err(err).Msg("failed to store flash")
		}
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *DashboardHandler) sessionToken(r *http.Request) string {
	c, err := r.Cookie(h.cookie.Name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *DashboardHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(h.cookie.TTL / time.Second),
	})
}

func (h *DashboardHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

func (h *DashboardHandler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	tmpl, ok := h.pages[name]
	if !ok {
		h.logger.Error().Str("template", name).Msg("unknown template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *DashboardHandler) renderLoginError(w http.ResponseWriter, status int, username, message string) {
	data := LoginPageData{
		PageData: PageData{Title: "Login", Error: message},
		Username: username,
	}
	h.render(w, status, "login.html", data)
}
