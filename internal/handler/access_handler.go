package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/auth"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/service"
)

// Admin forms on the access management screen.
const (
	formAdd    = "add"
	formDelete = "delete"
	formEdit   = "edit"
)

// UserForm holds the values re-shown after a failed submission.
// The password is never echoed back.
type UserForm struct {
	Username      string
	AccessControl string
	Name          string
}

// AccessAdminPageData contains the admin access management screen data.
type AccessAdminPageData struct {
	PageData
	Form           string
	Users          []domain.DirectoryEntry
	AccessControls []domain.AccessControl
	Input          UserForm
}

// AccessSelfPageData contains the self-service profile screen data.
type AccessSelfPageData struct {
	PageData
	Name string
}

func (h *DashboardHandler) handleAccess(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user.Can().ManageUsers {
		h.renderAccessAdmin(w, r, http.StatusOK, r.URL.Query().Get("form"), "", UserForm{})
		return
	}

	data := AccessSelfPageData{
		PageData: h.page(r, "Access Management", "/access"),
		Name:     user.Name,
	}
	h.render(w, http.StatusOK, "access_self.html", data)
}

func (h *DashboardHandler) handleAddUser(w http.ResponseWriter, r *http.Request) {
	input := service.AddUserInput{
		Username:      r.PostFormValue("username"),
		AccessControl: r.PostFormValue("access_control"),
		Name:          r.PostFormValue("name"),
		Password:      r.PostFormValue("password"),
	}

	_, err := h.users.AddUser(r.Context(), *auth.UserFromContext(r.Context()), input)
	if err != nil {
		status, message := errorMessage(err)
		h.renderAccessAdmin(w, r, status, formAdd, message, UserForm{
			Username:      input.Username,
			AccessControl: input.AccessControl,
			Name:          input.Name,
		})
		return
	}

	h.flash(w, r, domain.FlashSuccess,
		fmt.Sprintf("User %s telah berhasil ditambahkan", input.Name),
		"/access?form="+formAdd)
}

func (h *DashboardHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")

	out, err := h.users.DeleteUser(r.Context(), *auth.UserFromContext(r.Context()), username)
	if err != nil {
		status, message := errorMessage(err)
		if errors.Is(err, service.ErrValidation) {
			message = msgPickUsername
		}
		h.renderAccessAdmin(w, r, status, formDelete, message, UserForm{Username: username})
		return
	}

	h.flash(w, r, domain.FlashSuccess,
		fmt.Sprintf("User %s telah berhasil dihapus", out.Username),
		"/access?form="+formDelete)
}

func (h *DashboardHandler) handleEditUser(w http.ResponseWriter, r *http.Request) {
	input := service.EditUserInput{
		Username:      r.PostFormValue("username"),
		AccessControl: r.PostFormValue("access_control"),
		Name:          r.PostFormValue("name"),
		Password:      r.PostFormValue("password"),
	}

	out, err := h.users.EditUser(r.Context(), *auth.UserFromContext(r.Context()), input)
	if err != nil {
		status, message := errorMessage(err)
		h.renderAccessAdmin(w, r, status, formEdit, message, UserForm{
			Username:      input.Username,
			AccessControl: input.AccessControl,
			Name:          input.Name,
		})
		return
	}

	h.flash(w, r, domain.FlashSuccess,
		fmt.Sprintf("User %s telah berhasil diperbarui", out.User.Username),
		"/access?form="+formEdit)
}

func (h *DashboardHandler) handleEditProfile(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	input := service.EditProfileInput{
		Name:     r.PostFormValue("name"),
		Password: r.PostFormValue("password"),
	}

	out, err := h.users.EditOwnProfile(r.Context(), *session.User, input)
	if err != nil {
		status, message := errorMessage(err)
		data := AccessSelfPageData{
			PageData: h.page(r, "Access Management", "/access"),
			Name:     input.Name,
		}
		data.Error = message
		h.render(w, status, "access_self.html", data)
		return
	}

	if err := h.sessions.UpdateUser(r.Context(), session.Token, out.User); err != nil {
		h.logger.Warn().Err(err).Str("username", out.User.Username).Msg("failed to refresh session user")
	}

	h.flash(w, r, domain.FlashSuccess,
		fmt.Sprintf("User %s telah berhasil diperbarui", out.User.Username),
		"/access")
}

// renderAccessAdmin renders the admin screen with the directory and one form.
func (h *DashboardHandler) renderAccessAdmin(w http.ResponseWriter, r *http.Request, status int, form, message string, input UserForm) {
	switch form {
	case formAdd, formDelete, formEdit:
	default:
		form = formAdd
	}

	data := AccessAdminPageData{
		PageData:       h.page(r, "Access Management", "/access"),
		Form:           form,
		AccessControls: domain.AccessControls,
		Input:          input,
	}
	data.Error = message

	users, err := h.directory.List(r.Context())
	if err != nil {
		s, m := errorMessage(err)
		if status < s {
			status = s
		}
		if data.Error == "" {
			data.Error = m
		}
	}
	data.Users = users

	h.render(w, status, "access_admin.html", data)
}
