package controller

import (
	"encoding/json"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"headless/internal/apperr"
	"headless/internal/auth"
	"headless/internal/web/viewmodels"
)

// Auth provides editor login handlers
type Auth struct {
	AuthService *auth.Service
	Logger      *zap.Logger
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register registers the auth routes
func (a *Auth) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /admin/login", a.login)
	mux.HandleFunc("POST /admin/logout", a.logout)
}

// RegisterAuthenticated registers routes that need a session.
func (a *Auth) RegisterAuthenticated(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/me", a.me)
}

func (a *Auth) login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeError(w, r, a.Logger, apperr.BadRequest("invalid JSON body"))
			return
		}
	} else {
		creds.Username = r.FormValue("username")
		creds.Password = r.FormValue("password")
	}

	user, err := a.AuthService.Login(w, r, creds.Username, creds.Password)
	if err != nil {
		if apperr.Is(err, apperr.CodeUnauthorized) {
			a.Logger.Info("login failed", zap.String("username", creds.Username))
		}
		writeError(w, r, a.Logger, err)
		return
	}
	a.Logger.Info("editor logged in", zap.Int("user_id", user.ID))
	writeJSON(w, http.StatusOK, viewmodels.User{ID: user.ID, Username: user.Username, DisplayName: user.DisplayName})
}

func (a *Auth) logout(w http.ResponseWriter, r *http.Request) {
	if err := a.AuthService.Logout(w, r); err != nil {
		writeError(w, r, a.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Auth) me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFrom(r.Context())
	writeJSON(w, http.StatusOK, viewmodels.User{ID: user.ID, Username: user.Username, DisplayName: user.DisplayName})
}
