package auth

import (
	"context"
	"encoding/gob"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"headless/internal/apperr"
	"headless/internal/models"
)

const (
	sessionName   = "headless-session"
	sessionUser   = "user"
	localProvider = "local"
)

type contextKey struct{}

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = &apperr.AppError{Code: apperr.CodeUnauthorized, Message: "invalid username or password"}

func init() {
	gob.Register(&models.User{})
}

// NewSessionStore creates the cookie store used for editor sessions.
func NewSessionStore(sessionKey string) (*sessions.CookieStore, error) {
	if len(sessionKey) < 32 {
		return nil, errors.New("session key must be at least 32 characters long")
	}
	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options.HttpOnly = true
	store.Options.Path = "/"
	store.Options.SameSite = http.SameSiteLaxMode
	return store, nil
}

// Service provides editor authentication.
type Service struct {
	Repo  *Repository
	Store sessions.Store
}

// NewService creates a new authentication service.
func NewService(repo *Repository, store sessions.Store) *Service {
	return &Service{Repo: repo, Store: store}
}

// RegisterUser creates a new editor with a local password identity.
func (s *Service) RegisterUser(ctx context.Context, username, displayName, password string) (models.User, error) {
	if username == "" || password == "" {
		return models.User{}, apperr.BadRequest("username and password are required")
	}
	if _, err := s.Repo.FindUserByUsername(ctx, username); err == nil {
		return models.User{}, apperr.BadRequest("user already exists")
	} else if !apperr.Is(err, apperr.CodeNotFound) {
		return models.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	hash := string(hashed)

	return s.Repo.CreateUser(ctx,
		models.User{Username: username, DisplayName: displayName},
		models.Identity{Provider: localProvider, ProviderUserID: username, PasswordHash: &hash})
}

// Authenticate checks a username and password without touching the session.
func (s *Service) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.Repo.FindUserByUsername(ctx, username)
	if apperr.Is(err, apperr.CodeNotFound) {
		return models.User{}, ErrInvalidCredentials
	} else if err != nil {
		return models.User{}, err
	}

	identity, err := s.Repo.FindIdentity(ctx, localProvider, username)
	if apperr.Is(err, apperr.CodeNotFound) {
		return models.User{}, ErrInvalidCredentials
	} else if err != nil {
		return models.User{}, err
	}
	if identity.PasswordHash == nil {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*identity.PasswordHash), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates a user and stores them in the session.
func (s *Service) Login(w http.ResponseWriter, r *http.Request, username, password string) (models.User, error) {
	user, err := s.Authenticate(r.Context(), username, password)
	if err != nil {
		return models.User{}, err
	}

	session, _ := s.Store.Get(r, sessionName)
	session.Values[sessionUser] = &user
	session.Options.Secure = secureRequest(r)
	if err := session.Save(r, w); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// Logout removes the user from the session.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.Store.Get(r, sessionName)
	delete(session.Values, sessionUser)
	session.Options.Secure = secureRequest(r)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// CurrentUser returns the logged in user, or nil.
func (s *Service) CurrentUser(r *http.Request) *models.User {
	session, err := s.Store.Get(r, sessionName)
	if err != nil {
		return nil
	}
	if user, ok := session.Values[sessionUser].(*models.User); ok {
		return user
	}
	return nil
}

// RequireLogin rejects requests without a session user and exposes the user through the context.
func (s *Service) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := s.CurrentUser(r)
		if user == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFrom returns the user stored by RequireLogin.
func UserFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(contextKey{}).(*models.User)
	return user
}

// Secure flag follows the request scheme so sessions work behind a TLS proxy.
func secureRequest(r *http.Request) bool {
	return r.TLS != nil || r.URL.Scheme == "https" || r.Header.Get("X-Forwarded-Proto") == "https"
}
