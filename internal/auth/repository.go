package auth

import (
	"context"
	"database/sql"
	"fmt"

	"headless/internal/apperr"
	"headless/internal/models"
)

// Repository provides access to editor accounts.
type Repository struct {
	DB *sql.DB
}

// NewRepository creates a new authentication repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{DB: db}
}

// FindUserByUsername finds a user by their username.
func (r *Repository) FindUserByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.DB.QueryRowContext(ctx, "SELECT id, username, display_name FROM users WHERE username = ?", username).
		Scan(&user.ID, &user.Username, &user.DisplayName)
	if err != nil {
		return models.User{}, apperr.FromNoRows(err, "user not found")
	}
	return user, nil
}

// FindIdentity finds an identity by provider and provider user ID.
func (r *Repository) FindIdentity(ctx context.Context, provider, providerUserID string) (models.Identity, error) {
	var identity models.Identity
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, provider, provider_user_id, password_hash
		FROM identities WHERE provider = ? AND provider_user_id = ?`, provider, providerUserID).
		Scan(&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderUserID, &identity.PasswordHash)
	if err != nil {
		return models.Identity{}, apperr.FromNoRows(err, "identity not found")
	}
	return identity, nil
}

// CreateUser creates a user and its identity in one transaction.
func (r *Repository) CreateUser(ctx context.Context, user models.User, identity models.Identity) (models.User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return models.User{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "INSERT INTO users (username, display_name) VALUES (?, ?)", user.Username, user.DisplayName)
	if err != nil {
		return models.User{}, fmt.Errorf("error creating user: %w", err)
	}
	userID, err := res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}
	user.ID = int(userID)

	_, err = tx.ExecContext(ctx,
		"INSERT INTO identities (user_id, provider, provider_user_id, password_hash) VALUES (?, ?, ?, ?)",
		user.ID, identity.Provider, identity.ProviderUserID, identity.PasswordHash)
	if err != nil {
		return models.User{}, fmt.Errorf("error creating identity: %w", err)
	}
	return user, tx.Commit()
}
