package models

// User is an editor allowed to mint draft codes and previews.
type User struct {
	ID          int
	Username    string
	DisplayName string
}

// Identity is a credential attached to a user. Only the "local" provider
// with a bcrypt password hash is used.
type Identity struct {
	ID             int
	UserID         int
	Provider       string
	ProviderUserID string
	PasswordHash   *string
}
