package user

// User is the persisted identity record. The password hash never leaves the
// server. TokenVersion is bumped to invalidate every refresh token issued
// before the bump.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	TokenVersion int64  `json:"tokenVersion"`
}
