package session

// Session is the server-side record behind a bearer secret. The secret
// itself never appears here; the store addresses records by its SHA-256.
type Session struct {
	SessionID string
	AccountID string
	Email     string
	CreatedAt int64
	ExpiresAt int64
}
