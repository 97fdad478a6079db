package vaultgate

import (
	"context"
	"time"
)

// Account is the durable identity record held by the [AccountProvider].
// PasswordHash is a PHC-formatted argon2id string; the plaintext never
// reaches storage.
type Account struct {
	AccountID    string
	Email        string
	FullName     string
	PasswordHash string
	AvatarRef    string
}

// Document is the metadata record held by the [DocumentStore], reduced to
// the fields this engine reasons about. OwnerID is an internal account ID;
// SharedWith is a set of grantee email addresses. The two are deliberately
// distinct relations: grants are resolved to accounts only at grant time and
// do not track later email changes.
type Document struct {
	DocumentID string
	OwnerID    string
	Name       string
	SharedWith []string
}

// DocumentUpdate names the document fields a mutation may change. Nil fields
// are left untouched by the store.
type DocumentUpdate struct {
	Name       *string
	SharedWith *[]string
}

// DocumentQuery is the listing predicate the engine composes for the store:
// documents owned by AccountID or shared with Email, optionally narrowed by
// the free-text Search and capped at Limit. Filter mechanics (matching,
// sorting) are the store's concern.
type DocumentQuery struct {
	AccountID string
	Email     string
	Search    string
	SortBy    string
	Limit     int
}

// AccountProvider is the interface callers implement to integrate vaultgate
// with their account database. Lookups must return [ErrAccountNotFound] when
// no row matches; CreateAccount must return [ErrAccountExists] on a duplicate
// email (the reference pgx provider maps unique-violation errors to it).
type AccountProvider interface {
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetAccountByID(ctx context.Context, accountID string) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
	UpdatePasswordHash(ctx context.Context, accountID, newHash string) error
}

// DocumentStore is the interface to the external document metadata store.
// GetDocument must return [ErrDocumentNotFound] when no record matches.
// UpdateDocument must apply the non-nil fields atomically per record.
type DocumentStore interface {
	GetDocument(ctx context.Context, documentID string) (*Document, error)
	CreateDocument(ctx context.Context, doc *Document) error
	UpdateDocument(ctx context.Context, documentID string, update DocumentUpdate) (*Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
	ListDocuments(ctx context.Context, query DocumentQuery) ([]Document, error)
}

// Mailer delivers an OTP code to an address. An error is surfaced to the
// caller as [ErrDispatchFailed] and rolls back the stored challenge.
type Mailer interface {
	SendCode(ctx context.Context, toEmail, fullName, code string) error
}

// Session is the server-side record backing a bearer credential. Secret is
// only populated on the establishing call; it is never persisted or logged
// (the store keeps its SHA-256 hash).
type Session struct {
	SessionID string
	AccountID string
	Secret    string
	CreatedAt time.Time
}

// CreateAccountInput is the input for [Engine.CreateAccount].
type CreateAccountInput struct {
	FullName string
	Email    string
	Password string
}

// ChallengeHandle identifies an in-flight OTP challenge. The handle is safe
// to hand to the client; it proves nothing without the emailed code.
type ChallengeHandle struct {
	ChallengeID string
	AccountID   string
}
