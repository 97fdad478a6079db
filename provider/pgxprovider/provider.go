// Package pgxprovider contains a PostgreSQL implementation of the vaultgate
// provider interfaces, backed by pgx. It is a reference integration: hosts
// with their own schema implement the interfaces directly instead.
package pgxprovider

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	vaultgate "github.com/nethrall/vaultgate"
)

// PgxPool is the minimal pool surface the provider needs. It is implemented
// by *pgxpool.Pool and by pgxmock.PgxPoolIface in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// DB wraps a pool to satisfy the provider constructors and allow testing.
type DB struct{ Pool PgxPool }

// New creates a connection pool for the given DSN.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

// Close closes the underlying pool.
func (db *DB) Close() { db.Pool.Close() }

func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}

// AccountProvider implements vaultgate.AccountProvider over an accounts
// table with a unique index on email.
type AccountProvider struct{ db *DB }

func NewAccountProvider(db *DB) *AccountProvider { return &AccountProvider{db: db} }

func (p *AccountProvider) CreateAccount(ctx context.Context, account *vaultgate.Account) error {
	if account.AccountID == "" {
		account.AccountID = uuid.NewString()
	}
	const q = `
INSERT INTO accounts (account_id, email, full_name, password_hash, avatar_ref)
VALUES ($1, $2, $3, $4, $5)`
	_, err := p.db.Pool.Exec(ctx, q, account.AccountID, account.Email, account.FullName, account.PasswordHash, account.AvatarRef)
	if isUniqueViolation(err) {
		return vaultgate.ErrAccountExists
	}
	return err
}

func (p *AccountProvider) GetAccountByEmail(ctx context.Context, email string) (*vaultgate.Account, error) {
	const q = `
SELECT account_id, email, full_name, password_hash, avatar_ref
FROM accounts WHERE email=$1`
	return p.scanAccount(p.db.Pool.QueryRow(ctx, q, email))
}

func (p *AccountProvider) GetAccountByID(ctx context.Context, accountID string) (*vaultgate.Account, error) {
	const q = `
SELECT account_id, email, full_name, password_hash, avatar_ref
FROM accounts WHERE account_id=$1`
	return p.scanAccount(p.db.Pool.QueryRow(ctx, q, accountID))
}

func (p *AccountProvider) UpdatePasswordHash(ctx context.Context, accountID, newHash string) error {
	const q = `UPDATE accounts SET password_hash=$2 WHERE account_id=$1`
	tag, err := p.db.Pool.Exec(ctx, q, accountID, newHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vaultgate.ErrAccountNotFound
	}
	return nil
}

func (p *AccountProvider) scanAccount(row pgx.Row) (*vaultgate.Account, error) {
	var a vaultgate.Account
	if err := row.Scan(&a.AccountID, &a.Email, &a.FullName, &a.PasswordHash, &a.AvatarRef); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, vaultgate.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

// DocumentStore implements vaultgate.DocumentStore over a documents table
// with shared_with as a text[] column of grantee emails.
type DocumentStore struct{ db *DB }

func NewDocumentStore(db *DB) *DocumentStore { return &DocumentStore{db: db} }

func (s *DocumentStore) CreateDocument(ctx context.Context, doc *vaultgate.Document) error {
	if doc.DocumentID == "" {
		doc.DocumentID = uuid.NewString()
	}
	const q = `
INSERT INTO documents (document_id, owner_id, name, shared_with)
VALUES ($1, $2, $3, $4)`
	_, err := s.db.Pool.Exec(ctx, q, doc.DocumentID, doc.OwnerID, doc.Name, doc.SharedWith)
	return err
}

func (s *DocumentStore) GetDocument(ctx context.Context, documentID string) (*vaultgate.Document, error) {
	const q = `
SELECT document_id, owner_id, name, shared_with
FROM documents WHERE document_id=$1`
	return s.scanDocument(s.db.Pool.QueryRow(ctx, q, documentID))
}

func (s *DocumentStore) UpdateDocument(ctx context.Context, documentID string, update vaultgate.DocumentUpdate) (*vaultgate.Document, error) {
	const q = `
UPDATE documents
SET name = COALESCE($2, name),
    shared_with = COALESCE($3, shared_with)
WHERE document_id=$1
RETURNING document_id, owner_id, name, shared_with`
	return s.scanDocument(s.db.Pool.QueryRow(ctx, q, documentID, update.Name, update.SharedWith))
}

func (s *DocumentStore) DeleteDocument(ctx context.Context, documentID string) error {
	const q = `DELETE FROM documents WHERE document_id=$1`
	tag, err := s.db.Pool.Exec(ctx, q, documentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return vaultgate.ErrDocumentNotFound
	}
	return nil
}

func (s *DocumentStore) ListDocuments(ctx context.Context, query vaultgate.DocumentQuery) ([]vaultgate.Document, error) {
	q := `
SELECT document_id, owner_id, name, shared_with
FROM documents
WHERE (owner_id=$1 OR $2 = ANY(shared_with))
  AND ($3 = '' OR name ILIKE '%' || $3 || '%')
ORDER BY ` + sortColumn(query.SortBy) + `
LIMIT $4`

	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Pool.Query(ctx, q, query.AccountID, query.Email, query.Search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []vaultgate.Document
	for rows.Next() {
		var d vaultgate.Document
		if err := rows.Scan(&d.DocumentID, &d.OwnerID, &d.Name, &d.SharedWith); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *DocumentStore) scanDocument(row pgx.Row) (*vaultgate.Document, error) {
	var d vaultgate.Document
	if err := row.Scan(&d.DocumentID, &d.OwnerID, &d.Name, &d.SharedWith); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, vaultgate.ErrDocumentNotFound
		}
		return nil, err
	}
	return &d, nil
}

// sortColumn whitelists ORDER BY targets; anything unknown falls back to
// name so caller input never reaches the SQL text.
func sortColumn(sortBy string) string {
	switch sortBy {
	case "name", "name_asc":
		return "name ASC"
	case "name_desc":
		return "name DESC"
	default:
		return "name ASC"
	}
}
