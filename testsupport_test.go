package vaultgate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func newTestEngine(t *testing.T, rdb *redis.Client) (*Engine, *fakeAccountProvider, *fakeDocumentStore, *fakeMailer) {
	t.Helper()

	provider := newFakeAccountProvider()
	docs := newFakeDocumentStore()
	mailer := &fakeMailer{}

	engine, err := New().
		WithRedis(rdb).
		WithAccountProvider(provider).
		WithDocumentStore(docs).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, provider, docs, mailer
}

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type fakeAccountProvider struct {
	mu      sync.RWMutex
	byID    map[string]Account
	byEmail map[string]string
	failAll bool
}

func newFakeAccountProvider() *fakeAccountProvider {
	return &fakeAccountProvider{
		byID:    make(map[string]Account),
		byEmail: make(map[string]string),
	}
}

func (p *fakeAccountProvider) CreateAccount(_ context.Context, account *Account) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failAll {
		return errors.New("provider down")
	}
	if _, exists := p.byEmail[account.Email]; exists {
		return ErrAccountExists
	}
	if account.AccountID == "" {
		account.AccountID = uuid.NewString()
	}
	p.byID[account.AccountID] = *account
	p.byEmail[account.Email] = account.AccountID
	return nil
}

func (p *fakeAccountProvider) GetAccountByEmail(_ context.Context, email string) (*Account, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.failAll {
		return nil, errors.New("provider down")
	}
	id, ok := p.byEmail[email]
	if !ok {
		return nil, ErrAccountNotFound
	}
	account := p.byID[id]
	return &account, nil
}

func (p *fakeAccountProvider) GetAccountByID(_ context.Context, accountID string) (*Account, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.failAll {
		return nil, errors.New("provider down")
	}
	account, ok := p.byID[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return &account, nil
}

func (p *fakeAccountProvider) UpdatePasswordHash(_ context.Context, accountID, newHash string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	account, ok := p.byID[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	account.PasswordHash = newHash
	p.byID[accountID] = account
	return nil
}

func (p *fakeAccountProvider) put(account Account) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[account.AccountID] = account
	p.byEmail[account.Email] = account.AccountID
}

type fakeDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{
		docs: make(map[string]Document),
	}
}

func (s *fakeDocumentStore) CreateDocument(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.DocumentID == "" {
		doc.DocumentID = uuid.NewString()
	}
	s.docs[doc.DocumentID] = *doc
	return nil
}

func (s *fakeDocumentStore) GetDocument(_ context.Context, documentID string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[documentID]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	copied := doc
	copied.SharedWith = append([]string(nil), doc.SharedWith...)
	return &copied, nil
}

func (s *fakeDocumentStore) UpdateDocument(_ context.Context, documentID string, update DocumentUpdate) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[documentID]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	if update.Name != nil {
		doc.Name = *update.Name
	}
	if update.SharedWith != nil {
		doc.SharedWith = append([]string(nil), (*update.SharedWith)...)
	}
	s.docs[documentID] = doc

	copied := doc
	copied.SharedWith = append([]string(nil), doc.SharedWith...)
	return &copied, nil
}

func (s *fakeDocumentStore) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[documentID]; !ok {
		return ErrDocumentNotFound
	}
	delete(s.docs, documentID)
	return nil
}

func (s *fakeDocumentStore) ListDocuments(_ context.Context, query DocumentQuery) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Document
	for _, doc := range s.docs {
		visible := doc.OwnerID == query.AccountID
		if !visible {
			for _, email := range doc.SharedWith {
				if email == query.Email {
					visible = true
					break
				}
			}
		}
		if visible {
			out = append(out, doc)
		}
	}
	return out, nil
}

type fakeMailer struct {
	mu       sync.Mutex
	sent     []string
	lastCode string
	lastTo   string
	failNext bool
}

func (m *fakeMailer) SendCode(_ context.Context, toEmail, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext {
		m.failNext = false
		return errors.New("smtp refused")
	}
	m.sent = append(m.sent, code)
	m.lastCode = code
	m.lastTo = toEmail
	return nil
}

func (m *fakeMailer) codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func (m *fakeMailer) last() (string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTo, m.lastCode
}
