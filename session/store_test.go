package session

import (
	"context"
	"crypto/sha256"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewStore(client, "vs")
}

func testSession(accountID string) *Session {
	now := time.Now().Unix()
	return &Session{
		SessionID: "sess-" + accountID,
		AccountID: accountID,
		Email:     accountID + "@example.com",
		CreatedAt: now,
		ExpiresAt: now + 3600,
	}
}

func TestSaveAndGet(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	hash := sha256.Sum256([]byte("secret-1"))
	want := testSession("acct-1")

	if err := store.Save(ctx, hash, want, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, hash)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if *got != *want {
		t.Fatalf("session mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestGetMissingSession(t *testing.T) {
	_, store := newTestStore(t)

	hash := sha256.Sum256([]byte("never-saved"))
	_, err := store.Get(context.Background(), hash)
	if !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil, got %v", err)
	}
}

func TestGetExpiredSessionSelfDeletes(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	hash := sha256.Sum256([]byte("secret-1"))
	sess := testSession("acct-1")
	sess.ExpiresAt = time.Now().Add(-time.Minute).Unix()

	if err := store.Save(ctx, hash, sess, time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := store.Get(ctx, hash); !errors.Is(err, redis.Nil) {
		t.Fatalf("expected redis.Nil for expired session, got %v", err)
	}
	if mr.Exists(store.key(hash)) {
		t.Fatal("expired record not cleaned up")
	}
}

func TestDelete(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	hash := sha256.Sum256([]byte("secret-1"))
	if err := store.Save(ctx, hash, testSession("acct-1"), time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Delete(ctx, hash); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, hash); !errors.Is(err, redis.Nil) {
		t.Fatalf("session survived delete: %v", err)
	}

	count, err := store.ActiveSessionCount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("ActiveSessionCount failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("index entry survived delete: %d", count)
	}

	// Deleting again is a no-op.
	if err := store.Delete(ctx, hash); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
}

func TestDeleteAllForAccount(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	hashes := [][32]byte{
		sha256.Sum256([]byte("secret-1")),
		sha256.Sum256([]byte("secret-2")),
		sha256.Sum256([]byte("secret-3")),
	}
	for _, h := range hashes {
		if err := store.Save(ctx, h, testSession("acct-1"), time.Hour); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	otherHash := sha256.Sum256([]byte("other-secret"))
	if err := store.Save(ctx, otherHash, testSession("acct-2"), time.Hour); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.DeleteAllForAccount(ctx, "acct-1"); err != nil {
		t.Fatalf("DeleteAllForAccount failed: %v", err)
	}

	for i, h := range hashes {
		if _, err := store.Get(ctx, h); !errors.Is(err, redis.Nil) {
			t.Fatalf("session %d survived account purge: %v", i, err)
		}
	}

	// Other accounts are untouched.
	if _, err := store.Get(ctx, otherHash); err != nil {
		t.Fatalf("unrelated session lost: %v", err)
	}

	count, err := store.ActiveSessionCount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("ActiveSessionCount failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("index not cleared: %d", count)
	}
}

func TestActiveSessionCount(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	count, err := store.ActiveSessionCount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("ActiveSessionCount failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("fresh account count = %d", count)
	}

	for _, secret := range []string{"s1", "s2"} {
		h := sha256.Sum256([]byte(secret))
		if err := store.Save(ctx, h, testSession("acct-1"), time.Hour); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	count, err = store.ActiveSessionCount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("ActiveSessionCount failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}
