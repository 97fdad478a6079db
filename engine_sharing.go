package vaultgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/nethrall/vaultgate/access"
)

// GrantAccess adds grantee emails to a document's share list as an additive
// merge: the existing list is never replaced, only extended. Only the owner
// may grant; the caller's ownership is settled before any grantee is even
// looked at, so a non-owner learns nothing about the grantees or the share
// list. Every grantee must resolve to an existing account at grant time,
// none may be the owner themselves, and none may already hold a grant; any
// violation rejects the whole call and nothing is persisted. Grants are by
// email and do not follow later address changes.
func (e *Engine) GrantAccess(ctx context.Context, callerAccountID, documentID string, granteeEmails ...string) (*Document, error) {
	caller, doc, err := e.loadDocumentForOwner(ctx, callerAccountID, documentID)
	if err != nil {
		e.metricInc(MetricMutationForbidden)
		e.emitShareAudit(ctx, auditEventMutationForbidden, false, callerAccountID, documentID, nil, "grant", err)
		return nil, err
	}

	if len(granteeEmails) == 0 {
		return nil, ErrNoGrantees
	}

	ownerEmail := normalizeEmail(caller.Email)
	existing := make(map[string]bool, len(doc.SharedWith))
	for _, email := range doc.SharedWith {
		existing[email] = true
	}

	added := make([]string, 0, len(granteeEmails))
	for _, raw := range granteeEmails {
		email := normalizeEmail(raw)
		if email == "" {
			return nil, fmt.Errorf("%w: %q", ErrUnknownGrantee, raw)
		}
		// The owner already sees everything; their email never enters the list.
		if email == ownerEmail {
			return nil, fmt.Errorf("%w: %s", ErrSelfGrant, email)
		}
		if existing[email] {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyGranted, email)
		}

		if _, err := e.accounts.GetAccountByEmail(ctx, email); err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownGrantee, email)
			}
			return nil, errors.Join(ErrUnavailable, err)
		}

		existing[email] = true
		added = append(added, email)
	}

	shared := append(append([]string(nil), doc.SharedWith...), added...)
	updated, err := e.documents.UpdateDocument(ctx, documentID, DocumentUpdate{
		SharedWith: &shared,
	})
	if err != nil {
		return nil, mapDocumentStoreError(err)
	}

	e.metricInc(MetricAccessGranted)
	e.emitShareAudit(ctx, auditEventAccessGranted, true, callerAccountID, documentID, added, "", nil)

	return updated, nil
}

// RevokeAccess removes a grantee email from a document's share list. Only
// the owner may revoke. Revoking an email that is not on the list is a
// no-op and succeeds.
func (e *Engine) RevokeAccess(ctx context.Context, callerAccountID, documentID, granteeEmail string) (*Document, error) {
	_, doc, err := e.loadDocumentForOwner(ctx, callerAccountID, documentID)
	if err != nil {
		e.metricInc(MetricMutationForbidden)
		e.emitShareAudit(ctx, auditEventMutationForbidden, false, callerAccountID, documentID, nil, "revoke", err)
		return nil, err
	}

	granteeEmail = normalizeEmail(granteeEmail)

	shared := make([]string, 0, len(doc.SharedWith))
	found := false
	for _, existing := range doc.SharedWith {
		if existing == granteeEmail {
			found = true
			continue
		}
		shared = append(shared, existing)
	}
	if !found {
		return doc, nil
	}

	updated, err := e.documents.UpdateDocument(ctx, documentID, DocumentUpdate{
		SharedWith: &shared,
	})
	if err != nil {
		return nil, mapDocumentStoreError(err)
	}

	e.metricInc(MetricAccessRevoked)
	e.emitShareAudit(ctx, auditEventAccessRevoked, true, callerAccountID, documentID, []string{granteeEmail}, "", nil)

	return updated, nil
}

// RenameDocument changes a document's display name. Owner only.
func (e *Engine) RenameDocument(ctx context.Context, callerAccountID, documentID, newName string) (*Document, error) {
	_, doc, err := e.loadDocumentForOwner(ctx, callerAccountID, documentID)
	if err != nil {
		e.metricInc(MetricMutationForbidden)
		e.emitShareAudit(ctx, auditEventMutationForbidden, false, callerAccountID, documentID, nil, "rename", err)
		return nil, err
	}
	if newName == "" {
		return doc, nil
	}

	updated, err := e.documents.UpdateDocument(ctx, documentID, DocumentUpdate{
		Name: &newName,
	})
	if err != nil {
		return nil, mapDocumentStoreError(err)
	}

	e.metricInc(MetricDocumentRenamed)
	e.emitShareAudit(ctx, auditEventDocumentRenamed, true, callerAccountID, documentID, nil, "", nil)

	return updated, nil
}

// DeleteDocument removes a document record. Owner only. Grantees keep no
// residual access; their grants vanish with the record.
func (e *Engine) DeleteDocument(ctx context.Context, callerAccountID, documentID string) error {
	if _, _, err := e.loadDocumentForOwner(ctx, callerAccountID, documentID); err != nil {
		e.metricInc(MetricMutationForbidden)
		e.emitShareAudit(ctx, auditEventMutationForbidden, false, callerAccountID, documentID, nil, "delete", err)
		return err
	}

	if err := e.documents.DeleteDocument(ctx, documentID); err != nil {
		return mapDocumentStoreError(err)
	}

	e.metricInc(MetricDocumentDeleted)
	e.emitShareAudit(ctx, auditEventDocumentDeleted, true, callerAccountID, documentID, nil, "", nil)

	return nil
}

// ListDocuments returns the documents visible to the caller: those they own
// plus those shared with their email. Search narrows by name; sortBy and
// limit are passed through to the store.
func (e *Engine) ListDocuments(ctx context.Context, callerAccountID, search, sortBy string, limit int) ([]Document, error) {
	if e == nil || e.accounts == nil || e.documents == nil {
		return nil, ErrEngineNotReady
	}

	caller, err := e.accounts.GetAccountByID(ctx, callerAccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrForbidden
		}
		return nil, errors.Join(ErrUnavailable, err)
	}

	docs, err := e.documents.ListDocuments(ctx, DocumentQuery{
		AccountID: caller.AccountID,
		Email:     caller.Email,
		Search:    search,
		SortBy:    sortBy,
		Limit:     limit,
	})
	if err != nil {
		return nil, mapDocumentStoreError(err)
	}

	return docs, nil
}

// GetDocument returns a single document if the caller may view it: the
// owner or anyone on the share list. Everyone else gets ErrForbidden,
// indistinguishable from a document that exists but is not shared.
func (e *Engine) GetDocument(ctx context.Context, callerAccountID, documentID string) (*Document, error) {
	if e == nil || e.accounts == nil || e.documents == nil {
		return nil, ErrEngineNotReady
	}

	caller, err := e.accounts.GetAccountByID(ctx, callerAccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrForbidden
		}
		return nil, errors.Join(ErrUnavailable, err)
	}

	doc, err := e.documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, mapDocumentStoreError(err)
	}

	sub := access.Subject{AccountID: caller.AccountID, Email: caller.Email}
	res := access.Resource{OwnerID: doc.OwnerID, SharedWith: doc.SharedWith}
	if !access.CanView(sub, res) {
		return nil, ErrForbidden
	}

	return doc, nil
}

func (e *Engine) loadDocumentForOwner(ctx context.Context, callerAccountID, documentID string) (*Account, *Document, error) {
	if e == nil || e.accounts == nil || e.documents == nil {
		return nil, nil, ErrEngineNotReady
	}

	caller, err := e.accounts.GetAccountByID(ctx, callerAccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, nil, ErrForbidden
		}
		return nil, nil, errors.Join(ErrUnavailable, err)
	}

	doc, err := e.documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, nil, mapDocumentStoreError(err)
	}

	sub := access.Subject{AccountID: caller.AccountID, Email: caller.Email}
	res := access.Resource{OwnerID: doc.OwnerID, SharedWith: doc.SharedWith}
	if !access.CanMutateSharing(sub, res) {
		return nil, nil, ErrForbidden
	}

	return caller, doc, nil
}

func mapDocumentStoreError(err error) error {
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return ErrDocumentNotFound
	default:
		return errors.Join(ErrUnavailable, err)
	}
}
