package authcore

import (
	"context"

	"github.com/cignalottu/authcore/identity"
	"github.com/cignalottu/authcore/internal/audit"
)

const (
	auditEventRegister  = "register"
	auditEventLogin     = "login"
	auditEventRefresh   = "refresh"
	auditEventFederated = "federated_sign_in"
)

const (
	auditReasonInvalidEmail       = "invalid_email"
	auditReasonPasswordPolicy     = "password_policy"
	auditReasonDuplicateEmail     = "duplicate_email"
	auditReasonInvalidCredentials = "invalid_credentials"
	auditReasonFederatedAccount   = "federated_account"
	auditReasonInvalidToken       = "invalid_token"
	auditReasonTokenIssue         = "token_issue"
	auditReasonStoreUnavailable   = "store_unavailable"
	auditReasonHashFailure        = "hash_failure"
)

func (e *Engine) auditSuccess(ctx context.Context, typ string, ident *identity.Identity, meta map[string]string) {
	if e.audit == nil || ident == nil {
		return
	}
	e.audit.Emit(ctx, audit.Event{
		Timestamp: e.now(),
		Type:      typ,
		UserID:    ident.ID,
		Email:     ident.Email,
		Provider:  string(ident.Provider),
		Success:   true,
		Metadata:  meta,
	})
}

func (e *Engine) auditFailure(ctx context.Context, typ, email string, provider Provider, reason string) {
	if e.audit == nil {
		return
	}
	e.audit.Emit(ctx, audit.Event{
		Timestamp: e.now(),
		Type:      typ,
		Email:     email,
		Provider:  string(provider),
		Reason:    reason,
	})
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close flushes queued audit events and stops the dispatcher. The engine
// keeps serving requests afterwards but emits no further events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}
