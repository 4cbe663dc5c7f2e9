package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/cignalottu/authcore/identity"
	"github.com/cignalottu/authcore/internal/audit"
	"github.com/cignalottu/authcore/internal/flows"
	"github.com/cignalottu/authcore/jwt"
)

// Engine runs registration, login, refresh and federated resolution, and
// authenticates bearer tokens. It is immutable after Build and safe for
// concurrent use.
type Engine struct {
	config   Config
	store    IdentityStore
	verifier CredentialVerifier
	tokens   *jwt.Manager
	metrics  *Metrics
	audit    *audit.Dispatcher
	log      zerolog.Logger
	now      func() time.Time
	flows    flows.Deps
}

var (
	_ Authenticator     = (*Engine)(nil)
	_ IdentityResolver  = (*Engine)(nil)
	_ FederatedResolver = (*Engine)(nil)
)

// MetricsSnapshot returns current counters. It is empty when metrics are
// disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Tokens exposes the token codec for callers that need to decode tokens
// directly, such as diagnostics tooling.
func (e *Engine) Tokens() *jwt.Manager {
	return e.tokens
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Register creates a LOCAL customer identity and returns its tokens.
//
// Errors: KindValidation for a bad email or a password that fails policy
// (the first violated rule is wrapped), KindConflict when the email is
// already registered.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRegister(ctx, flows.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, e.flows.Register)

	var (
		err    *Error
		reason string
	)
	switch res.Failure {
	case flows.RegisterFailureNone:
	case flows.RegisterFailureInvalidEmail:
		e.metricInc(MetricRegisterFailure)
		err, reason = newError(KindValidation, ErrInvalidEmail), auditReasonInvalidEmail
	case flows.RegisterFailurePolicy:
		e.metricInc(MetricRegisterFailure)
		err, reason = newError(KindValidation, res.Err), auditReasonPasswordPolicy
	case flows.RegisterFailureDuplicate:
		e.metricInc(MetricRegisterDuplicate)
		err, reason = newError(KindConflict, ErrEmailTaken), auditReasonDuplicateEmail
	case flows.RegisterFailureHash:
		e.metricInc(MetricRegisterFailure)
		e.log.Error().Err(res.Err).Msg("register: password hashing failed")
		err, reason = newError(KindInternal, errors.Join(ErrCredentialHash, res.Err)), auditReasonHashFailure
	case flows.RegisterFailureIssue:
		e.metricInc(MetricRegisterFailure)
		e.log.Error().Err(res.Err).Msg("register: token issuance failed")
		err, reason = newError(KindInternal, ErrTokenIssue), auditReasonTokenIssue
	default:
		e.metricInc(MetricRegisterFailure)
		e.log.Error().Err(res.Err).Msg("register: store failure")
		err, reason = newError(KindInternal, errors.Join(ErrStoreUnavailable, res.Err)), auditReasonStoreUnavailable
	}
	if err != nil {
		e.auditFailure(ctx, auditEventRegister, identity.NormalizeEmail(req.Email), ProviderLocal, reason)
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.log.Info().Int64("user_id", res.Identity.ID).Msg("identity registered")
	e.auditSuccess(ctx, auditEventRegister, res.Identity, nil)
	return result(res.Identity, res.Tokens), nil
}

// Login authenticates a LOCAL identity by email and password.
//
// Unknown email, missing credential and wrong password all return the same
// KindAuthentication ErrInvalidCredentials. A correct password on a
// federated identity returns ErrFederatedAccount.
func (e *Engine) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunLogin(ctx, email, password, e.flows.Login)

	var (
		err    *Error
		reason string
	)
	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureCredentials:
		e.metricInc(MetricLoginFailure)
		if res.Err != nil {
			e.log.Warn().Err(res.Err).Msg("login: credential verification error")
		}
		err, reason = newError(KindAuthentication, ErrInvalidCredentials), auditReasonInvalidCredentials
	case flows.LoginFailureFederated:
		e.metricInc(MetricLoginFederatedRejected)
		err, reason = newError(KindAuthentication, ErrFederatedAccount), auditReasonFederatedAccount
	case flows.LoginFailureIssue:
		e.metricInc(MetricLoginFailure)
		e.log.Error().Err(res.Err).Msg("login: token issuance failed")
		err, reason = newError(KindInternal, ErrTokenIssue), auditReasonTokenIssue
	default:
		e.metricInc(MetricLoginFailure)
		e.log.Error().Err(res.Err).Msg("login: store failure")
		err, reason = newError(KindInternal, errors.Join(ErrStoreUnavailable, res.Err)), auditReasonStoreUnavailable
	}
	if err != nil {
		e.auditFailure(ctx, auditEventLogin, identity.NormalizeEmail(email), ProviderLocal, reason)
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.log.Info().Int64("user_id", res.Identity.ID).Msg("login succeeded")
	e.auditSuccess(ctx, auditEventLogin, res.Identity, nil)
	return result(res.Identity, res.Tokens), nil
}

// Refresh issues a new access token for a valid refresh token. The same
// refresh token is returned; refresh tokens are not rotated.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, refreshToken, e.flows.Refresh)

	var (
		err    *Error
		reason string
	)
	switch res.Failure {
	case flows.RefreshFailureNone:
	case flows.RefreshFailureDecode, flows.RefreshFailureInvalid, flows.RefreshFailureWrongUse, flows.RefreshFailureIdentityGone:
		e.metricInc(MetricRefreshFailure)
		e.log.Debug().Err(res.Err).Int("failure", int(res.Failure)).Msg("refresh rejected")
		err, reason = newError(KindAuthentication, ErrRefreshInvalid), auditReasonInvalidToken
	case flows.RefreshFailureIssue:
		e.metricInc(MetricRefreshFailure)
		e.log.Error().Err(res.Err).Msg("refresh: token issuance failed")
		err, reason = newError(KindInternal, ErrTokenIssue), auditReasonTokenIssue
	default:
		e.metricInc(MetricRefreshFailure)
		e.log.Error().Err(res.Err).Msg("refresh: store failure")
		err, reason = newError(KindInternal, errors.Join(ErrStoreUnavailable, res.Err)), auditReasonStoreUnavailable
	}
	if err != nil {
		e.auditFailure(ctx, auditEventRefresh, "", "", reason)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.auditSuccess(ctx, auditEventRefresh, res.Identity, nil)
	return result(res.Identity, res.Tokens), nil
}

// ResolveFederatedIdentity finds or creates the identity for p and returns
// its tokens. An existing identity of another provider is linked to p's
// provider; its name, role and password are left untouched.
func (e *Engine) ResolveFederatedIdentity(ctx context.Context, p FederatedProfile) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	res := flows.RunResolveFederated(ctx, flows.FederatedProfile{
		Provider:    p.Provider,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Subject:     p.Subject,
	}, e.flows.Federated)

	var (
		err    *Error
		reason string
	)
	switch res.Failure {
	case flows.FederatedFailureNone:
	case flows.FederatedFailureInvalidEmail:
		e.metricInc(MetricFederatedFailure)
		err, reason = newError(KindValidation, ErrInvalidEmail), auditReasonInvalidEmail
	case flows.FederatedFailureIssue:
		e.metricInc(MetricFederatedFailure)
		e.log.Error().Err(res.Err).Msg("federated: token issuance failed")
		err, reason = newError(KindInternal, ErrTokenIssue), auditReasonTokenIssue
	default:
		e.metricInc(MetricFederatedFailure)
		e.log.Error().Err(res.Err).Msg("federated: store failure")
		err, reason = newError(KindInternal, errors.Join(ErrStoreUnavailable, res.Err)), auditReasonStoreUnavailable
	}
	if err != nil {
		e.auditFailure(ctx, auditEventFederated, identity.NormalizeEmail(p.Email), p.Provider, reason)
		return nil, err
	}

	outcome := "existing"
	switch {
	case res.Created:
		outcome = "created"
		e.metricInc(MetricFederatedCreated)
		e.log.Info().Int64("user_id", res.Identity.ID).Str("provider", string(res.Identity.Provider)).Msg("federated identity created")
	case res.Merged:
		outcome = "linked"
		e.metricInc(MetricFederatedMerged)
		e.log.Info().Int64("user_id", res.Identity.ID).Str("provider", string(res.Identity.Provider)).Msg("identity linked to provider")
	}
	e.metricInc(MetricFederatedResolved)
	e.auditSuccess(ctx, auditEventFederated, res.Identity, map[string]string{"outcome": outcome})
	return result(res.Identity, res.Tokens), nil
}

// Authenticate validates an access token and returns its principal. Refresh
// tokens are rejected. No store lookup is performed.
func (e *Engine) Authenticate(_ context.Context, bearer string) (*Principal, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
		}
	}()

	claims, err := e.tokens.Validate(bearer, jwt.UseAccess)
	if err != nil {
		e.metricInc(MetricAuthenticateFailure)
		e.log.Debug().Err(err).Msg("bearer token rejected")
		return nil, newError(KindAuthentication, ErrTokenInvalid)
	}

	e.metricInc(MetricAuthenticateSuccess)
	return &Principal{
		UserID:    claims.UserID,
		Email:     claims.Subject,
		Role:      identity.Role(claims.Role),
		FirstName: claims.FirstName,
		Provider:  identity.Provider(claims.Provider),
	}, nil
}

// CurrentIdentity loads the stored identity behind p. It fails with
// KindAuthentication when the identity no longer exists.
func (e *Engine) CurrentIdentity(ctx context.Context, p *Principal) (*Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if p == nil {
		return nil, newError(KindAuthentication, ErrIdentityNotFound)
	}

	ident, err := e.store.FindByEmail(ctx, identity.NormalizeEmail(p.Email))
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, newError(KindAuthentication, ErrIdentityNotFound)
		}
		e.log.Error().Err(err).Msg("identity lookup failed")
		return nil, newError(KindInternal, errors.Join(ErrStoreUnavailable, err))
	}
	return ident, nil
}

func result(ident *identity.Identity, tokens flows.Tokens) *AuthResult {
	return &AuthResult{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    TokenType,
		UserID:       ident.ID,
		Email:        ident.Email,
		Role:         ident.Role,
	}
}
