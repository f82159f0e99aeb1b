package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/dbx"
	"github.com/nakgoalgo/nakgo/internal/logging"
	"github.com/nakgoalgo/nakgo/internal/server/auth"
	"github.com/nakgoalgo/nakgo/internal/server/identity"
	"github.com/nakgoalgo/nakgo/internal/server/models"
	"github.com/nakgoalgo/nakgo/internal/timex"
)

// IdentityProvider resolves an external login credential.
type IdentityProvider interface {
	FetchIdentity(ctx context.Context, credential string) (*identity.Identity, error)
}

// LoginGuard throttles failed external logins per client address.
type LoginGuard interface {
	AssertAllowed(address string, now time.Time) error
	RecordFailure(address string, now time.Time)
	RecordSuccess(address string)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	TokenPair
	User models.UserSummary
}

// SessionDeps groups what SessionService is built from.
type SessionDeps struct {
	Runner        dbx.Runner
	Codec         *auth.Codec
	Users         *UserService
	RefreshTokens *RefreshTokenService
	Blocklist     *BlocklistService
	Guard         LoginGuard
	Provider      IdentityProvider
	Logger        logging.Logger
	// SweepInterval throttles the purge of expired rows; 0 purges before
	// every use case.
	SweepInterval time.Duration
	Now           timex.Clock
}

// SessionService implements login, refresh, verify and logout on top of
// the codec, the stores and the login guard.
type SessionService struct {
	SessionDeps

	sweepMu   sync.Mutex
	lastSweep time.Time
}

func NewSessionService(d SessionDeps) *SessionService {
	if d.Now == nil {
		d.Now = timex.SystemClock
	}
	if d.Logger == nil {
		d.Logger = logging.Nop{}
	}
	return &SessionService{SessionDeps: d}
}

// Login exchanges an external credential for a token pair. Provider
// rejections and outages count as failures for address; a malformed
// provider answer does not, and neither does a call abandoned by the
// caller.
func (s *SessionService) Login(ctx context.Context, credential, address string) (*LoginResult, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, fmt.Errorf("%w: credential is required", common.ErrValidation)
	}

	s.maybeSweep(ctx)

	if err := s.Guard.AssertAllowed(address, s.Now()); err != nil {
		s.Logger.Warn(ctx, "login blocked", "client_ip", address)
		return nil, err
	}

	id, err := s.Provider.FetchIdentity(ctx, credential)
	if err != nil {
		if ctx.Err() == nil && (errors.Is(err, common.ErrExternalAuthFailed) || errors.Is(err, common.ErrUpstreamUnavailable)) {
			s.Guard.RecordFailure(address, s.Now())
		}
		s.Logger.Warn(ctx, "external login failed", "client_ip", address, "error", err)
		return nil, err
	}

	var res *LoginResult
	err = s.Runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.Users.UpsertExternal(ctx, tx, id)
		if err != nil {
			return err
		}
		pair, err := s.issuePair(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		res = &LoginResult{TokenPair: *pair, User: user.Summary()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Guard.RecordSuccess(address)
	s.Logger.Info(ctx, "login succeeded", "user_id", res.User.ID, "client_ip", address)
	return res, nil
}

// Refresh rotates raw and issues a new pair for the same user. Unknown,
// used, revoked and expired secrets are indistinguishable to the caller.
func (s *SessionService) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	s.maybeSweep(ctx)

	var pair *TokenPair
	err := s.Runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.RefreshTokens.Rotate(ctx, tx, raw)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidRefreshToken
			}
			return err
		}
		pair, err = s.issuePair(ctx, tx, token.UserID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrInvalidRefreshToken) {
			s.Logger.Warn(ctx, "refresh rejected")
		}
		return nil, err
	}
	return pair, nil
}

// Verify resolves an access token to its user. Every rejection is a
// *common.UnauthorizedError whose Reason is meant for logs only.
func (s *SessionService) Verify(ctx context.Context, token string) (*models.UserSummary, error) {
	s.maybeSweep(ctx)

	claims, err := s.Codec.Verify(token)
	if err != nil {
		return nil, s.unauthorized(ctx, common.ReasonInvalidToken, err)
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, s.unauthorized(ctx, common.ReasonInvalidToken, fmt.Errorf("%w: subject %q", common.ErrInvalidToken, claims.Subject))
	}

	blocked, err := s.Blocklist.IsBlocked(ctx, token)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, s.unauthorized(ctx, common.ReasonTokenBlocked, nil)
	}

	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, s.unauthorized(ctx, common.ReasonUserNotFound, nil)
		}
		return nil, err
	}

	summary := user.Summary()
	return &summary, nil
}

// Logout blocks token until its expiry and, when raw is not empty, revokes
// that refresh token too. Logging out twice succeeds both times.
func (s *SessionService) Logout(ctx context.Context, token, raw string) error {
	s.maybeSweep(ctx)

	claims, err := s.Codec.Verify(token)
	if err != nil {
		return s.unauthorized(ctx, common.ReasonInvalidToken, err)
	}

	if err := s.Blocklist.Block(ctx, token, claims.ExpiresAt); err != nil {
		return err
	}

	if raw != "" {
		if _, err := s.RefreshTokens.Revoke(ctx, s.Runner.Conn(), raw); err != nil {
			return err
		}
	}

	s.Logger.Info(ctx, "logout", "user_id", claims.Subject)
	return nil
}

// Sweep purges expired blocklist entries and refresh tokens now.
func (s *SessionService) Sweep(ctx context.Context) error {
	now := s.Now()

	blocked, err := s.Blocklist.PurgeExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("purge blocklist: %w", err)
	}
	refresh, err := s.RefreshTokens.PurgeExpired(ctx, s.Runner.Conn(), now)
	if err != nil {
		return fmt.Errorf("purge refresh tokens: %w", err)
	}

	s.sweepMu.Lock()
	s.lastSweep = now
	s.sweepMu.Unlock()

	if blocked > 0 || refresh > 0 {
		s.Logger.Debug(ctx, "expired tokens purged", "blocklist", blocked, "refresh_tokens", refresh)
	}
	return nil
}

func (s *SessionService) maybeSweep(ctx context.Context) {
	if s.SweepInterval > 0 {
		s.sweepMu.Lock()
		due := s.lastSweep.IsZero() || s.Now().Sub(s.lastSweep) >= s.SweepInterval
		s.sweepMu.Unlock()
		if !due {
			return
		}
	}
	if err := s.Sweep(ctx); err != nil {
		s.Logger.Error(ctx, "token sweep failed", "error", err)
	}
}

func (s *SessionService) issuePair(ctx context.Context, db dbx.DBTX, userID int64) (*TokenPair, error) {
	access, err := s.Codec.Issue(strconv.FormatInt(userID, 10))
	if err != nil {
		return nil, err
	}
	refresh, err := s.RefreshTokens.Issue(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *SessionService) unauthorized(ctx context.Context, reason common.UnauthorizedReason, err error) error {
	s.Logger.Warn(ctx, "unauthorized", "reason", string(reason))
	return &common.UnauthorizedError{Reason: reason, Err: err}
}
