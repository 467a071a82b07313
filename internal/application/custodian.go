// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fieldclock/fieldclock/internal/domain/model"
	"github.com/fieldclock/fieldclock/internal/domain/port/driven"
)

// CustodianState is the refresh state machine position.
type CustodianState string

const (
	// StateIdle means no refresh is in flight and the session, if any, is
	// usable.
	StateIdle CustodianState = "idle"
	// StateRefreshing means a refresh exchange is in flight; further refresh
	// requests attach to it instead of starting a second exchange.
	StateRefreshing CustodianState = "refreshing"
	// StateInvalidated means the refresh token was rejected or absent. The
	// state is terminal until a new login installs a fresh session.
	StateInvalidated CustodianState = "invalidated"
)

// TokenCustodian owns the access/refresh credential pair. It is the only
// component that mutates tokens: login and logout go through SetSession and
// Clear, and the request gateway asks it to Refresh when the backend rejects
// an access token. Refresh is single-flight: concurrent callers share one
// exchange and its result.
type TokenCustodian struct {
	refresher driven.TokenRefresher
	creds     driven.CredentialStore

	group singleflight.Group

	mu    sync.Mutex
	pair  model.TokenPair
	state CustodianState
}

// NewTokenCustodian creates a custodian with no session loaded.
func NewTokenCustodian(refresher driven.TokenRefresher, creds driven.CredentialStore) *TokenCustodian {
	return &TokenCustodian{
		refresher: refresher,
		creds:     creds,
		state:     StateIdle,
	}
}

// Load hydrates the pair from persistence at startup. A missing encryption
// key is tolerated: the daemon runs with in-memory tokens only.
func (c *TokenCustodian) Load(ctx context.Context) error {
	access, err := c.creds.Get(ctx, driven.KeyAccessToken)
	if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		slog.Warn("credential persistence disabled, session will not survive restart")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load access token: %w", err)
	}

	refresh, err := c.creds.Get(ctx, driven.KeyRefreshToken)
	if err != nil {
		return fmt.Errorf("load refresh token: %w", err)
	}

	c.mu.Lock()
	c.pair = model.TokenPair{Access: access, Refresh: refresh}
	c.state = StateIdle
	c.mu.Unlock()

	if refresh != "" {
		slog.Info("session restored from persistence")
	}
	return nil
}

// AccessToken returns the current access token, or "" when absent. Never
// blocks on I/O.
func (c *TokenCustodian) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair.Access
}

// State returns the current state machine position.
func (c *TokenCustodian) State() CustodianState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// HasSession reports whether a usable session is present: a refresh token
// exists and the custodian has not been invalidated.
func (c *TokenCustodian) HasSession() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateInvalidated && c.pair.HasRefresh()
}

// SetSession installs a new pair after login and persists it. Also clears an
// Invalidated state.
func (c *TokenCustodian) SetSession(ctx context.Context, pair model.TokenPair) error {
	c.mu.Lock()
	c.pair = pair
	c.state = StateIdle
	c.mu.Unlock()

	return c.persist(ctx, pair)
}

// Clear drops the session from memory and persistence. Used on logout.
func (c *TokenCustodian) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.pair = model.TokenPair{}
	c.state = StateIdle
	c.mu.Unlock()

	return c.unpersist(ctx)
}

// Refresh exchanges the refresh token for a new access token. Single-flight:
// while an exchange is in flight every additional caller parks on it and
// receives the same result without a second exchange being issued. A backend
// rejection clears both tokens and leaves the custodian Invalidated; a
// transport failure leaves the session untouched for a later retry.
func (c *TokenCustodian) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		return nil, c.refreshExchange(ctx)
	})
	return err
}

func (c *TokenCustodian) refreshExchange(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateInvalidated {
		c.mu.Unlock()
		return fmt.Errorf("session invalidated: %w", driven.ErrAuthRequired)
	}
	refresh := c.pair.Refresh
	if refresh == "" {
		c.pair = model.TokenPair{}
		c.state = StateInvalidated
		c.mu.Unlock()
		return fmt.Errorf("no refresh token: %w", driven.ErrAuthRequired)
	}
	c.state = StateRefreshing
	c.mu.Unlock()

	pair, err := c.refresher.RefreshSession(ctx, refresh)
	if err != nil {
		if errors.Is(err, driven.ErrAuthRequired) {
			c.invalidate(ctx)
			slog.Warn("refresh token rejected, session invalidated")
			return err
		}
		// Transport failure: the session may still be good; leave it alone.
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.pair = pair
	c.state = StateIdle
	c.mu.Unlock()

	slog.Debug("access token refreshed")
	return c.persist(ctx, pair)
}

// invalidate clears tokens everywhere and parks the state machine in
// Invalidated until the next login.
func (c *TokenCustodian) invalidate(ctx context.Context) {
	c.mu.Lock()
	c.pair = model.TokenPair{}
	c.state = StateInvalidated
	c.mu.Unlock()

	if err := c.unpersist(ctx); err != nil {
		slog.Error("failed to clear persisted tokens", "error", err)
	}
}

// refreshToken returns the current refresh token for logout.
func (c *TokenCustodian) refreshToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair.Refresh
}

func (c *TokenCustodian) persist(ctx context.Context, pair model.TokenPair) error {
	if err := c.creds.Set(ctx, driven.KeyAccessToken, pair.Access); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			return nil
		}
		return fmt.Errorf("persist access token: %w", err)
	}
	if err := c.creds.Set(ctx, driven.KeyRefreshToken, pair.Refresh); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	return nil
}

func (c *TokenCustodian) unpersist(ctx context.Context) error {
	if err := c.creds.Delete(ctx, driven.KeyAccessToken); err != nil {
		if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
			return nil
		}
		return fmt.Errorf("clear access token: %w", err)
	}
	if err := c.creds.Delete(ctx, driven.KeyRefreshToken); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
