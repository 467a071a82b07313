package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldclock/fieldclock/internal/domain/model"
	"github.com/fieldclock/fieldclock/internal/domain/port/driven"
)

// SessionService handles login and logout on behalf of the capture UI.
type SessionService struct {
	api       driven.AttendanceAPI
	custodian *TokenCustodian
}

// NewSessionService creates a SessionService.
func NewSessionService(api driven.AttendanceAPI, custodian *TokenCustodian) *SessionService {
	return &SessionService{api: api, custodian: custodian}
}

// Login authenticates against the backend and hands the issued pair to the
// custodian.
func (s *SessionService) Login(ctx context.Context, email, password string) (*model.User, error) {
	pair, user, err := s.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.custodian.SetSession(ctx, pair); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	slog.Info("login complete", "email", email)
	return user, nil
}

// Logout blacklists the refresh token on the backend (best-effort) and
// always clears the local session.
func (s *SessionService) Logout(ctx context.Context) error {
	if refresh := s.custodian.refreshToken(); refresh != "" {
		if err := s.api.Logout(ctx, refresh); err != nil {
			slog.Warn("backend logout failed, clearing local session anyway", "error", err)
		}
	}

	if err := s.custodian.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	slog.Info("logout complete")
	return nil
}

// HasSession reports whether a usable session is present.
func (s *SessionService) HasSession() bool {
	return s.custodian.HasSession()
}

// SessionState exposes the custodian state for the status endpoint.
func (s *SessionService) SessionState() CustodianState {
	return s.custodian.State()
}
