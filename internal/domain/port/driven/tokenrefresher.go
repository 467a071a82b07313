package driven

import (
	"context"

	"github.com/fieldclock/fieldclock/internal/domain/model"
)

// TokenRefresher is the driven port for the refresh exchange. It is the only
// backend call the token custodian issues itself; it must not route through
// the authenticated retry path, or a refresh could recursively trigger a
// refresh.
type TokenRefresher interface {
	// RefreshSession exchanges the refresh token for a new access token and
	// possibly a rotated refresh token. A backend rejection is returned as
	// ErrAuthRequired; transport failures as ErrUnreachable.
	RefreshSession(ctx context.Context, refreshToken string) (model.TokenPair, error)
}
