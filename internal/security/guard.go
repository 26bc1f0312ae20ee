package security

import (
	"fmt"
	"log/slog"

	"github.com/yourorg/audiometry/internal/domain"
)

// Guard decides whether a verified identity may act within a tenant. The
// check is a pure set-membership test over the immutable user-to-tenant
// mapping; membership lists are small enough that a linear scan needs no
// index.
type Guard struct {
	store  domain.Store
	logger *slog.Logger
}

// NewGuard creates an access control guard
func NewGuard(store domain.Store, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{store: store, logger: logger}
}

// Authorize allows the request when the user is a member of the tenant and
// returns domain.ErrAccessDenied otherwise.
func (g *Guard) Authorize(userID, tenantID string) error {
	memberships, err := g.store.TenantMemberships(userID)
	if err != nil {
		return fmt.Errorf("load memberships for %s: %w", userID, err)
	}
	for _, id := range memberships {
		if id == tenantID {
			return nil
		}
	}
	g.logger.Warn("tenant access denied",
		slog.String("user_id", userID),
		slog.String("tenant_id", tenantID),
	)
	return fmt.Errorf("tenant %s: %w", tenantID, domain.ErrAccessDenied)
}
