package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/atelier/internal/adapter/cache"
	"github.com/atelierhq/atelier/internal/adapter/metrics"
	"github.com/atelierhq/atelier/internal/adapter/store/scoped"
	"github.com/atelierhq/atelier/internal/domain"
)

// Authorizer derives a caller's effective permissions: role gate,
// finance gate and the set of business verticals visible to them. All
// checks are read-only and side-effect-free.
type Authorizer struct {
	store   domain.Store
	configs *cache.ConfigCache
	logger  *slog.Logger
	metrics *metrics.CoreMetrics
}

// NewAuthorizer creates an Authorizer. The config cache is optional;
// pass nil to always read tenant configuration from the store.
func NewAuthorizer(store domain.Store, configs *cache.ConfigCache, logger *slog.Logger, m *metrics.CoreMetrics) *Authorizer {
	return &Authorizer{
		store:   store,
		configs: configs,
		logger:  logger.With("component", "authz"),
		metrics: m,
	}
}

// RequireRole passes iff the identity's role is one of the allowed
// roles. Membership is checked exactly: callers must spell out every
// acceptable role, there is no implicit "admin implies member".
func (a *Authorizer) RequireRole(id domain.Identity, allowed ...domain.Role) error {
	for _, role := range allowed {
		if id.Role == role {
			return nil
		}
	}
	if a.metrics != nil {
		a.metrics.AuthzDenied.WithLabelValues("role").Inc()
	}
	a.logger.Warn("role gate denied", "user_id", id.UserID, "role", id.Role)
	return fmt.Errorf("role %q not permitted: %w", id.Role, domain.ErrForbidden)
}

// RequireFinanceAccess passes for owners and admins unconditionally;
// members need the explicit finance opt-in grant.
func (a *Authorizer) RequireFinanceAccess(id domain.Identity) error {
	if id.Role == domain.RoleOwner || id.Role == domain.RoleAdmin {
		return nil
	}
	if id.FinanceAccess {
		return nil
	}
	if a.metrics != nil {
		a.metrics.AuthzDenied.WithLabelValues("finance").Inc()
	}
	a.logger.Warn("finance gate denied", "user_id", id.UserID, "role", id.Role)
	return fmt.Errorf("finance access denied: %w", domain.ErrForbidden)
}

// ResolveVerticals returns the verticals visible to the identity:
// owners see everything the tenant configured; other roles see their
// allow-list intersected with the configured set, except that an empty
// allow-list means "no restriction configured yet" and resolves to the
// full configured set. That default-open behavior is a deliberate
// backward-compatibility choice.
//
// Resolution never fails on missing configuration: a tenant with no
// config document simply has no configured verticals.
func (a *Authorizer) ResolveVerticals(ctx context.Context, id domain.Identity) ([]string, error) {
	cfg, err := a.tenantConfig(ctx, id.TenantID)
	if err != nil {
		return nil, err
	}
	configured := cfg.VerticalIDs()

	if id.Role == domain.RoleOwner || len(id.AllowedVerticals) == 0 {
		return configured, nil
	}

	allowed := make(map[string]struct{}, len(id.AllowedVerticals))
	for _, v := range id.AllowedVerticals {
		allowed[v] = struct{}{}
	}
	visible := make([]string, 0, len(configured))
	for _, v := range configured {
		if _, ok := allowed[v]; ok {
			visible = append(visible, v)
		}
	}
	return visible, nil
}

// tenantConfig reads the agency config through the scope guard,
// consulting the redis cache first when one is configured.
func (a *Authorizer) tenantConfig(ctx context.Context, tenantID string) (*domain.AgencyConfig, error) {
	if a.configs != nil {
		if cfg, ok := a.configs.Get(ctx, tenantID); ok {
			if a.metrics != nil {
				a.metrics.ConfigCacheHits.Inc()
			}
			return cfg, nil
		}
		if a.metrics != nil {
			a.metrics.ConfigCacheMisses.Inc()
		}
	}

	var cfg domain.AgencyConfig
	err := scoped.ForTenant(a.store, tenantID).AgencyConfigs().FindOne(ctx, bson.M{}, &cfg)
	if errors.Is(err, domain.ErrNotFound) {
		// No config yet: degrade to an empty configured set.
		return &domain.AgencyConfig{AgencyID: tenantID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read agency config: %w", err)
	}

	if a.configs != nil {
		a.configs.Set(ctx, tenantID, &cfg)
	}
	return &cfg, nil
}
