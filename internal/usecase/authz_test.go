package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/atelier/internal/adapter/metrics"
	"github.com/atelierhq/atelier/internal/domain"
	"github.com/atelierhq/atelier/internal/domain/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *metrics.CoreMetrics {
	return metrics.NewCoreMetrics(prometheus.NewRegistry())
}

func seedConfig(t *testing.T, store *mocks.MockStore, tenantID string, verticalIDs ...string) {
	t.Helper()
	verticals := make(bson.A, 0, len(verticalIDs))
	for _, id := range verticalIDs {
		verticals = append(verticals, bson.M{"id": id, "name": id})
	}
	err := store.Coll(domain.CollAgencyConfigs).InsertOne(context.Background(), bson.M{
		"agency_id": tenantID,
		"verticals": verticals,
	})
	if err != nil {
		t.Fatalf("seed config: %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	authz := NewAuthorizer(mocks.NewMockStore(), nil, testLogger(), testMetrics())

	t.Run("Allowed Role Passes", func(t *testing.T) {
		id := domain.Identity{UserID: "u1", TenantID: "agency-a", Role: domain.RoleAdmin}
		if err := authz.RequireRole(id, domain.RoleOwner, domain.RoleAdmin); err != nil {
			t.Fatalf("expected pass, got %v", err)
		}
	})

	t.Run("Disallowed Role Is Forbidden", func(t *testing.T) {
		id := domain.Identity{UserID: "u1", TenantID: "agency-a", Role: domain.RoleMember}
		err := authz.RequireRole(id, domain.RoleOwner, domain.RoleAdmin)
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("No Implicit Role Ordering", func(t *testing.T) {
		// Owner outranks member in business terms, but the gate checks
		// exact membership only.
		id := domain.Identity{UserID: "u1", TenantID: "agency-a", Role: domain.RoleOwner}
		if err := authz.RequireRole(id, domain.RoleMember); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})
}

func TestRequireFinanceAccess(t *testing.T) {
	authz := NewAuthorizer(mocks.NewMockStore(), nil, testLogger(), testMetrics())

	cases := []struct {
		name    string
		id      domain.Identity
		wantErr bool
	}{
		{"Owner Passes", domain.Identity{Role: domain.RoleOwner}, false},
		{"Admin Passes", domain.Identity{Role: domain.RoleAdmin}, false},
		{"Member Without Grant Is Forbidden", domain.Identity{Role: domain.RoleMember}, true},
		{"Member With Grant Passes", domain.Identity{Role: domain.RoleMember, FinanceAccess: true}, false},
		{"Viewer Without Grant Is Forbidden", domain.Identity{Role: domain.RoleViewer}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := authz.RequireFinanceAccess(tc.id)
			if tc.wantErr && !errors.Is(err, domain.ErrForbidden) {
				t.Fatalf("expected ErrForbidden, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("expected pass, got %v", err)
			}
		})
	}
}

func TestResolveVerticals(t *testing.T) {
	ctx := context.Background()

	t.Run("Owner Sees All Regardless Of Allow-List", func(t *testing.T) {
		store := mocks.NewMockStore()
		seedConfig(t, store, "agency-a", "weddings", "corporate")
		authz := NewAuthorizer(store, nil, testLogger(), testMetrics())

		id := domain.Identity{TenantID: "agency-a", Role: domain.RoleOwner, AllowedVerticals: []string{"weddings"}}
		got, err := authz.ResolveVerticals(ctx, id)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !reflect.DeepEqual(got, []string{"weddings", "corporate"}) {
			t.Errorf("got %v, want all configured verticals", got)
		}
	})

	t.Run("Empty Allow-List Means No Restriction", func(t *testing.T) {
		store := mocks.NewMockStore()
		seedConfig(t, store, "agency-a", "weddings", "corporate")
		authz := NewAuthorizer(store, nil, testLogger(), testMetrics())

		id := domain.Identity{TenantID: "agency-a", Role: domain.RoleMember}
		got, err := authz.ResolveVerticals(ctx, id)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !reflect.DeepEqual(got, []string{"weddings", "corporate"}) {
			t.Errorf("got %v, want all configured verticals", got)
		}
	})

	t.Run("Allow-List Intersects Configured Set", func(t *testing.T) {
		store := mocks.NewMockStore()
		seedConfig(t, store, "agency-a", "weddings", "corporate")
		authz := NewAuthorizer(store, nil, testLogger(), testMetrics())

		id := domain.Identity{TenantID: "agency-a", Role: domain.RoleMember, AllowedVerticals: []string{"corporate", "films"}}
		got, err := authz.ResolveVerticals(ctx, id)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if !reflect.DeepEqual(got, []string{"corporate"}) {
			t.Errorf("got %v, want [corporate]", got)
		}
	})

	t.Run("Disjoint Allow-List Resolves To Empty", func(t *testing.T) {
		store := mocks.NewMockStore()
		seedConfig(t, store, "agency-a", "y")
		authz := NewAuthorizer(store, nil, testLogger(), testMetrics())

		id := domain.Identity{TenantID: "agency-a", Role: domain.RoleMember, AllowedVerticals: []string{"x"}}
		got, err := authz.ResolveVerticals(ctx, id)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %v, want empty", got)
		}
	})

	t.Run("Missing Config Degrades To Empty, Never Fails", func(t *testing.T) {
		authz := NewAuthorizer(mocks.NewMockStore(), nil, testLogger(), testMetrics())

		id := domain.Identity{TenantID: "agency-a", Role: domain.RoleOwner}
		got, err := authz.ResolveVerticals(ctx, id)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %v, want empty", got)
		}
	})

	t.Run("Config Read Is Tenant-Scoped", func(t *testing.T) {
		store := mocks.NewMockStore()
		seedConfig(t, store, "agency-a", "weddings")
		authz := NewAuthorizer(store, nil, testLogger(), testMetrics())

		id := domain.Identity{TenantID: "agency-b", Role: domain.RoleOwner}
		got, err := authz.ResolveVerticals(ctx, id)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("tenant b resolved tenant a's verticals: %v", got)
		}
	})
}
