package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/atelier/internal/adapter/api/middleware"
	"github.com/atelierhq/atelier/internal/adapter/metrics"
	"github.com/atelierhq/atelier/internal/domain"
	"github.com/atelierhq/atelier/internal/domain/mocks"
	"github.com/atelierhq/atelier/internal/usecase"
)

func newSequenceFixture() (*mocks.MockStore, http.Handler) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewCoreMetrics(prometheus.NewRegistry())
	store := mocks.NewMockStore()
	authz := usecase.NewAuthorizer(store, nil, logger, m)
	sequences := usecase.NewSequences(store, logger, m)

	mux := http.NewServeMux()
	mux.Handle("POST /api/sequences/{category}", NewSequenceHandler(sequences, authz, store, logger))
	return store, mux
}

func doSequenceRequest(t *testing.T, h http.Handler, id domain.Identity, category string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/sequences/"+category, nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSequenceHandler(t *testing.T) {
	admin := domain.Identity{UserID: "user-1", TenantID: "agency-a", Role: domain.RoleAdmin}
	year := time.Now().UTC().Year()

	t.Run("Issues Sequential Codes", func(t *testing.T) {
		_, mux := newSequenceFixture()

		for i, wantSeq := range []string{"0001", "0002"} {
			rec := doSequenceRequest(t, mux, admin, "kn")
			if rec.Code != http.StatusCreated {
				t.Fatalf("request %d: status = %d, want 201", i, rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			want := fmt.Sprintf("KN-%d-%s", year, wantSeq)
			if body["code"] != want {
				t.Errorf("code = %q, want %q", body["code"], want)
			}
		}
	})

	t.Run("Skips Codes Already Taken By Migrated Projects", func(t *testing.T) {
		store, mux := newSequenceFixture()
		migrated := fmt.Sprintf("KN-%d-0001", year)
		err := store.Coll(domain.CollProjects).InsertOne(context.Background(), bson.M{
			"code":      migrated,
			"agency_id": "agency-a",
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}

		rec := doSequenceRequest(t, mux, admin, "kn")
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201", rec.Code)
		}
		var body map[string]string
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body["code"] == migrated {
			t.Errorf("issued a code that already exists: %q", body["code"])
		}
	})

	t.Run("Member Is Forbidden", func(t *testing.T) {
		_, mux := newSequenceFixture()
		member := domain.Identity{UserID: "user-2", TenantID: "agency-a", Role: domain.RoleMember}
		rec := doSequenceRequest(t, mux, member, "kn")
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
	})
}
