package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/atelierhq/atelier/internal/adapter/api/middleware"
	"github.com/atelierhq/atelier/internal/adapter/store/scoped"
	"github.com/atelierhq/atelier/internal/domain"
	"github.com/atelierhq/atelier/internal/usecase"
)

// SequenceHandler issues the next human-readable code for a category,
// checking it against existing project codes before handing it out.
type SequenceHandler struct {
	sequences *usecase.Sequences
	authz     *usecase.Authorizer
	store     domain.Store
	logger    *slog.Logger
}

// NewSequenceHandler creates a new SequenceHandler.
func NewSequenceHandler(sequences *usecase.Sequences, authz *usecase.Authorizer, store domain.Store, logger *slog.Logger) *SequenceHandler {
	return &SequenceHandler{
		sequences: sequences,
		authz:     authz,
		store:     store,
		logger:    logger,
	}
}

// ServeHTTP handles POST /api/sequences/{category}.
func (h *SequenceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// Only owners and admins create records, so only they draw ids.
	if err := h.authz.RequireRole(id, domain.RoleOwner, domain.RoleAdmin); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	category := r.PathValue("category")
	projects := scoped.ForTenant(h.store, id.TenantID).Projects()
	taken := func(ctx context.Context, code string) (bool, error) {
		n, err := projects.CountDocuments(ctx, bson.M{"code": code})
		if err != nil {
			return false, err
		}
		return n > 0, nil
	}

	code, err := h.sequences.NextUnique(r.Context(), id.TenantID, category, taken)
	if err != nil {
		h.logger.Error("failed to issue sequence identifier", "error", err, "category", category)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]string{"code": code}); err != nil {
		h.logger.Error("failed to encode sequence response", "error", err)
	}
}
