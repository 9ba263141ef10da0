package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/atelierhq/atelier/internal/adapter/api/middleware"
	"github.com/atelierhq/atelier/internal/domain"
	"github.com/atelierhq/atelier/internal/usecase"
)

// HistoryHandler serves the audit trail for a task. It is the sample
// surface showing how handlers consume the core: identity from
// context, role gate, then a tenant-scoped read.
type HistoryHandler struct {
	authz  *usecase.Authorizer
	audit  *usecase.AuditLog
	logger *slog.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(authz *usecase.Authorizer, audit *usecase.AuditLog, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		authz:  authz,
		audit:  audit,
		logger: logger,
	}
}

// ServeHTTP handles GET /api/tasks/{id}/history.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.authz.RequireRole(id, domain.RoleOwner, domain.RoleAdmin, domain.RoleMember); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	taskID := r.PathValue("id")
	entries, err := h.audit.History(r.Context(), id.TenantID, taskID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			entries = nil
		} else {
			h.logger.Error("failed to read task history", "error", err, "task_id", taskID)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		h.logger.Error("failed to encode history response", "error", err)
	}
}
