package api

import (
	"log/slog"
	"net/http"

	"github.com/atelierhq/atelier/internal/adapter/api/handler"
	"github.com/atelierhq/atelier/internal/adapter/api/middleware"
	"github.com/atelierhq/atelier/internal/domain"
	"github.com/atelierhq/atelier/internal/pkg/config"
	"github.com/atelierhq/atelier/internal/usecase"
)

// NewRouter wires the sample API surface over the tenancy core. The
// bulk of the CRUD routes live with the application layer; the core
// only demonstrates its boundary here.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	store domain.Store,
	authz *usecase.Authorizer,
	sequences *usecase.Sequences,
	audit *usecase.AuditLog,
) http.Handler {
	mux := http.NewServeMux()

	historyHandler := handler.NewHistoryHandler(authz, audit, logger)
	sequenceHandler := handler.NewSequenceHandler(sequences, authz, store, logger)

	authMiddleware := middleware.Auth(cfg.JWTSecret, logger)
	loggingMiddleware := middleware.Logging(logger)

	mux.Handle("GET /api/tasks/{id}/history", authMiddleware(loggingMiddleware(historyHandler)))
	mux.Handle("POST /api/sequences/{category}", authMiddleware(loggingMiddleware(sequenceHandler)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}
