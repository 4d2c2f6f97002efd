package calls

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DataCleaninghash/CustomerAII/internal/calls/repository"
	apphttp "github.com/DataCleaninghash/CustomerAII/internal/http"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

// Module wires the call record read routes. Call execution itself runs on the
// worker; the API process only reads what the executor wrote.
type Module struct {
	handler *Handler
	service *Service
	records *repository.Repository
}

func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	records := repository.NewRepository(pool)
	svc := NewService(records, log)
	return &Module{
		handler: NewHandler(svc),
		service: svc,
		records: records,
	}
}

func (m *Module) Name() string {
	return "calls"
}

// Records exposes the repository for cross-module wiring: the complaints
// facade creates the pending record it hands to the queue.
func (m *Module) Records() *repository.Repository {
	return m.records
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/calls")
	group.GET("/:id", m.handler.GetByID)

	ctx.Protected.GET("/complaints/:id/calls", m.handler.ListByComplaint)
}

var _ apphttp.Module = (*Module)(nil)
