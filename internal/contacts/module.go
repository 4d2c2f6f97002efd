package contacts

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "github.com/DataCleaninghash/CustomerAII/internal/http"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
	"github.com/DataCleaninghash/CustomerAII/platform/validator"
)

// Module wires the internal contact directory routes.
type Module struct {
	handler *Handler
	service *Service
	cache   *Repository
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	cache := NewRepository(pool)
	svc := NewService(cache, log)
	return &Module{
		handler: NewHandler(svc, val),
		service: svc,
		cache:   cache,
	}
}

func (m *Module) Name() string {
	return "contacts"
}

// Cache exposes the repository for composition: the caching resolver used by
// the complaints facade reads and writes the same table the ops endpoints do.
func (m *Module) Cache() *Repository {
	return m.cache
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Internal.Group("/contacts")
	group.GET("/:company", m.handler.GetEntry)
	group.PUT("/:company", m.handler.UpsertEntry)
}

var _ apphttp.Module = (*Module)(nil)
