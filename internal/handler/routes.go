package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"coinboard-api/internal/svc"
)

// RegisterHandlers wires the dashboard-facing routes.
func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes([]rest.Route{
		{
			Method:  http.MethodGet,
			Path:    "/api/v1/market/:asset",
			Handler: MarketSnapshotHandler(serverCtx),
		},
		{
			Method:  http.MethodGet,
			Path:    "/api/v1/market/:asset/csv",
			Handler: MarketCSVHandler(serverCtx),
		},
	})
}
