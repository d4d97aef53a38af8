package api

import (
	"go-hts-pipeline/internal/api/handler"
	"go-hts-pipeline/pkg/router"

	_ "go-hts-pipeline/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter builds the API router with all model routes and the swagger UI.
func NewRouter() *router.Router {
	r := router.New()
	RegisterRoutes(r)
	return r
}

func RegisterRoutes(r *router.Router) {
	r.POST("/api/v1/models", handler.CreateModel)
	r.GET("/api/v1/models", handler.ListModels)
	// The router ranks overlapping wildcards by specificity, so these win
	// over the generic /api/v1/models/* routes regardless of order.
	r.GET("/api/v1/models/*/matrix", handler.GetModelMatrix)
	r.GET("/api/v1/models/*/series", handler.GetModelSeries)
	r.GET("/api/v1/models/*/summary", handler.GetModelSummary)
	r.GET("/api/v1/models/*/errors", handler.GetModelErrors)
	r.GET("/api/v1/models/*/logs", handler.GetModelLogs)
	r.GET("/api/v1/models/*/progress", handler.GetModelProgress)
	r.POST("/api/v1/models/*/rebuild", handler.RebuildModel)
	r.GET("/api/v1/download/*", handler.DownloadFile)
	// Generic model routes
	r.DELETE("/api/v1/models/*", handler.DeleteModel)
	r.GET("/api/v1/models/*", handler.GetModel)

	r.GET("/swagger/*", httpSwagger.WrapHandler.ServeHTTP)
}
