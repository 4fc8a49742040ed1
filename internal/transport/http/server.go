package http

import (
	"github.com/gin-gonic/gin"

	"semantic-plagiarism/internal/bootstrap"
	"semantic-plagiarism/internal/transport/http/handler"
	"semantic-plagiarism/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.RequestID(), middleware.CORS(app.Config.HTTP.AllowedOrigins))
	router.MaxMultipartMemory = app.Config.MaxUploadBytes()

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/", healthHandler.Root)
	router.GET("/health", healthHandler.Health)
	router.GET("/healthz", healthHandler.Check)

	analysisHandler := handler.NewAnalysisHandler(
		app.Analysis,
		app.Config.MaxUploadBytes(),
		app.Config.HTTP.MaxCorpusFiles,
	)
	api := router.Group("/api")
	api.POST("/analyze", analysisHandler.Analyze)
	api.POST("/analyze-text", analysisHandler.AnalyzeText)

	return router
}
