package server

import (
	"github.com/labstack/echo/v4"

	"example.com/financial-advisor/backend/internal/handlers"
)

func registerRoutes(
	e *echo.Echo,
	adviceHandler *handlers.AdviceHandler,
	aiRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", handlers.Health)

	api := e.Group("/api/v1")

	advice := api.Group("/advice")
	advice.POST("", adviceHandler.Generate, aiRateLimiter)
	advice.GET("/history", adviceHandler.History)
	advice.GET("/history/:id", adviceHandler.HistoryEntry)
	advice.GET("/history/:id/budget.csv", adviceHandler.BudgetCSV)
}
