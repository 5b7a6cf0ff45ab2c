package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/financial-advisor/backend/internal/advisor"
	"example.com/financial-advisor/backend/internal/config"
	"example.com/financial-advisor/backend/internal/handlers"
	"example.com/financial-advisor/backend/internal/llm"
	"example.com/financial-advisor/backend/internal/repository"
)

// New собирает HTTP-сервер Echo с роутами и зависимостями.
func New(cfg config.Config, logger *slog.Logger, db *pgxpool.Pool) *echo.Echo {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	primary := llm.NewOpenAIClient(
		cfg.AI.OpenAIAPIKey,
		cfg.AI.OpenAIBaseURL,
		cfg.AI.OpenAIModel,
		cfg.AI.OpenAITimeout,
		cfg.AI.MaxOutputTokens,
	)

	secondaries := make([]llm.Client, 0, len(cfg.AI.HFModels))
	for _, model := range cfg.AI.HFModels {
		secondaries = append(secondaries, llm.NewHuggingFaceClient(
			cfg.AI.HFAPIKey,
			cfg.AI.HFBaseURL,
			model,
			cfg.AI.HFTimeout,
			cfg.AI.MaxOutputTokens,
		))
	}

	dispatcher := advisor.NewDispatcher(primary, secondaries, cfg.AI.SecondaryTimeout, logger)
	adviceService := advisor.NewService(dispatcher, cfg.Sources, logger)
	adviceRepo := repository.NewAdviceRepository(db)
	adviceHandler := handlers.NewAdviceHandler(adviceService, adviceRepo)

	registerRoutes(e, adviceHandler, aiRateLimiter(cfg.AI))

	return e
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func aiRateLimiter(cfg config.AIConfig) echo.MiddlewareFunc {
	limit := rate.Limit(float64(cfg.RateLimitPerMinute) / 60.0)
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      limit,
		Burst:     cfg.RateLimitBurst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiter(store)
}
