// Package server is the HTTP surface over the aggregation and staking
// engine. Handlers stay thin: parse, call a service, wrap in the response
// envelope. Errors flow to the shared error handler.
package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/ZILLABB/cryptonested-sub001/internal/dashboard"
	"github.com/ZILLABB/cryptonested-sub001/internal/marketdata"
	"github.com/ZILLABB/cryptonested-sub001/internal/portfolio"
	"github.com/ZILLABB/cryptonested-sub001/internal/staking"
	"github.com/ZILLABB/cryptonested-sub001/pkg/metrics"
	"github.com/ZILLABB/cryptonested-sub001/pkg/middleware"
	"github.com/ZILLABB/cryptonested-sub001/pkg/response"
)

// Server wires handlers to services and owns the Fiber app.
type Server struct {
	app        *fiber.App
	market     *marketdata.Gateway
	portfolio  *portfolio.Service
	staking    *staking.Service
	aggregator *dashboard.Aggregator
	hub        *Hub
	rateLimit  middleware.RateLimitConfig
}

type Option func(*Server)

// WithRateLimit enables the per-IP rate limiter on every route.
func WithRateLimit(cfg middleware.RateLimitConfig) Option {
	return func(s *Server) {
		s.rateLimit = cfg
	}
}

func New(market *marketdata.Gateway, portfolioSvc *portfolio.Service, stakingSvc *staking.Service, aggregator *dashboard.Aggregator, hub *Hub, opts ...Option) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:      "CryptoNested",
			ErrorHandler: response.ErrorHandler,
		}),
		market:     market,
		portfolio:  portfolioSvc,
		staking:    stakingSvc,
		aggregator: aggregator,
		hub:        hub,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// App exposes the Fiber app for main and for tests via app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) routes() {
	s.app.Use(recover.New())
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.SecurityHeaders())
	if s.rateLimit.Max > 0 {
		s.app.Use(middleware.RateLimiter(s.rateLimit))
	}
	s.app.Use(middleware.UserID())
	s.app.Use(middleware.Logger())
	s.app.Use(metrics.Middleware("/health", "/metrics"))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-User-ID, X-Request-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "cryptonested",
		})
	})
	s.app.Get("/metrics", metrics.Handler())

	api := s.app.Group("/api/v1")

	api.Get("/dashboard", s.getDashboard)

	market := api.Group("/market")
	market.Get("/top", s.getTopCoins)
	market.Get("/summary", s.getMarketSummary)
	market.Get("/movers", s.getMovers)
	market.Get("/coins/:id", s.getCoin)

	pf := api.Group("/portfolio")
	pf.Get("/holdings", s.getHoldings)
	pf.Get("/allocation", s.getAllocation)
	pf.Get("/performance", s.getPerformance)
	pf.Get("/transactions", s.getTransactions)
	pf.Post("/transactions", s.recordTransaction)
	pf.Post("/snapshots", s.takeSnapshot)

	st := api.Group("/staking")
	st.Get("/plans", s.getPlans)
	st.Get("/plans/:id", s.getPlan)
	st.Get("/positions", s.getPositions)
	st.Post("/positions", s.stake)
	st.Post("/positions/:id/withdraw", s.withdraw)
	st.Get("/summary", s.getStakingSummary)

	if s.hub != nil {
		s.app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		s.app.Get("/ws/prices", websocket.New(func(c *websocket.Conn) {
			client := NewClient(uuid.New().String(), c, s.hub)
			s.hub.Register(client)
			go client.WritePump()
			client.ReadPump()
		}))
	}
}

// requireUser returns the caller's identity or an upstream-auth failure.
func requireUser(c *fiber.Ctx) (string, error) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Missing X-User-ID header")
	}
	return userID, nil
}
