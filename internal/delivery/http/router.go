package http

import (
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	custommiddleware "cryptosniper/internal/middleware"
	"cryptosniper/internal/monitoring"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	AuthHandler      *AuthHandler
	UserHandler      *UserHandler
	StrategyHandler  *StrategyHandler
	PositionHandler  *PositionHandler
	PortfolioHandler *PortfolioHandler

	SessionAuth *custommiddleware.SessionAuth
	AuthLimiter *custommiddleware.RateLimiter
	Metrics     *monitoring.Metrics
	Logger      *zap.Logger

	AllowOrigins   []string
	BodyLimit      string
	TrustedProxies []*net.IPNet
}

// NewServer builds the echo instance with every route registered
func NewServer(config *RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(config.Logger, config.Metrics)
	e.IPExtractor = ipExtractor(config.TrustedProxies)

	SetupRoutes(e, config)
	return e
}

// ipExtractor picks the client address the rate limiter keys on. Forwarding
// headers are honoured only when they arrive from a trusted proxy.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, ipNet := range trusted {
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging for health checks to reduce noise
			return c.Request().URL.Path == "/health"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			config.Logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     config.AllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(middleware.Secure())
	if config.Metrics != nil {
		e.Use(custommiddleware.RequestMetrics(config.Metrics))
	}
	if config.BodyLimit != "" {
		e.Use(middleware.BodyLimit(config.BodyLimit))
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return SuccessResponse(c, map[string]interface{}{
			"status":    "healthy",
			"service":   "cryptosniper-api",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// API group
	api := e.Group("/api")

	// Auth routes (public, rate limited per IP)
	authMiddleware := []echo.MiddlewareFunc{}
	if config.AuthLimiter != nil {
		authMiddleware = append(authMiddleware, config.AuthLimiter.Middleware)
	}
	auth := api.Group("/auth", authMiddleware...)
	{
		auth.POST("/signup", config.AuthHandler.Signup)
		auth.POST("/verify-otp", config.AuthHandler.VerifyOTP)
		auth.POST("/complete-registration", config.AuthHandler.CompleteRegistration)
		auth.POST("/signin", config.AuthHandler.SignIn)
		auth.POST("/signout", config.AuthHandler.SignOut)
	}

	// Everything below requires a live session
	requireSession := config.SessionAuth.Middleware

	api.GET("/user", config.UserHandler.GetMe, requireSession)

	strategies := api.Group("/strategies", requireSession)
	{
		strategies.GET("", config.StrategyHandler.List)
		strategies.GET("/deployed", config.StrategyHandler.ListDeployed)
		strategies.GET("/:id", config.StrategyHandler.Get)
		strategies.POST("", config.StrategyHandler.Create)
		strategies.PATCH("/:id", config.StrategyHandler.Update)
		strategies.DELETE("/:id", config.StrategyHandler.Delete)
	}

	positions := api.Group("/positions", requireSession)
	{
		positions.GET("", config.PositionHandler.List)
		positions.GET("/:id", config.PositionHandler.Get)
		positions.POST("", config.PositionHandler.Create)
		positions.PATCH("/:id", config.PositionHandler.Update)
		positions.DELETE("/:id", config.PositionHandler.Delete)
	}

	portfolio := api.Group("/portfolio", requireSession)
	{
		portfolio.GET("", config.PortfolioHandler.GetLatest)
		portfolio.GET("/history", config.PortfolioHandler.GetHistory)
		portfolio.POST("/snapshot", config.PortfolioHandler.CreateSnapshot)
	}
}
