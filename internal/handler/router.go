package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davesep77/evolentra/internal/middleware"
	"github.com/davesep77/evolentra/internal/service"
	authpkg "github.com/davesep77/evolentra/pkg/auth"
	"github.com/davesep77/evolentra/pkg/logger"
	"github.com/davesep77/evolentra/pkg/metrics"
)

// Services are the collaborators the HTTP surface calls into.
type Services struct {
	Users       service.UserService
	Investments service.InvestmentService
	Wallets     service.WalletService
	Withdrawals service.WithdrawalService
	Binary      service.BinaryService
	Scheduler   service.RoiScheduler
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *metrics.Metrics
	Tokens         authpkg.TokenValidator
	Throttle       *middleware.Throttle
	AllowedOrigins []string
	// Live upgrades /ws; nil leaves the route out.
	Live           gin.HandlerFunc
	MetricsHandler http.Handler
	DB             Pinger
}

// NewRouter builds the gin engine with every route.
func NewRouter(svc Services, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(cfg.Log), middleware.CORS(cfg.AllowedOrigins))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	r.GET("/health", health(cfg.DB))
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	authn := middleware.Auth(cfg.Tokens)
	throttle := func(c *gin.Context) { c.Next() }
	if cfg.Throttle != nil {
		throttle = cfg.Throttle.Handler()
	}

	authH := NewAuthHandler(svc.Users)
	investH := NewInvestmentHandler(svc.Investments)
	walletH := NewWalletHandler(svc.Wallets, svc.Withdrawals)
	networkH := NewNetworkHandler(svc.Binary, svc.Users)
	adminH := NewAdminHandler(svc.Withdrawals, svc.Users, svc.Scheduler)

	api := r.Group("/api")
	{
		api.POST("/auth/register", authH.Register)
		api.POST("/auth/login", authH.Login)
		api.GET("/rates", walletH.Rates)
		api.GET("/plans", investH.ListPlans)
		api.POST("/plans/calculate", investH.Calculate)
	}

	user := api.Group("", authn)
	{
		user.GET("/investments", investH.List)
		user.POST("/investments", throttle, investH.Create)
		user.GET("/wallet", walletH.Balances)
		user.GET("/wallet/transactions", walletH.Transactions)
		user.POST("/wallet/withdraw", throttle, walletH.Withdraw)
		user.GET("/wallet/withdrawals", walletH.Withdrawals)
		user.GET("/binary/tree", networkH.Tree)
		user.GET("/referrals", networkH.Referrals)
	}

	admin := api.Group("/admin", authn, middleware.RequireAdmin())
	{
		admin.GET("/withdrawals", adminH.Withdrawals)
		admin.POST("/withdrawals/:id/settle", adminH.Settle)
		admin.POST("/roi/run", adminH.RunRoi)
		admin.PUT("/users/:id/status", adminH.SetUserStatus)
	}

	if cfg.Live != nil {
		r.GET("/ws", authn, cfg.Live)
	}

	return r
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				fail(c, http.StatusServiceUnavailable, "Database unavailable", nil)
				return
			}
		}
		respond(c, http.StatusOK, "ok", nil)
	}
}
