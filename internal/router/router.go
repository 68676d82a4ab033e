package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/unitshop/internal/cache"
	"github.com/unitshop/internal/config"
	adminhandlers "github.com/unitshop/internal/http/handlers/admin"
	publichandlers "github.com/unitshop/internal/http/handlers/public"
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/logger"
	"github.com/unitshop/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "us"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.LoginRateLimit.BlockSeconds,
	}
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.CheckoutRateLimit.BlockSeconds,
	}

	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
		cfg.CORS.AllowCredentials,
		cfg.CORS.MaxAge,
	))
	r.NoRoute(func(ctx *gin.Context) {
		abortWithError(ctx, response.CodeNotFound, "error.not_found")
	})
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/auth/token", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("telegram_id")), publicHandler.IssueToken)

		user := apiV1.Group("")
		user.Use(UserJWTMiddleware(c.UserAuthService))
		{
			user.GET("/products", publicHandler.GetProducts)
			user.GET("/products/:id", publicHandler.GetProduct)

			user.GET("/cart", publicHandler.GetCart)
			user.POST("/cart/items", publicHandler.AddCartItem)
			user.PUT("/cart/items/:id", publicHandler.UpdateCartItem)
			user.DELETE("/cart/items/:id", publicHandler.DeleteCartItem)
			user.DELETE("/cart", publicHandler.ClearCart)

			user.POST("/checkout", RateLimitMiddleware(redisClient, checkoutRule, KeyByUser), publicHandler.Checkout)
			user.GET("/charges/:charge_no", publicHandler.GetCharge)

			user.GET("/wallet", publicHandler.GetWallet)
			user.GET("/wallet/transactions", publicHandler.ListWalletTransactions)
			user.GET("/wallet/deposits", publicHandler.ListDeposits)
			user.POST("/wallet/top-up", RateLimitMiddleware(redisClient, checkoutRule, KeyByUser), publicHandler.TopUp)

			user.GET("/sales", publicHandler.ListSales)
			user.GET("/sales/:id", publicHandler.GetSale)
		}

		admin := apiV1.Group("/admin")
		{
			admin.GET("/captcha", adminHandler.Captcha)
			admin.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")), adminHandler.Login)

			session := admin.Group("")
			session.Use(AdminJWTMiddleware(c.AuthService))
			session.GET("/me", adminHandler.Me)

			authorized := admin.Group("")
			authorized.Use(AdminJWTMiddleware(c.AuthService), AdminRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/products", adminHandler.ListProducts)
				authorized.POST("/products", adminHandler.CreateProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateProduct)
				authorized.GET("/products/:id/units", adminHandler.ListUnits)
				authorized.POST("/products/:id/units", adminHandler.ImportUnits)
				authorized.DELETE("/products/:id/units", adminHandler.ReleaseUnsold)
				authorized.GET("/products/:id/stock", adminHandler.GetStock)
				authorized.POST("/products/:id/stock/recompute", adminHandler.RecomputeStock)

				authorized.GET("/users", adminHandler.ListUsers)
				authorized.POST("/users/:id/block", adminHandler.SetUserBlocked)
				authorized.POST("/users/:id/balance", adminHandler.AdjustUserBalance)
				authorized.GET("/users/:id/transactions", adminHandler.ListUserTransactions)

				authorized.GET("/bonuses", adminHandler.ListBonuses)
				authorized.POST("/bonuses", adminHandler.CreateBonus)
				authorized.DELETE("/bonuses/:id", adminHandler.DeactivateBonus)

				authorized.GET("/reconciliations", adminHandler.ListReconciliations)
				authorized.POST("/reconciliations/:id/refund", adminHandler.RefundReconciliation)
				authorized.POST("/reconciliations/:id/dismiss", adminHandler.DismissReconciliation)

				authorized.GET("/sales", adminHandler.ListSales)
				authorized.GET("/sales/:id", adminHandler.GetSale)

				authorized.GET("/authz/roles", adminHandler.ListRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAdminRoles)
			}
		}
	}

	return r
}
