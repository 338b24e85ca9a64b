package apiroutes

import (
	"github.com/gin-gonic/gin"
	"github.com/mintbay/go-mintbay-server/api"
	"github.com/mintbay/go-mintbay-server/api/interceptors"
	"github.com/mintbay/go-mintbay-server/global"
	"github.com/mintbay/go-mintbay-server/metrics"
	"github.com/mintbay/go-mintbay-server/ratelimit"
	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/services"
	"github.com/mintbay/go-mintbay-server/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// REST API routes. The key service is shared with the cron cache refresh, so
// it must be the single instance built at startup.
func ConfigRoutes(router *gin.Engine, dbSelector *repository.CouchDBSelector, limiter *ratelimit.Limiter, keyService *services.CryptoKeyService, env *types.Environment) *gin.Engine {
	// init metrics
	if global.Conf.Prometheus.Enabled {
		metrics.InitMetrics()

		authorized := router.Group("/metrics", gin.BasicAuth(gin.Accounts{
			global.Conf.Prometheus.Username: global.Conf.Prometheus.Password,
		}))

		authorized.GET("", gin.WrapH(promhttp.Handler()))
	}

	// SERVICE definitions
	secretService := services.NewSecretService(keyService)
	userService := services.NewUserService(dbSelector)
	nonceService := services.NewNonceService(dbSelector)
	totpService := services.NewTotpService(userService, secretService)
	walletService := services.NewWalletService(dbSelector, secretService)
	withdrawalService := services.NewWithdrawalService(dbSelector, env, global.Conf.Wallet)
	listingService := services.NewListingService(dbSelector)
	s3Service := services.NewS3Service(env)

	// API definitions
	accountApi := api.NewUserAccountApi(userService, nonceService, totpService, walletService)
	twoFactorApi := api.NewTwoFactorApi(userService, totpService)
	walletApi := api.NewWalletApi(walletService, userService)
	withdrawalApi := api.NewWithdrawalApi(withdrawalService)
	listingApi := api.NewListingApi(listingService, s3Service)
	healthApi := api.NewHealthCheckAPI()

	floodGuard := interceptors.FloodGuardMiddleware()

	// PUBLIC API (unauthenticated)
	publicApi := router.Group("/api", metrics.MetricsMiddleware(), floodGuard)
	{
		publicApi.GET("/v1/healthcheck", healthApi.HealthCheck)

		publicLimited := publicApi.Group("", interceptors.RateLimitMiddleware(limiter, ratelimit.ClassPublic))
		{
			publicLimited.GET("/v1/listings/:id", listingApi.GetListing)
		}

		authLimited := publicApi.Group("", interceptors.RateLimitMiddleware(limiter, ratelimit.ClassAuth))
		{
			authLimited.GET("/v1/nonce", accountApi.ChallengeNonce)
			authLimited.POST("/v1/register", accountApi.Register)
			authLimited.POST("/v1/login", accountApi.Login)
		}
	}

	// AUTHENTICATED API
	rootApi := router.Group("/api", metrics.MetricsMiddleware(), floodGuard, interceptors.JWTAuthMiddleware())
	{
		publicClass := rootApi.Group("", interceptors.RateLimitMiddleware(limiter, ratelimit.ClassPublic))
		{
			publicClass.GET("/v1/listings", listingApi.ListMyListings)
			publicClass.POST("/v1/listings", listingApi.CreateListing)
			publicClass.GET("/v1/withdraw/:id", withdrawalApi.GetTransaction)
			publicClass.GET("/v1/wallet", walletApi.GetWallet)
		}

		cryptoClass := rootApi.Group("", interceptors.RateLimitMiddleware(limiter, ratelimit.ClassCrypto))
		{
			cryptoClass.POST("/v1/wallet/unlock", walletApi.UnlockWallet)
			cryptoClass.POST("/v1/withdraw", withdrawalApi.Withdraw)
			cryptoClass.POST("/v1/twofa/setup", twoFactorApi.Setup)
			cryptoClass.POST("/v1/twofa/enable", twoFactorApi.Enable)
		}

		uploadClass := rootApi.Group("", interceptors.RateLimitMiddleware(limiter, ratelimit.ClassUpload))
		{
			uploadClass.PUT("/v1/listings/:id/image", listingApi.UploadImage)
		}
	}

	return router
}
