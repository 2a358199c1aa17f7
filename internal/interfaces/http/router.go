package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/pixelmuse/pixelmuse/internal/application/billing/gateway"
	billingUsecases "github.com/pixelmuse/pixelmuse/internal/application/billing/usecases"
	subscriptionUsecases "github.com/pixelmuse/pixelmuse/internal/application/subscription/usecases"
	usageUsecases "github.com/pixelmuse/pixelmuse/internal/application/usage/usecases"
	"github.com/pixelmuse/pixelmuse/internal/domain/billing"
	"github.com/pixelmuse/pixelmuse/internal/domain/notification"
	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	"github.com/pixelmuse/pixelmuse/internal/domain/usage"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/auth"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/config"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/ratelimit"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/repository"
	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/handlers"
	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/middleware"
	"github.com/pixelmuse/pixelmuse/internal/interfaces/http/routes"
	"github.com/pixelmuse/pixelmuse/internal/shared/db"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

// Dependencies carries everything the HTTP layer needs but does not own:
// the loaded config, the database handle, the payment gateway client, and
// the side-effect services that differ between deployments.
type Dependencies struct {
	Config      *config.Config
	DB          *gorm.DB
	Catalog     *subscription.Catalog
	Gateway     gateway.PaymentGateway
	Dispatcher  notification.Dispatcher
	RateLimiter ratelimit.RateLimiter
	Logger      logger.Interface
}

// Router wires repositories, use cases, and handlers into a Gin engine.
type Router struct {
	engine *gin.Engine
}

func NewRouter(deps *Dependencies) *Router {
	cfg := deps.Config
	log := deps.Logger

	gin.SetMode(ginMode(cfg.Server.Mode))
	registerValidations()
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	engine.Use(middleware.SecurityHeaders())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	txRepo := repository.NewTransactionRepository(deps.DB)
	subRepo := repository.NewSubscriptionRepository(deps.DB)
	historyRepo := repository.NewSubscriptionHistoryRepository(deps.DB)
	usageRepo := repository.NewUsageRepository(deps.DB)
	txManager := db.NewTransactionManager(deps.DB)
	orderCodes := billing.NewOrderCodeGenerator()

	pendingTTL := cfg.Billing.PendingTTL()

	createCheckoutUC := billingUsecases.NewCreateCheckoutUseCase(
		txRepo, subRepo, deps.Catalog, deps.Gateway, orderCodes,
		cfg.Gateway.ReturnURL, cfg.Gateway.WebhookURL, pendingTTL, log,
	)
	cancelCheckoutUC := billingUsecases.NewCancelCheckoutUseCase(txRepo, deps.Gateway, log)
	getTransactionUC := billingUsecases.NewGetTransactionUseCase(txRepo)
	listTransactionsUC := billingUsecases.NewListTransactionsUseCase(txRepo)
	revenueReportUC := billingUsecases.NewRevenueReportUseCase(txRepo)
	processWebhookUC := billingUsecases.NewProcessWebhookUseCase(
		deps.Gateway, txRepo, subRepo, historyRepo, txManager, deps.Dispatcher, log,
	)

	getSubscriptionUC := subscriptionUsecases.NewGetSubscriptionUseCase(subRepo)
	cancelSubscriptionUC := subscriptionUsecases.NewCancelSubscriptionUseCase(
		subRepo, txRepo, historyRepo, deps.Gateway, deps.Dispatcher, log,
	)
	listHistoryUC := subscriptionUsecases.NewListHistoryUseCase(historyRepo)

	checkQuotaUC := usageUsecases.NewCheckQuotaUseCase(subRepo, usageRepo, deps.Catalog, log)
	recordUsageUC := usageUsecases.NewRecordUsageUseCase(usageRepo, checkQuotaUC, log)
	getUsageStatsUC := usageUsecases.NewGetUsageStatsUseCase(usageRepo)

	jwtService := auth.NewJWTService(cfg.Auth.JWT.Secret)
	authMiddleware := middleware.NewAuthMiddleware(jwtService, log)

	billingHandler := handlers.NewBillingHandler(
		createCheckoutUC, cancelCheckoutUC, getTransactionUC, listTransactionsUC, revenueReportUC, log,
	)
	subscriptionHandler := handlers.NewSubscriptionHandler(
		getSubscriptionUC, cancelSubscriptionUC, listHistoryUC, log,
	)
	usageHandler := handlers.NewUsageHandler(checkQuotaUC, recordUsageUC, getUsageStatsUC, log)
	planHandler := handlers.NewPlanHandler(deps.Catalog)
	webhookHandler := handlers.NewWebhookHandler(processWebhookUC, log)

	routes.SetupBillingRoutes(engine, &routes.BillingRouteConfig{
		BillingHandler: billingHandler,
		AuthMiddleware: authMiddleware,
	})
	routes.SetupSubscriptionRoutes(engine, &routes.SubscriptionRouteConfig{
		SubscriptionHandler: subscriptionHandler,
		PlanHandler:         planHandler,
		AuthMiddleware:      authMiddleware,
	})
	routes.SetupUsageRoutes(engine, &routes.UsageRouteConfig{
		UsageHandler:   usageHandler,
		AuthMiddleware: authMiddleware,
	})
	routes.SetupWebhookRoutes(engine, &routes.WebhookRouteConfig{
		WebhookHandler: webhookHandler,
		RateLimiter:    deps.RateLimiter,
		Logger:         log,
	})

	return &Router{engine: engine}
}

// Engine exposes the configured Gin engine for the HTTP server.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// registerValidations adds the binding rules the built-in tags cannot
// express. "usagetype" accepts exactly the usage types the domain knows.
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("usagetype", func(fl validator.FieldLevel) bool {
			_, err := usage.ParseUsageType(fl.Field().String())
			return err == nil
		})
	}
}

func ginMode(mode string) string {
	switch mode {
	case "release", "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
