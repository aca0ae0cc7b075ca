package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_dashboard/internal/cache"
	"github.com/GTDGit/gtd_dashboard/internal/chat"
	"github.com/GTDGit/gtd_dashboard/internal/config"
	"github.com/GTDGit/gtd_dashboard/internal/database"
	"github.com/GTDGit/gtd_dashboard/internal/handler"
	"github.com/GTDGit/gtd_dashboard/internal/mailer"
	"github.com/GTDGit/gtd_dashboard/internal/metrics"
	"github.com/GTDGit/gtd_dashboard/internal/middleware"
	"github.com/GTDGit/gtd_dashboard/internal/repository"
	"github.com/GTDGit/gtd_dashboard/internal/service"
	"github.com/GTDGit/gtd_dashboard/internal/sse"
	"github.com/GTDGit/gtd_dashboard/internal/utils"
	"github.com/GTDGit/gtd_dashboard/internal/worker"
)

var version = "dev"

// main is the application entrypoint for the GTD dashboard API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("version", version).Msg("starting gtd dashboard api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect database
	db, err := database.Connect(ctx, &cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := database.Migrate(db.DB, cfg.DB.MigrationsPath); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 3c. Object storage for exports; optional
	var objects service.ObjectStore
	if cfg.S3.Enabled() {
		s3Svc, err := service.NewS3Service(ctx, &cfg.S3)
		if err != nil {
			log.Warn().Err(err).Msg("S3 service initialization failed - customer export will be disabled")
		} else {
			objects = s3Svc
		}
	} else {
		log.Warn().Msg("S3 not configured - customer export will be disabled")
	}
	if !cfg.SMTP.Enabled() {
		log.Warn().Msg("SMTP not configured - invoices cannot be emailed")
	}

	// 4. Initialize repositories
	userRepo := repository.NewUserRepository(db)
	businessRepo := repository.NewBusinessRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	productRepo := repository.NewProductRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	chatRepo := repository.NewChatRepository(db)
	webhookRepo := repository.NewWebhookRepository(db)

	// 5. Realtime hub
	hub := sse.NewHub()
	notifier := sse.NewHubNotifier(hub)

	// 6. Initialize services
	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authSvc := service.NewAuthService(userRepo, tokens, redisClient)
	businessSvc := service.NewBusinessService(businessRepo, userRepo)
	webhookSvc := service.NewWebhookService(businessRepo, webhookRepo)
	customerSvc := service.NewCustomerService(customerRepo, objects, cfg.Limits.ImportMaxRows)
	courseSvc := service.NewCourseService(courseRepo, customerRepo, businessRepo, service.NewMarkdownService())
	ticketSvc := service.NewTicketService(ticketRepo, businessRepo)
	productSvc := service.NewProductService(productRepo, businessRepo)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, customerRepo, businessRepo, webhookSvc)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, customerRepo, businessRepo, mailer.New(cfg.SMTP), webhookSvc, notifier)
	paymentSvc := service.NewPaymentService(paymentRepo, invoiceRepo, customerRepo, businessRepo, webhookSvc, notifier)
	chatSvc := service.NewChatService(chatRepo, customerRepo, businessRepo, chat.NewRegistry(), notifier)
	draftSvc := service.NewDraftService(cache.NewDraftCache(redisClient))

	// 7. Initialize handlers
	origins := middleware.NewOriginPolicy(cfg.CORS.AllowedHosts)
	handlers := &Handlers{
		Health: handler.NewHealthHandler(version, map[string]handler.HealthCheck{
			"database": db.PingContext,
			"redis":    redisClient.Ping,
		}),
		Auth:         handler.NewAuthHandler(authSvc, cfg.IsProduction()),
		Business:     handler.NewBusinessHandler(businessSvc),
		Webhook:      handler.NewWebhookHandler(webhookSvc),
		Customer:     handler.NewCustomerHandler(customerSvc),
		Course:       handler.NewCourseHandler(courseSvc),
		Ticket:       handler.NewTicketHandler(ticketSvc),
		Product:      handler.NewProductHandler(productSvc),
		Subscription: handler.NewSubscriptionHandler(subscriptionSvc),
		Invoice:      handler.NewInvoiceHandler(invoiceSvc),
		Payment:      handler.NewPaymentHandler(paymentSvc),
		Chat:         handler.NewChatHandler(chatSvc),
		ChatSocket:   handler.NewChatSocketHandler(chatSvc, hub, origins),
		SSE:          handler.NewSSEHandler(hub),
		Draft:        handler.NewDraftHandler(draftSvc),
	}

	// 8. Initialize middleware
	mw := &Middlewares{
		Auth:        middleware.NewAuthMiddleware(authSvc),
		Tenant:      middleware.NewTenantMiddleware(businessSvc),
		AuthLimiter: middleware.NewIPRateLimiter(cfg.Limits.AuthPerMinute),
	}

	// 9. Setup router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(origins))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, mw)

	// 10. Start workers
	go worker.NewWebhookWorker(webhookSvc, cfg.Worker.WebhookInterval).Start(ctx)
	go worker.NewInvoiceWorker(invoiceSvc, cfg.Worker.InvoiceInterval).Start(ctx)
	go worker.NewSubscriptionWorker(subscriptionSvc, cfg.Worker.SubscriptionInterval).Start(ctx)

	// 11. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 12. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 13. Cancel context to stop workers
	cancel()

	// 14. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	Business     *handler.BusinessHandler
	Webhook      *handler.WebhookHandler
	Customer     *handler.CustomerHandler
	Course       *handler.CourseHandler
	Ticket       *handler.TicketHandler
	Product      *handler.ProductHandler
	Subscription *handler.SubscriptionHandler
	Invoice      *handler.InvoiceHandler
	Payment      *handler.PaymentHandler
	Chat         *handler.ChatHandler
	ChatSocket   *handler.ChatSocketHandler
	SSE          *handler.SSEHandler
	Draft        *handler.DraftHandler
}

// Middlewares groups the route-level middleware.
type Middlewares struct {
	Auth        *middleware.AuthMiddleware
	Tenant      *middleware.TenantMiddleware
	AuthLimiter *middleware.IPRateLimiter
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, h *Handlers, mw *Middlewares) {
	router.GET("/v1/health", h.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Sign-in (rate limited per IP)
	auth := router.Group("/v1/auth")
	{
		auth.POST("/register", mw.AuthLimiter.Handle(), h.Auth.Register)
		auth.POST("/login", mw.AuthLimiter.Handle(), h.Auth.Login)
		auth.POST("/logout", h.Auth.Logout)
		auth.GET("/me", mw.Auth.Handle(), h.Auth.Me)
	}

	// Businesses of the signed-in user (no tenant yet)
	account := router.Group("/v1/businesses", mw.Auth.Handle())
	{
		account.GET("", h.Business.ListBusinesses)
		account.POST("", h.Business.CreateBusiness)
	}

	// Tenant-scoped routes (X-Business-Id)
	v1 := router.Group("/v1", mw.Auth.Handle(), mw.Tenant.Handle())
	{
		// Business settings
		v1.GET("/business", h.Business.GetBusiness)
		v1.PATCH("/business", middleware.RequireManager(), h.Business.UpdateBusiness)
		v1.POST("/business/webhook-secret", middleware.RequireManager(), h.Business.RotateWebhookSecret)
		v1.GET("/business/members", h.Business.ListMembers)
		v1.POST("/business/members", middleware.RequireManager(), h.Business.AddMember)
		v1.GET("/business/webhooks", h.Webhook.ListDeliveries)

		// Customers
		v1.GET("/customers", h.Customer.ListCustomers)
		v1.POST("/customers", h.Customer.CreateCustomer)
		v1.POST("/customers/import", h.Customer.ImportCustomers)
		v1.POST("/customers/export", h.Customer.ExportCustomers)
		v1.GET("/customers/:id", h.Customer.GetCustomer)
		v1.PATCH("/customers/:id", h.Customer.UpdateCustomer)
		v1.DELETE("/customers/:id", h.Customer.DeleteCustomer)

		// Courses, modules and lessons
		v1.GET("/courses", h.Course.ListCourses)
		v1.POST("/courses", h.Course.CreateCourse)
		v1.GET("/courses/:id", h.Course.GetCourse)
		v1.PUT("/courses/:id", h.Course.UpdateCourse)
		v1.DELETE("/courses/:id", h.Course.DeleteCourse)
		v1.GET("/courses/:id/progress", h.Course.GetProgress)
		v1.POST("/courses/:id/modules", h.Course.CreateModule)
		v1.PUT("/modules/:id", h.Course.UpdateModule)
		v1.DELETE("/modules/:id", h.Course.DeleteModule)
		v1.POST("/modules/:id/contents", h.Course.CreateContent)
		v1.PUT("/contents/:id", h.Course.UpdateContent)
		v1.DELETE("/contents/:id", h.Course.DeleteContent)
		v1.POST("/contents/:id/complete", h.Course.ToggleCompletion)

		// Tickets
		v1.GET("/tickets", h.Ticket.ListTickets)
		v1.POST("/tickets", h.Ticket.CreateTicket)
		v1.GET("/tickets/:id", h.Ticket.GetTicket)
		v1.PUT("/tickets/:id", h.Ticket.UpdateTicket)
		v1.DELETE("/tickets/:id", h.Ticket.DeleteTicket)
		v1.POST("/tickets/:id/tiers", h.Ticket.AddTier)
		v1.PUT("/tickets/:id/tiers/:tierId", h.Ticket.UpdateTier)
		v1.DELETE("/tickets/:id/tiers/:tierId", h.Ticket.DeleteTier)
		v1.POST("/tickets/:id/tiers/:tierId/sell", h.Ticket.Sell)

		// Products
		v1.GET("/products", h.Product.ListProducts)
		v1.POST("/products", h.Product.CreateProduct)
		v1.GET("/products/:id", h.Product.GetProduct)
		v1.PUT("/products/:id", h.Product.UpdateProduct)
		v1.DELETE("/products/:id", h.Product.DeleteProduct)
		v1.POST("/products/:id/stock", h.Product.AdjustStock)

		// Subscription plans and subscriptions
		v1.GET("/plans", h.Subscription.ListPlans)
		v1.POST("/plans", h.Subscription.CreatePlan)
		v1.GET("/plans/:id", h.Subscription.GetPlan)
		v1.PUT("/plans/:id", h.Subscription.UpdatePlan)
		v1.DELETE("/plans/:id", h.Subscription.DeletePlan)
		v1.GET("/subscriptions", h.Subscription.ListSubscriptions)
		v1.POST("/subscriptions", h.Subscription.Subscribe)
		v1.GET("/subscriptions/:id", h.Subscription.GetSubscription)
		v1.POST("/subscriptions/:id/cancel", h.Subscription.CancelSubscription)

		// Invoices
		v1.GET("/invoices", h.Invoice.ListInvoices)
		v1.POST("/invoices", h.Invoice.CreateInvoice)
		v1.GET("/invoices/:id", h.Invoice.GetInvoice)
		v1.PUT("/invoices/:id", h.Invoice.UpdateInvoice)
		v1.DELETE("/invoices/:id", h.Invoice.DeleteInvoice)
		v1.POST("/invoices/:id/send", h.Invoice.SendInvoice)
		v1.POST("/invoices/:id/cancel", h.Invoice.CancelInvoice)
		v1.POST("/invoices/:id/mark-paid", h.Invoice.MarkPaid)

		// Payments
		v1.GET("/payments", h.Payment.ListPayments)
		v1.POST("/payments", h.Payment.RecordPayment)
		v1.GET("/payments/:id", h.Payment.GetPayment)
		v1.PATCH("/payments/:id/status", h.Payment.UpdateStatus)

		// Chat (REST, WebSocket RPC and SSE mirror)
		v1.GET("/chats", h.Chat.ListChats)
		v1.GET("/chats/ws", h.ChatSocket.Serve)
		v1.GET("/chats/stream", h.SSE.Stream)
		v1.POST("/chats/groups", h.Chat.CreateGroup)
		v1.POST("/chats/direct", h.Chat.OpenDirect)
		v1.GET("/chats/:id", h.Chat.GetChat)
		v1.GET("/chats/:id/messages", h.Chat.ListMessages)
		v1.POST("/chats/:id/messages", h.Chat.SendMessage)
		v1.POST("/chats/:id/members", h.Chat.AddMember)

		// Drafts
		v1.GET("/drafts/:kind", h.Draft.GetDraft)
		v1.PUT("/drafts/:kind", h.Draft.SaveDraft)
		v1.DELETE("/drafts/:kind", h.Draft.DeleteDraft)
	}
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
