package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"connect-service/internal/auth"
	"connect-service/internal/config"
	"connect-service/internal/db"
	grpcserver "connect-service/internal/grpc"
	"connect-service/internal/handlers"
	"connect-service/internal/logging"
	"connect-service/internal/middleware"
	"connect-service/internal/observability"
	"connect-service/internal/rabbitmq"
	"connect-service/internal/repositories"
	"connect-service/internal/services"
	"connect-service/internal/storage"
	"connect-service/internal/telemetry"
	"connect-service/internal/ws"
)

const serviceName = "connect-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, serviceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Info().
		Str("mode", rabbitmq.PublisherMode(publisher)).
		Str("reason", rabbitmq.PublisherNoopReason(publisher)).
		Msg("event publisher ready")
	emitter := telemetry.NewAuditEmitter(publisher, cfg.AMQP.AuditRoutingKey, serviceName, cfg.Env)

	redisClient := newRedisClient(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	files, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init file storage")
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TTL)

	userRepo := repositories.NewUserRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	guard := services.NewAccessGuard(conversationRepo)
	userService := services.NewUserService(userRepo, tokens, files)
	conversationService := services.NewConversationService(conversationRepo, messageRepo, userRepo)
	messageService := services.NewMessageService(guard, conversationRepo, messageRepo, files)

	hub := ws.NewHub()
	if err := observability.RegisterRoomGauge(prometheus.DefaultRegisterer, func() int {
		_, rooms := hub.Stats()
		return rooms
	}); err != nil {
		log.Warn().Err(err).Msg("failed to register room gauge")
	}
	if redisClient != nil {
		relay := ws.NewRedisRelay(redisClient, hub)
		hub.SetRelay(relay)
		go relay.Run(ctx)
	}

	authHandler := handlers.NewAuthHandler(userService, emitter)
	userHandler := handlers.NewUserHandler(userService, emitter, cfg.Storage.TempDir)
	conversationHandler := handlers.NewConversationHandler(conversationService)
	messageHandler := handlers.NewMessageHandler(messageService, hub, emitter, cfg.Storage.TempDir)
	wsHandler := ws.NewHandler(hub, tokens, guard, cfg.AllowedOrigins)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	router.Use(middleware.RequestLogger())
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(tokens)
	authLimit := middleware.RateLimit(redisClient, middleware.AuthRateLimitConfig())

	api := router.Group("/api")

	api.POST("/auth/register", authLimit, authHandler.Register)
	api.POST("/auth/login", authLimit, authHandler.Login)
	api.GET("/auth/me", authMiddleware, authHandler.Me)
	api.GET("/auth/by-email", authMiddleware, authHandler.ByEmail)
	api.GET("/auth/by-username", authMiddleware, authHandler.ByUsername)

	api.PUT("/users/me", authMiddleware, userHandler.UpdateProfile)
	api.DELETE("/users/me", authMiddleware, userHandler.DeleteAccount)
	api.PUT("/users/me/password", authMiddleware, userHandler.ChangePassword)
	api.POST("/users/me/photo", authMiddleware, userHandler.UploadPhoto)
	api.DELETE("/users/me/photo", authMiddleware, userHandler.RemovePhoto)
	api.GET("/users/me/blocked", authMiddleware, userHandler.ListBlocked)
	api.POST("/users/:userId/block", authMiddleware, userHandler.Block)
	api.DELETE("/users/:userId/block", authMiddleware, userHandler.Unblock)

	api.POST("/conversations/one-to-one", authMiddleware, conversationHandler.CreateOneToOne)
	api.POST("/conversations/group", authMiddleware, conversationHandler.CreateGroup)
	api.GET("/conversations", authMiddleware, conversationHandler.List)

	api.POST("/messages", authMiddleware, messageHandler.Create)
	api.POST("/messages/upload", authMiddleware, messageHandler.Upload)
	api.GET("/messages/:conversationId", authMiddleware, messageHandler.List)
	api.DELETE("/messages/:messageId", authMiddleware, messageHandler.DeleteForSelf)
	api.DELETE("/messages/:messageId/everyone", authMiddleware, messageHandler.DeleteForEveryone)

	router.GET("/ws", wsHandler.Handle)
	router.GET("/healthz", func(c *gin.Context) {
		if err := database.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.Storage.Driver == "local" {
		router.Static("/uploads", cfg.Storage.UploadDir)
	}
	handlers.RegisterDebugRoutes(router, emitter, hub, cfg.DebugRoutes)

	healthServer := grpcserver.NewHealthServer()
	grpcListener, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.GRPCPort).Msg("failed to listen for grpc")
	}
	go func() {
		if err := healthServer.Serve(grpcListener); err != nil {
			log.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()
	healthServer.SetServing(true)

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	healthServer.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown failed")
	}
}

// newRedisClient returns nil when Redis is not configured or unreachable; the
// relay and rate limiter are then disabled.
func newRedisClient(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		log.Info().Msg("redis disabled: empty address")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unreachable, relay and rate limiting disabled")
		_ = client.Close()
		return nil
	}

	log.Info().Str("addr", cfg.Addr).Msg("redis connected")
	return client
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
