package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/common/config"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/common/logger"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/common/middleware"
	raffleHTTP "github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/delivery/http"
	raffleRedis "github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/repository/redis"
	raffleService "github.com/Tempest1One/Tradeshow-raffle-magnet/internal/features/raffle/service"
	redisplatform "github.com/Tempest1One/Tradeshow-raffle-magnet/internal/platform/redis"
	"github.com/Tempest1One/Tradeshow-raffle-magnet/internal/ws"
)

func main() {
	cfg := config.Load()
	logger.Init("tradeshow-raffle", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := redisplatform.Open(ctx,
		fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	log.Info().Msg("Redis connection established")

	store := raffleRedis.NewRepository(redisClient, cfg.Store.OpTimeout)
	allocator := raffleService.NewAllocator(rand.New(rand.NewSource(time.Now().UnixNano())))
	coordinator := raffleService.NewCoordinator(store, store, allocator, cfg.Draw.MaxAttempts)
	svc := raffleService.NewService(store, coordinator)

	wsConfig := ws.DefaultConfig()
	wsConfig.WriteTimeout = cfg.WS.WriteTimeout
	wsConfig.ReadTimeout = cfg.WS.ReadTimeout
	wsConfig.PingInterval = cfg.WS.PingInterval
	wsConfig.MaxMessageSize = cfg.WS.MaxMessageSize
	wsConfig.SendBuffer = cfg.WS.SendBuffer

	hub := ws.NewHub(ws.NewDispatcher(svc), wsConfig)
	go hub.Start(ctx)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept"}
	router.Use(cors.New(corsConfig))

	setupRoutes(router, svc, hub, redisClient)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func setupRoutes(router *gin.Engine, svc *raffleService.Service, hub *ws.Hub, redisClient *redisplatform.Client) {
	v1 := router.Group("/api/v1")
	raffleHTTP.NewRaffleHandler(svc, hub).RegisterRoutes(v1)

	router.GET("/ws", func(c *gin.Context) {
		if err := hub.ServeWS(c.Writer, c.Request); err != nil {
			c.Status(http.StatusBadRequest)
		}
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "tradeshow-raffle",
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "redis unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "tradeshow-raffle",
		})
	})
}
