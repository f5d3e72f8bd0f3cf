package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"followgraph-service/config"
	database "followgraph-service/db"
	"followgraph-service/handler"
	"followgraph-service/middleware"
	natsclient "followgraph-service/nats"
	"followgraph-service/notifier"
	"followgraph-service/repository"
	"followgraph-service/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load FollowGraph .env")
	}

	// Load database configuration
	dbCfg, err := config.LoadDatabaseConfig("")
	if err != nil {
		log.Fatalf("Failed to load FollowGraph database config: %v", err)
	}

	// Connect to the database
	dbConn, err := database.NewConnection(database.Config{
		Host:         dbCfg.Host,
		Port:         dbCfg.Port,
		User:         dbCfg.User,
		Password:     dbCfg.Password,
		DBName:       dbCfg.DBName,
		SSLMode:      dbCfg.SSLMode,
		MaxOpenConns: dbCfg.MaxOpenConns,
		MaxIdleConns: dbCfg.MaxIdleConns,
		MaxLifetime:  dbCfg.MaxLifetime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to FollowGraph database: %v", err)
	}
	defer dbConn.Close()

	log.Println("Successfully connected to database")

	cacheCfg := config.LoadCacheConfig()

	// The notification side effect is decoupled: losing NATS or Redis
	// degrades notifications, never follows. So both connect best-effort.
	var publisher notifier.Publisher
	natsCfg := config.LoadNATSConfig()
	nc, err := natsclient.NewClient(natsclient.Config{
		URL:           natsCfg.URL,
		ClientID:      natsCfg.ClientID,
		MaxReconnects: natsCfg.MaxReconnects,
		ReconnectWait: natsCfg.ReconnectWait,
	})
	if err != nil {
		log.Printf("NATS unavailable, follow events will not be published: %v", err)
	} else {
		defer nc.Close()
		publisher = nc
	}

	var redisClient *redis.Client
	redisCfg := config.LoadRedisConfig()
	rc := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rc.Ping(pingCtx).Err(); err != nil {
		log.Printf("Redis unavailable, unread counters disabled: %v", err)
		_ = rc.Close()
	} else {
		defer rc.Close()
		redisClient = rc
	}
	cancelPing()

	followNotifier := notifier.New(publisher, redisClient, cacheCfg.NotifyQueueSize)
	followNotifier.Start()
	defer followNotifier.Stop()

	// Initialize repositories and the graph service
	followRepo := repository.NewFollowRepository(dbConn.DB)
	profileRepo := repository.NewProfileRepository(dbConn.DB)
	graphService := service.NewFollowGraphService(followRepo, profileRepo, followNotifier, service.Options{
		CountTTL:      cacheCfg.CountTTL,
		MembershipTTL: cacheCfg.MembershipTTL,
		ListTTL:       cacheCfg.ListTTL,
		MaxEntries:    cacheCfg.MaxEntries,
		MaxCachedPage: int32(cacheCfg.MaxCachedPage),
		BatchSize:     cacheCfg.BatchSize,
		RetryAttempts: cacheCfg.RetryAttempts,
		RetryBackoff:  cacheCfg.RetryBackoff,
	})

	// HTTP surface
	httpPort := getEnv("HTTP_PORT", "8085")
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key")

	if getEnv("GIN_MODE", "") != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	followHandler := handler.NewFollowHandler(graphService, middleware.NewAuthMiddleware(jwtSecret))
	followHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := dbConn.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", httpPort),
		Handler: router,
	}

	// Graceful shutdown handling
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("FollowGraph service shutting down gracefully...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}
	}()

	log.Printf("FollowGraph service listening on port %s", httpPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to serve: %v", err)
	}

	log.Println("Server stopped")
}

// small helper for optional env vars
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
