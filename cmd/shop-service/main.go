package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/martynasv/shopcore/docs"
	"github.com/martynasv/shopcore/internal/catalog"
	"github.com/martynasv/shopcore/internal/config"
	"github.com/martynasv/shopcore/internal/httpx"
	"github.com/martynasv/shopcore/internal/metrics"
	"github.com/martynasv/shopcore/internal/notify"
	"github.com/martynasv/shopcore/internal/order"
	"github.com/martynasv/shopcore/internal/payment"
	"github.com/martynasv/shopcore/internal/store"
)

// @title           shopcore API
// @version         1.0
// @description     Storefront order pipeline and mock payment gateway.
// @BasePath        /
func main() {
	cfg := config.Load()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[shop] postgres: %v", err)
	}
	defer pool.Close()

	catalogRepo := catalog.NewPGRepo(pool)
	orderRepo := order.NewPGRepo(pool)
	sessions := payment.NewPGSessionStore(pool)
	uow := store.NewPG(pool)

	var limiter notify.Limiter = notify.NewWindowLimiter(cfg.NotifyWindow, cfg.NotifyLimit)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = notify.NewRedisLimiter(rdb, cfg.NotifyWindow, cfg.NotifyLimit)
		log.Printf("[shop] notification limiter on redis %s", cfg.RedisAddr)
	}
	var pub notify.Publisher
	if cfg.AMQPURL != "" {
		amqpPub, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("[shop] amqp disabled: %v", err)
		} else {
			defer amqpPub.Close()
			pub = amqpPub
		}
	}
	dispatcher := notify.NewDispatcher(pub, limiter)

	orderSvc := order.NewService(orderRepo, catalogRepo, dispatcher)
	manager := payment.NewManager(sessions, orderRepo, cfg.CheckoutBaseURL, cfg.MerchantName, cfg.SessionTTL)
	resolver := payment.NewResolver(sessions, orderRepo, uow, dispatcher, cfg.SuccessURL, cfg.CancelURL)

	m := metrics.NewServerMetrics("api")

	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(), httpx.Metrics(m))

	r.POST("/orders", createOrderHandler(orderSvc))
	r.GET("/orders", listOrdersHandler(orderRepo))
	r.GET("/orders/:id", getOrderHandler(orderRepo))
	r.PATCH("/orders/:id", updateOrderStatusHandler(orderSvc))

	r.POST("/payments/mock/start", startPaymentHandler(manager))
	r.GET("/payments/mock/session/:id", getSessionHandler(manager))
	r.POST("/payments/mock/decide", decidePaymentHandler(resolver, m))

	r.POST("/items", createItemHandler(catalogRepo))
	r.GET("/items", listItemsHandler(catalogRepo))

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	log.Printf("[shop] listening on %s", cfg.HTTPAddr)
	log.Fatal(r.Run(cfg.HTTPAddr))
}
