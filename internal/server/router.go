package server

import (
	"net/http"

	"gift-auction/internal/config"
	"gift-auction/services/auction/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter configures all Gin routes for the application. Request metrics are
// registered on reg and /metrics serves everything reg gathers.
func SetupRouter(svc handler.AuctionServiceInterface, defaults config.AuctionDefaults, reg *prometheus.Registry) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	router.Use(MetricsMiddleware(reg))

	auctionHandler := handler.NewAuctionHandler(svc, defaults)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	router.GET("/audit", auctionHandler.AuditHandler)

	auctions := router.Group("/auctions")
	{
		auctions.POST("", auctionHandler.CreateAuctionHandler)
		auctions.GET("/:auction_id", auctionHandler.GetStatusHandler)
		auctions.GET("/:auction_id/bids", auctionHandler.ListBidsHandler)
		auctions.POST("/:auction_id/bids", auctionHandler.SubmitBidHandler)
		auctions.PUT("/:auction_id/bids/:bid_id", auctionHandler.IncreaseBidHandler)
		auctions.POST("/:auction_id/resume", auctionHandler.ResumeSettlementHandler)
	}

	users := router.Group("/users")
	{
		users.POST("/:user_id/deposits", auctionHandler.DepositHandler)
		users.GET("/:user_id/balance", auctionHandler.GetBalanceHandler)
	}

	return router
}
