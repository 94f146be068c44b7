package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"

	webAdapter "partsledger/internal/adapters/web"
	"partsledger/internal/app"
	"partsledger/internal/cache"
	"partsledger/internal/core"
	"partsledger/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	stockService := core.NewStockService(pool)
	poService := core.NewPurchaseOrderService(pool, stockService)
	jobService := core.NewServiceJobService(pool, stockService)
	alertService := core.NewAlertService(pool)
	pricingService := core.NewPricingService(pool)
	locationService := core.NewLocationService(pool)
	partService := core.NewPartService(pool)
	supplierService := core.NewSupplierService(pool)
	userService := core.NewUserService(pool)
	reportingService := core.NewReportingService(pool)

	var priceCache cache.PriceCache = cache.NoopPriceCache{}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
		rc := cache.NewRedisPriceCache(addr, os.Getenv("REDIS_PASSWORD"), redisDB)
		if err := rc.Ping(ctx); err != nil {
			log.Printf("redis unreachable, price cache disabled: %v", err)
		} else {
			priceCache = rc
			defer rc.Close()
		}
	}

	svc := app.NewAppService(pool, stockService, poService, jobService,
		alertService, pricingService, locationService,
		partService, supplierService, userService, reportingService, priceCache)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
