package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"github.com/wyfcoding/ecommerce/internal/cart/application"
	"github.com/wyfcoding/ecommerce/internal/cart/domain"
	cartmysql "github.com/wyfcoding/ecommerce/internal/cart/infrastructure/persistence/mysql"
	httphandler "github.com/wyfcoding/ecommerce/internal/cart/interfaces/http"
	catalogmysql "github.com/wyfcoding/ecommerce/internal/catalog/infrastructure/persistence/mysql"
	"github.com/wyfcoding/ecommerce/internal/middleware"
	"github.com/wyfcoding/ecommerce/internal/order/infrastructure/messaging"
	"github.com/wyfcoding/ecommerce/internal/pricing"
	gorm_mysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/cart/config.toml", "path to config file")
	flag.Parse()

	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Sprintf("read config failed: %v", err))
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	dsn := viper.GetString("database.source")
	db, err := gorm.Open(gorm_mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		panic(fmt.Sprintf("connect db failed: %v", err))
	}
	db.AutoMigrate(&domain.Cart{}, &domain.CartItem{}, &domain.SavedItem{})

	var publisher domain.EventPublisher = messaging.NoopEventPublisher{}
	if brokers := viper.GetStringSlice("kafka.brokers"); len(brokers) > 0 {
		kafkaPub := messaging.NewKafkaEventPublisher(brokers)
		defer kafkaPub.Close()
		publisher = kafkaPub
	}

	cartRepo := cartmysql.NewCartRepository(db)
	savedRepo := cartmysql.NewSavedItemRepository(db)
	productRepo := catalogmysql.NewProductRepo(db)
	appService := application.NewCartApplicationService(
		cartRepo, savedRepo, productRepo, pricing.NewStaticPolicy(), publisher)

	// 过期购物车后台清理
	reapCtx, stopReaper := context.WithCancel(context.Background())
	defer stopReaper()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-reapCtx.Done():
				return
			case <-ticker.C:
				if n, err := appService.ReapExpired(reapCtx); err != nil {
					slog.Error("reap expired carts failed", "error", err)
				} else if n > 0 {
					slog.Info("reaped expired carts", "count", n)
				}
			}
		}
	}()

	if viper.GetString("server.mode") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.Prometheus("cart"))
	engine.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	httphandler.NewCartHandler(appService).RegisterRoutes(&engine.RouterGroup)

	port := viper.GetString("server.http_port")
	srv := &http.Server{Addr: ":" + port, Handler: engine}
	go func() {
		slog.Info("HTTP server", "service", "cart", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
