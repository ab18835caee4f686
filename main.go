package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"printshop-backend/background"
	"printshop-backend/controller"
	"printshop-backend/infra"
	"printshop-backend/metrics"
	appMiddleware "printshop-backend/middleware"
	"printshop-backend/model"
	"printshop-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Port     int    `help:"服務監聽端口" short:"p" default:"8090"`
	Config   string `help:"設定檔路徑" short:"c" default:"config.yml"`
	LogLevel string `help:"日誌等級 (debug, info, warn, error)" default:"info"`
}

type AppServices struct {
	MongoDB  *infra.MongoDB
	Redis    *infra.Redis
	RabbitMQ *infra.RabbitMQ
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		infra.InitLogger(options.LogLevel)

		if err := infra.LoadConfig(options.Config); err != nil {
			log.Fatal().Err(err).Str("path", options.Config).Msg("讀取設定檔失敗")
		}

		// Prometheus registry 先建立，otel metrics 共用同一個 /metrics
		if err := appMiddleware.InitPrometheusMetrics(log.Logger); err != nil {
			log.Error().Err(err).Msg("Prometheus metrics 初始化失敗，將繼續運行")
		}
		if err := metrics.InitServiceMetrics(appMiddleware.GetPrometheusRegistry()); err != nil {
			log.Error().Err(err).Msg("Service metrics 初始化失敗，將繼續運行")
		}

		otelConfig := appMiddleware.OtelConfig{
			ServiceName:     infra.ServiceName,
			ServiceVersion:  infra.AppConfig.App.AppVersion,
			Environment:     infra.AppConfig.Otel.Environment,
			OTLPEndpoint:    infra.AppConfig.Otel.OTLPEndpoint,
			Enabled:         infra.AppConfig.Otel.Enabled,
			TracesEnabled:   true,
			MetricsEnabled:  true,
			DevelopmentMode: infra.AppConfig.Otel.DevelopmentMode,
		}
		otelCleanup, err := appMiddleware.InitOpenTelemetry(otelConfig, appMiddleware.GetPrometheusRegistry(), log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("OpenTelemetry 初始化失敗")
		}

		log.Info().Int("port", options.Port).Msg("啟動 Print Shop Backend API服務")

		services, err := initializeServices()
		if err != nil {
			log.Fatal().Err(err).Msg("初始化服務失敗")
		}

		appCtx, cancelApp := context.WithCancel(context.Background())
		loc := infra.AppConfig.ShopLocation()

		// === 資料層 ===
		eventManager := infra.NewRedisEventManager(services.Redis.Client, log.Logger)
		store := infra.NewMongoStore(services.MongoDB, eventManager, log.Logger)

		customerDirectory := service.NewCustomerDirectory(log.Logger, store)
		orderDirectory := service.NewOrderDirectory(log.Logger, store, loc)

		// === 即時推送 ===
		sseController := controller.NewSSEController(log.Logger)
		sseService := service.NewSSEService(log.Logger, sseController)

		orderService := service.NewOrderService(log.Logger, store, orderDirectory, sseService)
		websocketService := service.NewWebSocketService(log.Logger, orderDirectory)

		userService := service.NewUserService(log.Logger, service.NewMongoUserLookup(services.MongoDB),
			infra.AppConfig.JWT.SecretKey, infra.AppConfig.JWT.ExpiresHours)
		webSocketController := controller.NewWebSocketController(log.Logger, userService, websocketService, infra.AppConfig.JWT.SecretKey)

		customerDirectory.OnChange(sseService.CustomersChanged)
		orderDirectory.OnChange(func(orders []model.Order) {
			sseService.OrdersChanged(orders)
			webSocketController.OrdersChanged(orders)
		})

		if err := customerDirectory.Start(appCtx); err != nil {
			log.Fatal().Err(err).Msg("客戶目錄訂閱失敗")
		}
		if err := orderDirectory.Start(appCtx); err != nil {
			log.Fatal().Err(err).Msg("訂單目錄訂閱失敗")
		}
		webSocketController.Start(appCtx)

		// === Discord（選用）===
		notifiers := service.OrderNotifiers{sseService}
		var alerter service.CustomerFailureAlerter
		var discordService *service.DiscordService
		var customerEventHandler *service.CustomerEventHandler
		if infra.AppConfig.Discord.BotToken != "" {
			discordService, err = service.NewDiscordService(log.Logger, infra.AppConfig.Discord.BotToken, infra.AppConfig.Discord.ChannelID, orderService)
			if err != nil {
				log.Error().Err(err).Msg("Discord 服務啟動失敗，將不發送通知")
			} else {
				notifiers = append(notifiers, discordService)
				alerter = discordService

				hostname, _ := os.Hostname()
				customerEventHandler = service.NewCustomerEventHandler(log.Logger, eventManager, discordService, hostname)
				customerEventHandler.Start()
			}
		}

		// === 客戶寫入失敗的 outbox 與重試 ===
		var queue service.MessagePublisher
		if services.RabbitMQ != nil {
			queue = services.RabbitMQ
		}
		outbox := service.NewCustomerOutbox(log.Logger, eventManager, queue, sseService, alerter)

		if services.RabbitMQ != nil {
			retryWorker := background.NewCustomerRetryWorker(log.Logger, store, services.RabbitMQ, eventManager, sseService, alerter,
				infra.AppConfig.CustomerRetry.MaxAttempts,
				time.Duration(infra.AppConfig.CustomerRetry.DelaySeconds)*time.Second)
			go func() {
				if err := retryWorker.Start(appCtx); err != nil {
					log.Error().Err(err).Msg("客戶重試 worker 停止")
				}
			}()
		} else {
			log.Warn().Msg("RabbitMQ 未連線，客戶寫入失敗將不會自動重試")
		}

		// === 建單 ===
		creationService := service.NewOrderCreationService(log.Logger, store, customerDirectory, orderDirectory,
			outbox, notifiers, loc, infra.AppConfig.App.IDMaxAttempts)

		fileStorage := service.NewFileStorageService(log.Logger, infra.AppConfig.Uploads.Dir, infra.AppConfig.Uploads.BaseURL, infra.AppConfig.Uploads.Thumbnail)
		if err := fileStorage.InitializeUploadDirectories(); err != nil {
			log.Fatal().Err(err).Msg("建立上傳目錄失敗")
		}

		draftService := service.NewDraftService(log.Logger, service.NewRedisDraftStore(services.Redis.Client), fileStorage,
			customerDirectory, creationService, infra.AppConfig.DraftTTL(), infra.AppConfig.App.DefaultCountryCode, loc)
		exportService := service.NewOrderExportService(log.Logger, orderService)

		// === HTTP ===
		router := chi.NewRouter()
		router.Use(middleware.Recoverer)
		router.Use(middleware.RequestID)
		router.Use(middleware.Heartbeat("/ping"))
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Content-Disposition", "X-Trace-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))

		apiConfig := huma.DefaultConfig("Print Shop Order API", infra.AppConfig.App.AppVersion)
		apiConfig.Info.Description = "印刷訂單管理 API：建單、客戶與訂單列表"
		apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
			"bearerAuth": {
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
				Description:  "JWT Bearer Token 認證",
			},
		}

		api := humachi.New(router, apiConfig)
		api.UseMiddleware(appMiddleware.OpenTelemetryMiddleware(otelConfig, log.Logger))
		api.UseMiddleware(appMiddleware.PrometheusMiddleware(log.Logger))

		authMW := appMiddleware.NewUserAuthMiddleware(log.Logger, userService, infra.AppConfig.JWT.SecretKey)
		customerMatcher := service.NewCustomerMatcher(customerDirectory)

		controller.NewAuthController(log.Logger, userService).RegisterRoutes(api)
		controller.NewOrderController(log.Logger, orderService, exportService, authMW).RegisterRoutes(api)
		controller.NewCustomerController(log.Logger, customerDirectory, customerMatcher, authMW).RegisterRoutes(api)
		controller.NewDraftController(log.Logger, draftService, authMW).RegisterRoutes(api)

		healthController := controller.NewHealthController(log.Logger, map[string]controller.HealthCheck{
			"mongodb": services.MongoDB.Ping,
			"redis":   services.Redis.Ping,
			"rabbitmq": func(ctx context.Context) error {
				if services.RabbitMQ == nil || services.RabbitMQ.Connection == nil || services.RabbitMQ.Connection.IsClosed() {
					return fmt.Errorf("RabbitMQ 未連線")
				}
				return nil
			},
		}, orderDirectory, customerDirectory)
		healthController.RegisterRoutes(api)

		router.HandleFunc("/ws/orders", webSocketController.GetWebSocketHandler())
		router.HandleFunc("/sse/events", sseController.GetSSEHandler())
		router.Handle("/metrics", appMiddleware.GetStandardPrometheusHandler())

		uploadFS := http.FileServer(http.Dir(infra.AppConfig.Uploads.Dir))
		router.Handle("/uploads/*", http.StripPrefix("/uploads/", uploadFS))

		// metrics 更新器
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-appCtx.Done():
					return
				case <-ticker.C:
				}
				sseClients, _ := sseController.GetStats()["connected_clients"].(int)
				appMiddleware.UpdateRealtimeConnections(sseClients, webSocketController.GetStats().TotalConnections)

				checkCtx, cancel := context.WithTimeout(appCtx, 5*time.Second)
				for name, h := range healthController.Check(checkCtx) {
					appMiddleware.UpdateInfrastructureHealth(name, name, h.Status == "healthy", h.LatencyMs)
				}
				cancel()
			}
		}()

		hooks.OnStart(func() {
			log.Info().
				Int("port", options.Port).
				Str("docs_url", fmt.Sprintf("http://localhost:%d/docs", options.Port)).
				Msg("API文檔已啟用")

			server := &http.Server{
				Addr:    fmt.Sprintf(":%d", options.Port),
				Handler: router,
			}
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("服務器啟動失敗")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit
			log.Info().Msg("正在關閉服務器...")

			cancelApp()
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("服務器關閉錯誤")
			}
			if customerEventHandler != nil {
				customerEventHandler.Stop()
			}
			if discordService != nil {
				log.Info().Msg("正在關閉 Discord 服務...")
				discordService.Close()
			}
			if otelCleanup != nil {
				otelCleanup()
			}
			cleanupServices(services)
			log.Info().Msg("服務器已關閉")
		})
	})
	cli.Run()
}

func initializeServices() (*AppServices, error) {
	mongoDB, err := infra.NewMongoDB(infra.MongoConfig{
		URI:      infra.AppConfig.MongoDB.URI,
		Database: infra.AppConfig.MongoDB.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("MongoDB初始化失敗: %w", err)
	}

	// 草稿與事件都依賴 Redis
	redisClient, err := infra.NewRedis(infra.RedisConfig{
		Addr:     infra.AppConfig.Redis.Addr,
		Password: infra.AppConfig.Redis.Password,
		DB:       infra.AppConfig.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("Redis初始化失敗: %w", err)
	}

	rabbitMQ, err := infra.NewRabbitMQ(infra.RabbitMQConfig{URL: infra.AppConfig.RabbitMQ.URL})
	if err != nil {
		log.Error().Err(err).Msg("RabbitMQ連接失敗 (繼續運行)")
		rabbitMQ = nil
	}

	return &AppServices{
		MongoDB:  mongoDB,
		Redis:    redisClient,
		RabbitMQ: rabbitMQ,
	}, nil
}

func cleanupServices(services *AppServices) {
	if services.MongoDB != nil {
		if err := services.MongoDB.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("MongoDB關閉錯誤")
		}
	}
	if services.Redis != nil {
		if err := services.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("Redis關閉錯誤")
		}
	}
	if services.RabbitMQ != nil {
		if err := services.RabbitMQ.Close(); err != nil {
			log.Error().Err(err).Msg("RabbitMQ關閉錯誤")
		}
	}
}
