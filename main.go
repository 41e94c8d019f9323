package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PimSync/internal/config"
	"PimSync/internal/csapi"
	"PimSync/internal/database"
	"PimSync/internal/database/model/mapping"
	"PimSync/internal/database/model/synclog"
	httphandler "PimSync/internal/handlers/http"
	"PimSync/internal/pimapi"
	"PimSync/internal/sync"
	"PimSync/internal/sync/models"
	"PimSync/internal/telegram"
	"PimSync/internal/version"
	"PimSync/pkg/logging"
	"github.com/julienschmidt/httprouter"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.DefaultPath, "путь к config.ini")
	full := flag.Bool("full", false, "полная синхронизация вместо delta")
	days := flag.Int("days", 0, "окно delta-синхронизации в днях (1..365), 0 - SYNC.Days")
	catalogID := flag.String("catalog", "", "ID каталога PIM, по умолчанию PIM.CatalogID")
	serve := flag.Bool("serve", false, "запустить HTTP-админку и планировщик")
	flag.Parse()

	logger := logging.GetLogger()
	logger.Info("Start Main")
	defer logger.Info("End Main")
	logger.Infof("Version %s", version.GetVersion().String())

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("failed config.Load, error: %v", err)
		return 1
	}

	err = logging.Init(cfg.LOG.Level, cfg.LOG.Dir)
	if err != nil {
		logger.Errorf("failed logging.Init, error: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifier sync.Notifier
	if cfg.TELEGRAM.BotToken != "" {
		bot, err := telegram.NewBot(cfg.TELEGRAM.BotToken, cfg.TELEGRAM.ChatID, logger)
		if err != nil {
			logger.Errorf("failed telegram.NewBot, error: %v", err)
		} else {
			hook := telegram.NewHook(bot)
			logging.AddHook(hook)
			defer func() {
				if !hook.Close(10 * time.Second) {
					logger.Warn("не все сообщения отправлены в telegram")
				}
			}()
			notifier = bot
			if *serve {
				go func() {
					err := bot.Run(ctx, func() string { return fmt.Sprintf("PimSync %s работает", version.GetVersion().String()) })
					if err != nil {
						logger.Errorf("failed bot.Run, error: %v", err)
					}
				}()
			}
		}
	}

	db, err := database.Open(ctx, cfg.DB.Driver, cfg.DB.DSN, logger)
	if err != nil {
		logger.Errorf("failed database.Open, error: %v", err)
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Errorf("failed close db, error: %v", err)
		}
	}()

	pim := pimapi.NewAPI(pimapi.Options{
		URL:            cfg.PIM.URL,
		Login:          cfg.PIM.Login,
		Password:       cfg.PIM.Password,
		APIVersion:     cfg.PIM.APIVersion,
		TokenLifetime:  time.Duration(cfg.PIM.TokenLifetime) * time.Second,
		CacheLifetime:  time.Duration(cfg.PIM.CacheLifetime) * time.Second,
		Timeout:        time.Duration(cfg.PIM.Timeout) * time.Second,
		ConnectTimeout: time.Duration(cfg.PIM.ConnectTimeout) * time.Second,
		RetryCount:     cfg.PIM.RetryCount,
		PageSize:       cfg.PIM.PageSize,
	}, logger.GetLoggerWithField("api", "pim"))

	cs := csapi.NewAPI(csapi.Options{
		URL:            cfg.STOREFRONT.URL,
		Email:          cfg.STOREFRONT.Email,
		APIKey:         cfg.STOREFRONT.ApiKey,
		RPS:            cfg.STOREFRONT.RPS,
		Timeout:        time.Duration(cfg.STOREFRONT.Timeout) * time.Second,
		ConnectTimeout: time.Duration(cfg.STOREFRONT.ConnectTimeout) * time.Second,
		RetryCount:     cfg.STOREFRONT.RetryCount,
		PageSize:       cfg.STOREFRONT.PageSize,
	}, logger.GetLoggerWithField("api", "cs-cart"))

	var opts []sync.Option
	if notifier != nil {
		opts = append(opts, sync.WithNotifier(notifier))
	}
	service := sync.NewService(cfg, pim, cs,
		mapping.NewStore(db, logger),
		synclog.NewStore(db, logger),
		logger, opts...)

	if *serve {
		return runServer(ctx, cfg, service, logger)
	}

	if !cfg.SYNC.Enabled {
		logger.Info("Синхронизация отключена в настройках (SYNC.Enabled = false)")
		return 0
	}

	syncType := models.SyncType(cfg.SYNC.DefaultType)
	if *full {
		syncType = models.SyncFull
	} else if *days > 0 {
		syncType = models.SyncDelta
	}

	result := service.SyncCatalog(ctx, *catalogID, syncType, *days)
	logger.Infof("Синхронизация %s: категории %d/%d/%d, товары %d/%d/%d (создано/обновлено/ошибок)",
		result.Status,
		result.Categories.Created, result.Categories.Updated, result.Categories.Failed,
		result.Products.Created, result.Products.Updated, result.Products.Failed)

	if n, err := service.CleanupOldLogs(ctx); err != nil {
		logger.Errorf("failed CleanupOldLogs, error: %v", err)
	} else if n > 0 {
		logger.Infof("Удалено старых записей журнала: %d", n)
	}

	if result.Status != models.StatusCompleted {
		logger.Errorf("Синхронизация завершилась с ошибкой: %s", result.Error)
		return 1
	}
	return 0
}

func runServer(ctx context.Context, cfg *config.Config, service *sync.Service, logger *logging.Logger) int {
	if cfg.SERVICE.Token == "" {
		logger.Error("SERVICE.Token is required in serve mode")
		return 1
	}

	if cfg.SYNC.Enabled && cfg.SYNC.Interval > 0 {
		go service.RunScheduler(ctx, time.Duration(cfg.SYNC.Interval)*time.Minute)
	}

	router := httprouter.New()
	httphandler.NewHandler(ctx, service, cfg.SERVICE.Token, logger.GetLoggerWithField("component", "http")).Register(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.SERVICE.PORT),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("failed server.Shutdown, error: %v", err)
		}
	}()

	logger.Infof("HTTP сервер слушает порт %d", cfg.SERVICE.PORT)
	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Errorf("failed ListenAndServe, error: %v", err)
		return 1
	}
	return 0
}
