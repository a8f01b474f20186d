package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/config"
	colorgameGMSDomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/domain"
	colorgameGMSMachine "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/machine"
	colorgameGMSRepo "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/repository/db"
	colorgameGMSUseCase "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gms/usecase"
	colorgameGSDomain "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/domain"
	colorgameGSDB "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/repository/db"
	colorgameGSRedis "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/repository/redis"
	colorgameGSUseCase "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/color_game/gs/usecase"
	gatewayHttp "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/gateway/adapter/http"
	gatewayAdapter "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/gateway/adapter/local"
	gatewayUseCase "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/gateway/usecase"
	"github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/gateway/ws"
	walletModule "github.com/tagdedheeraj/colorbet-mania-sub001/internal/modules/wallet"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/lock"
	"github.com/tagdedheeraj/colorbet-mania-sub001/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Parse command line flags
	pprofPort := flag.String("pprof-port", "", "Port to run pprof server on (e.g., 6060)")
	background := flag.Bool("d", false, "Run in background mode (disable console logging)")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.LoadMonolithConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	gameCfg := cfg.ColorGame

	// If background is true, disable console logging
	logger.InitWithFile(gameCfg.Log.File, gameCfg.Log.Level, gameCfg.Log.Format, gameCfg.Log.Console && !*background)
	defer logger.Flush()

	// Start pprof server if requested
	if *pprofPort != "" {
		go func() {
			addr := "localhost:" + *pprofPort
			logger.InfoGlobal().Str("addr", addr).Msg("📈 Starting pprof server")
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.ErrorGlobal().Err(err).Msg("Failed to start pprof server")
			}
		}()
	}

	fmt.Printf("🚀 Starting Color Game Monolith... Logs are being written to %s (rotating)\n", gameCfg.Log.File)
	logger.InfoGlobal().Msg("🎮 Starting Color Game Monolith...")

	// 2. Initialize Infrastructure
	db, err := gorm.Open(postgres.Open(gameCfg.Database.DSN()), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to get database instance")
	}

	// Leave room for other tools on the default max_connections of 100.
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to ping database")
	}
	for _, migrate := range []func(*gorm.DB) error{
		colorgameGMSRepo.AutoMigrate,
		colorgameGSDB.AutoMigrate,
		walletModule.AutoMigrate,
	} {
		if err := migrate(db); err != nil {
			logger.FatalGlobal().Err(err).Msg("Failed to migrate schema")
		}
	}
	logger.InfoGlobal().Msg("✅ Database connected")

	var statsMirror colorgameGSDomain.StatsRepository
	if gameCfg.StatsMirror {
		rdb := redis.NewClient(&redis.Options{
			Addr: gameCfg.Redis.Addr(),
		})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.FatalGlobal().Err(err).Msg("Failed to ping redis")
		}
		statsMirror = colorgameGSRedis.NewStatsRepository(rdb)
		logger.InfoGlobal().Msg("✅ Redis connected (live stats mirror)")
	}

	if err := colorgameGSDomain.SetNodeID(gameCfg.NodeID); err != nil {
		logger.FatalGlobal().Err(err).Msg("Invalid node id")
	}

	// 3. Initialize Modules
	walletStore := walletModule.NewStore(db)
	userLocks := lock.NewUserLock()
	logger.InfoGlobal().Msg("✅ Wallet module initialized")

	// Gateway Module (initialize early to get broadcast channel)
	wsManager := ws.NewManager(ws.Options{
		PingInterval:   cfg.Gateway.WebSocket.PingInterval,
		WriteWait:      cfg.Gateway.WebSocket.WriteWait,
		PongWait:       cfg.Gateway.WebSocket.PongWait,
		MaxMessageSize: cfg.Gateway.WebSocket.MaxMessageSize,
		SendBuffer:     cfg.Gateway.WebSocket.SendBuffer,
	})
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go wsManager.Run(runCtx)
	broadcaster := gatewayAdapter.NewBroadcaster(wsManager)

	logger.InfoGlobal().Msg("🎲 Initializing Color Game...")

	modes := make([]colorgameGMSDomain.GameMode, 0, len(gameCfg.Modes))
	modeIDs := make([]string, 0, len(gameCfg.Modes))
	for _, m := range gameCfg.Modes {
		modes = append(modes, colorgameGMSDomain.GameMode{ID: m.ID, Name: m.Name, DurationSeconds: m.DurationSeconds})
		modeIDs = append(modeIDs, m.ID)
	}
	registry, err := colorgameGMSDomain.NewModeRegistry(modes)
	if err != nil {
		logger.FatalGlobal().Err(err).Msg("Invalid mode catalog")
	}

	// 1. GMS: rounds, results and clocks
	gameRoundRepo := colorgameGMSRepo.NewGameRoundRepository(db)
	roundResultRepo := colorgameGMSRepo.NewRoundResultRepository(db)
	resolver := colorgameGMSUseCase.NewResultResolver(gameRoundRepo, roundResultRepo, nil)

	// 2. GS: bets, settlement and stats
	betRepo := colorgameGSDB.NewBetRepository(db)
	payout := colorgameGSUseCase.PayoutPolicy{
		Number:   gameCfg.Engine.Payout.Number,
		RedGreen: gameCfg.Engine.Payout.RedGreen,
		Violet:   gameCfg.Engine.Payout.Violet,
	}
	settlement := colorgameGSUseCase.NewSettlementEngine(db, gameRoundRepo, betRepo, walletStore, resolver, payout, userLocks, broadcaster)

	gmsUC := colorgameGMSUseCase.NewGMSUseCase(registry, gameRoundRepo, resolver, settlement, broadcaster, colorgameGMSMachine.Options{
		LockBuffer:    gameCfg.Engine.LockBuffer,
		SettleTimeout: gameCfg.Engine.SettleTimeout,
		RetryInitial:  gameCfg.Engine.SettleRetryInitial,
		RetryMax:      gameCfg.Engine.SettleRetryMax,
		StuckCeiling:  gameCfg.Engine.StuckRoundCeiling,
		FirstPeriod:   gameCfg.Engine.FirstPeriod,
	})
	logger.InfoGlobal().Msg("  ✅ GMS initialized")

	stats := colorgameGSUseCase.NewLiveStatsAggregator(modeIDs, statsMirror)
	gmsUC.RegisterEventHandler(stats.HandleRoundEvent)
	go stats.RunMirror(runCtx)

	ledger := colorgameGSUseCase.NewBetLedger(db, gmsUC, betRepo, walletStore, userLocks)
	ledger.OnBetPlaced(stats.Record)

	gsUseCase := colorgameGSUseCase.NewGSUseCase(gmsUC, ledger, stats, walletStore)
	logger.InfoGlobal().Msg("  ✅ GS initialized")

	var wg sync.WaitGroup
	if err := gmsUC.Start(runCtx); err != nil {
		logger.FatalGlobal().Err(err).Msg("Failed to recover round state")
	}
	logger.InfoGlobal().Int("modes", len(modes)).Msg("  ✅ Round clocks started")

	// 3. Initialize Gateway UseCase
	gatewayUC := gatewayUseCase.NewGatewayUseCase(gsUseCase)
	gatewayHttpHandler := gatewayHttp.NewHandler(gatewayUC, gsUseCase, wsManager)
	logger.InfoGlobal().Msg("✅ Color Game ready")

	// 4. Setup HTTP Servers

	// Gateway Server (player API + WebSocket)
	gatewayRouter := gin.New()
	gatewayRouter.Use(gin.Recovery())
	gatewayRouter.Use(logger.GinMiddleware())

	gatewayRouter.GET("/ws", func(c *gin.Context) {
		gatewayHttpHandler.HandleWebSocket(c.Writer, c.Request)
	})
	gatewayHttpHandler.RegisterRoutes(gatewayRouter.Group("/api/color_game"))

	// Admin Server, kept on its own port so it can stay off the public network
	adminRouter := gin.New()
	adminRouter.Use(gin.Recovery())
	adminRouter.Use(logger.GinMiddleware())
	gatewayHttpHandler.RegisterAdminRoutes(adminRouter.Group("/api/admin/color_game"))
	gatewayHttpHandler.RegisterRoutes(adminRouter.Group("/api/admin/color_game"))

	// 5. Start Servers
	gatewayPort := cfg.Gateway.Server.Port
	adminPort := gameCfg.Server.Port

	gatewaySrv := &http.Server{
		Addr:    ":" + gatewayPort,
		Handler: gatewayRouter,
	}

	adminSrv := &http.Server{
		Addr:    ":" + adminPort,
		Handler: adminRouter,
	}

	logger.InfoGlobal().
		Str("gateway_port", gatewayPort).
		Str("admin_port", adminPort).
		Str("ws_url", fmt.Sprintf("ws://localhost:%s/ws?user_id=YOUR_ID", gatewayPort)).
		Msg("🚀 Color Game Monolith running")

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := gatewaySrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalGlobal().Err(err).Msg("Gateway server failed")
		}
	}()

	go func() {
		defer wg.Done()
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalGlobal().Err(err).Msg("Admin server failed")
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.InfoGlobal().Msg("🛑 Shutting down servers...")

	// 6.1 Stop HTTP Servers first (stop accepting new bets)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := gatewaySrv.Shutdown(ctx); err != nil {
		logger.ErrorGlobal().Err(err).Msg("Gateway server forced to shutdown")
	}
	if err := adminSrv.Shutdown(ctx); err != nil {
		logger.ErrorGlobal().Err(err).Msg("Admin server forced to shutdown")
	}
	wg.Wait()

	// 6.2 Stop round clocks after the transition in progress
	logger.InfoGlobal().Msg("⏳ Waiting for round clocks to stop...")
	gmsUC.Stop()

	// 6.3 Shutdown Gateway (close all WebSocket connections)
	logger.InfoGlobal().Msg("🔌 Closing all WebSocket connections...")
	wsManager.Shutdown()
	stopRun()

	logger.InfoGlobal().Msg("👋 Server exited properly")
}
