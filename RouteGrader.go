package main

import (
	adhoc "RouteGrader/Adhoc"
	"RouteGrader/api"
	"RouteGrader/config"
	"RouteGrader/detector"
	"RouteGrader/feedback"
	backend "RouteGrader/gRPC"
	"RouteGrader/logger"
	"RouteGrader/model"
	"RouteGrader/monitor"
	"RouteGrader/worker"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, warnings, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogMode); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log()

	CPUNum := runtime.NumCPU()
	runtime.GOMAXPROCS(CPUNum)
	fmt.Println(strings.Repeat("#", 64))
	fmt.Printf("CPU Cores: %d\n", CPUNum)
	fmt.Println(" gRPC    Port:", cfg.RPCPort)
	fmt.Println(" HTTP    Port:", cfg.HTTPPort)
	fmt.Println(" Metrics Port:", cfg.MonitorPort)
	fmt.Println("Configured Workers Num:", cfg.WorkersNum)
	fmt.Println(strings.Repeat("#", 64))
	for _, w := range warnings {
		log.Warn(w)
	}

	models := model.NewHolder(nil)
	if n, err := model.LoadFile(cfg.ModelPath); err != nil {
		log.Warn("no model loaded, upload one with POST /api/v1/model", zap.String("path", cfg.ModelPath), zap.Error(err))
	} else {
		models.Swap(n)
		log.Info("model loaded", zap.String("path", cfg.ModelPath), zap.Ints("dims", n.Dims()), zap.String("digest", n.Digest()))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := feedback.Connect(ctx, cfg.Redis, 3*time.Second)
	if err != nil {
		log.Warn("redis connection failed, feedback kept in memory", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	} else {
		log.Info("redis connected successfully", zap.String("addr", cfg.Redis.Addr))
	}
	if rs, ok := store.(*feedback.RedisStore); ok {
		defer rs.Close()
	}
	var uploader *feedback.Uploader
	if cfg.Feedback.UploadURL != "" {
		uploader = feedback.NewUploader(cfg.Feedback.UploadURL, cfg.Feedback.Timeout)
	}
	feedbackService := feedback.NewService(store, uploader, logger.Named("feedback"))

	var det api.Detector
	if cfg.Detector.URL != "" {
		det = detector.NewClient(detector.Config{
			URL:        cfg.Detector.URL,
			APIKey:     cfg.Detector.APIKey,
			Confidence: cfg.Detector.Confidence,
			Timeout:    cfg.Detector.Timeout,
		})
	} else {
		log.Info("detector url not set, /api/v1/detect disabled")
	}

	pool := worker.NewPool(models, cfg.WorkersNum, logger.Named("worker"))
	pool.Start(cfg.WorkersNum)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.StartMon(ctx, cfg.MonitorPort)
	}()

	rpc := backend.NewServer(pool, models, logger.Named("grpc"))
	grpcServer, err := backend.StartGRPCServer(cfg.RPCPort, rpc)
	if err != nil {
		log.Fatal("failed to start gRPC server", zap.Error(err))
	}

	sessions := api.NewRegistry(cfg.SessionIdleTimeout, logger.Named("sessions"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		sessions.IdleMonitor(ctx, time.Second)
	}()
	if cfg.LogMode == logger.ModeDevelopment || cfg.LogMode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(models, sessions, feedbackService, det, logger.Named("api"))
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: api.NewRouter(handler, logger.Named("http")),
	}
	go func() {
		log.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server stopped", zap.Error(err))
			cancel()
		}
	}()

	if cfg.UseRegServer {
		ip, err := adhoc.GetOutboundIP()
		if err != nil {
			log.Warn("failed to get outbound IP, registering as 127.0.0.1", zap.Error(err))
			ip = "127.0.0.1"
		}
		var reg adhoc.RegServerConfig
		reg.SetAddress(cfg.RegServerHost, cfg.RegServerPort)
		wg.Add(1)
		go adhoc.SendAliveMessage(ctx, reg, adhoc.Instance{
			IP:       ip,
			RPCPort:  cfg.RPCPort,
			HTTPPort: cfg.HTTPPort,
			Models:   models,
		}, &wg)
	} else {
		log.Info("UseRegServer is set to false, skipping registration")
	}

	select {
	case <-ctx.Done():
		log.Info("signal received, shutting down")
	case <-rpc.Done():
		log.Warn("shutting down on request")
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	pool.Close()
	wg.Wait()
	log.Info("safely exited")
}
