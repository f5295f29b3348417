package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/yourusername/octonet/internal/api"
	"github.com/yourusername/octonet/internal/catalog"
	"github.com/yourusername/octonet/internal/core"
	"github.com/yourusername/octonet/internal/notify"
	"github.com/yourusername/octonet/internal/pvr"
	"github.com/yourusername/octonet/internal/rtsp"
	"github.com/yourusername/octonet/internal/tuner"
	"github.com/yourusername/octonet/pkg/logger"
	"go.uber.org/zap"
)

const (
	defaultConfigPath = "configs/config.yaml"
	version           = "0.1.0"
)

func main() {
	// 커맨드라인 플래그 파싱
	configPath := flag.String("config", defaultConfigPath, "설정 파일 경로")
	showVersion := flag.Bool("version", false, "버전 정보 출력")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Octonet channel catalog v%s\n", version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// 설정 로드
	config, err := core.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 로거 초기화
	if err := logger.Init(logger.Config{
		Level:      config.Logging.Level,
		Output:     config.Logging.Output,
		FilePath:   config.Logging.FilePath,
		MaxSize:    config.Logging.MaxSize,
		MaxBackups: config.Logging.MaxBackups,
		MaxAge:     config.Logging.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Info("Starting Octonet channel catalog",
		zap.String("version", version),
		zap.String("go_version", runtime.Version()),
		zap.String("tuner", config.Tuner.Address),
		zap.Int("http_port", config.Server.HTTPPort),
		zap.String("member_channel_number", config.Catalog.MemberChannelNumber),
	)

	app := newApplication(config)
	defer app.cleanup()

	if err := app.apiServer.Start(); err != nil {
		logger.Fatal("Failed to start API server", zap.Error(err))
	}

	// 종료 시그널 대기
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	logger.Info("Received shutdown signal",
		zap.String("signal", sig.String()),
	)
}

// Application은 애플리케이션 컴포넌트들을 관리합니다
type Application struct {
	hub       *notify.Hub
	backend   *pvr.Backend
	apiServer *api.Server
}

// newApplication은 컴포넌트를 생성하고 채널 목록을 로드합니다
func newApplication(config *core.Config) *Application {
	app := &Application{}

	// 1. 알림 허브
	app.hub = notify.NewHub(notify.HubConfig{Logger: logger.Log.Named("notify")})

	// 2. 튜너 클라이언트와 백엔드 (생성 시 한 번 로드)
	tunerClient := tuner.NewClient(tuner.ClientConfig{
		Timeout: time.Duration(config.Tuner.Timeout) * time.Second,
		Logger:  logger.Log.Named("tuner"),
	})

	numbering := catalog.NumberByPosition
	if config.Catalog.MemberChannelNumber == core.MemberNumberUniqueID {
		numbering = catalog.NumberByUniqueID
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), time.Duration(config.Tuner.Timeout)*time.Second)
	defer cancel()

	app.backend = pvr.NewBackend(loadCtx, pvr.BackendConfig{
		Catalog: catalog.Config{
			ServerAddress:   config.Tuner.Address,
			ReadBufferSize:  config.Tuner.ReadBufferSize,
			MemberNumbering: numbering,
		},
		Opener:      tunerClient,
		Host:        pvr.Collector{},
		Notifier:    app.hub,
		InputFormat: config.Catalog.InputFormat,
		Logger:      logger.Log.Named("catalog"),
	})
	if !app.backend.Loaded() {
		logger.Warn("Continuing with an empty catalog",
			zap.String("tuner", config.Tuner.Address),
		)
	}

	// 3. API 서버
	serverConfig := api.ServerConfig{
		Port:       config.Server.HTTPPort,
		Production: config.Server.Production,
		Version:    version,
		Logger:     logger.Log.Named("api"),
		Backend:    app.backend,
		Prober: rtsp.NewProber(rtsp.ProberConfig{
			Transport: config.Probe.Transport,
			Timeout:   time.Duration(config.Probe.Timeout) * time.Second,
			Logger:    logger.Log.Named("rtsp"),
		}),
		ClientCount: app.hub.ClientCount,
	}
	if config.Metrics.Enabled {
		serverConfig.MetricsPath = config.Metrics.Path
	}
	if config.Notify.WebSocket {
		serverConfig.WebSocketHandler = app.hub.HandleWebSocket
	}
	app.apiServer = api.NewServer(serverConfig)

	return app
}

// cleanup은 애플리케이션 리소스를 정리합니다
func (app *Application) cleanup() {
	logger.Info("Cleaning up application resources")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if app.apiServer != nil {
		if err := app.apiServer.Stop(ctx); err != nil {
			logger.Error("Failed to stop API server", zap.Error(err))
		}
	}

	if app.hub != nil {
		app.hub.Close()
	}

	if app.backend != nil {
		app.backend.Close()
	}

	logger.Info("Cleanup completed")
}
