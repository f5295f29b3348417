package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Log는 전역 로거 인스턴스
	// 시작 시 Init에서 한 번 교체되며 로테이션은 파일 writer만 바꿉니다
	Log = zap.NewNop()

	mu         sync.Mutex
	fileWriter *dailyWriter
	cancel     context.CancelFunc
)

// Config는 로거 설정
type Config struct {
	Level      string
	Output     string // console, file, both
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

// Init은 zap 로거를 초기화합니다
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	// 이전 Init의 로테이션과 파일 정리
	if cancel != nil {
		cancel()
		cancel = nil
	}
	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
	}

	if err := build(cfg); err != nil {
		return err
	}

	// 파일 출력이 활성화된 경우 매일 자정에 로그 파일 로테이션
	if fileWriter != nil {
		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		go dailyRotation(ctx, fileWriter)
	}

	return nil
}

// build는 로거 코어를 만들어 Log를 교체합니다 (mu 보유 상태에서 호출)
func build(cfg Config) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleConfig := encoderConfig
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleCore := func() zapcore.Core {
		return zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(os.Stdout), level)
	}
	fileCore := func() (zapcore.Core, error) {
		w, err := newDailyWriter(cfg, time.Now())
		if err != nil {
			return nil, err
		}
		fileWriter = w
		return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), w, level), nil
	}

	var core zapcore.Core
	switch cfg.Output {
	case "file":
		fc, err := fileCore()
		if err != nil {
			return err
		}
		core = fc
	case "both":
		fc, err := fileCore()
		if err != nil {
			return err
		}
		core = zapcore.NewTee(consoleCore(), fc)
	default:
		core = consoleCore()
	}

	Log = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return nil
}

// dailyWriter는 날짜별 lumberjack 파일에 쓰는 zapcore.WriteSyncer입니다.
// 코어가 이 writer를 참조하므로 Named로 만든 하위 로거도 로테이션 후 새 파일에 씁니다.
type dailyWriter struct {
	mu  sync.Mutex
	cfg Config
	out *lumberjack.Logger
}

func newDailyWriter(cfg Config, day time.Time) (*dailyWriter, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &dailyWriter{cfg: cfg, out: newLumberjack(cfg, day)}, nil
}

func newLumberjack(cfg Config, day time.Time) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   DailyFilePath(cfg.FilePath, day),
		MaxSize:    cfg.MaxSize,    // MB
		MaxBackups: cfg.MaxBackups, // 보관할 최대 파일 개수
		MaxAge:     cfg.MaxAge,     // 일
		LocalTime:  true,
		Compress:   true,
	}
}

func (w *dailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Write(p)
}

func (w *dailyWriter) Sync() error {
	return nil
}

// rotate는 현재 파일을 닫고 day 날짜의 파일로 전환합니다
func (w *dailyWriter) rotate(day time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.out.Close()
	w.out = newLumberjack(w.cfg, day)
	return err
}

func (w *dailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Close()
}

// DailyFilePath는 날짜를 포함한 로그 파일 경로를 만듭니다
// 예: logs/octonet.log -> logs/octonet-2025-11-17.log
func DailyFilePath(basePath string, day time.Time) string {
	ext := filepath.Ext(basePath)
	nameWithoutExt := strings.TrimSuffix(basePath, ext)
	return fmt.Sprintf("%s-%s%s", nameWithoutExt, day.Format("2006-01-02"), ext)
}

// dailyRotation은 매일 자정에 새 날짜 파일로 전환합니다
func dailyRotation(ctx context.Context, w *dailyWriter) {
	for {
		now := time.Now()
		tomorrow := now.Add(24 * time.Hour)
		midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, now.Location())

		select {
		case <-time.After(midnight.Sub(now)):
			if err := w.rotate(time.Now()); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to rotate log file: %v\n", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close는 로거를 종료하고 리소스를 정리합니다
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if cancel != nil {
		cancel()
		cancel = nil
	}
	_ = Log.Sync()
	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
	}
}

// Sync는 로거 버퍼를 플러시합니다
func Sync() {
	_ = Log.Sync()
}

func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

func Debug(msg string, fields ...zap.Field) {
	Log.Debug(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}

// Fatal은 fatal 레벨 로그를 출력하고 프로그램을 종료합니다
func Fatal(msg string, fields ...zap.Field) {
	Log.Fatal(msg, fields...)
}
