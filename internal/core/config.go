package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultReadBufferSize는 목록 문서를 읽을 때 한 번에 읽는 바이트 수
	DefaultReadBufferSize = 1024
	// DefaultInputFormat은 호스트에 전달하는 채널 스트림 형식
	DefaultInputFormat = "video/x-mpegts"

	MemberNumberPosition = "position"
	MemberNumberUniqueID = "unique_id"
)

// Config는 전체 애플리케이션 설정을 담는 구조체
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Tuner   TunerConfig   `yaml:"tuner"`
	Catalog CatalogConfig `yaml:"catalog"`
	Notify  NotifyConfig  `yaml:"notify"`
	Probe   ProbeConfig   `yaml:"probe"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	HTTPPort   int  `yaml:"http_port"`
	Production bool `yaml:"production"`
}

// TunerConfig는 Octonet 장비 접속 설정
type TunerConfig struct {
	Address        string `yaml:"address"`
	Timeout        int    `yaml:"timeout"`
	ReadBufferSize int    `yaml:"read_buffer_size"`
}

type CatalogConfig struct {
	InputFormat string `yaml:"input_format"`
	// MemberChannelNumber는 그룹 멤버의 채널 번호 규칙 ("position" 또는 "unique_id")
	MemberChannelNumber string `yaml:"member_channel_number"`
}

type NotifyConfig struct {
	WebSocket bool `yaml:"websocket"`
}

type ProbeConfig struct {
	Timeout   int    `yaml:"timeout"`
	Transport string `yaml:"transport"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoadConfig는 YAML 파일에서 설정을 로드합니다
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig는 YAML 데이터를 파싱하고 기본값 적용 후 검증합니다
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	// 설정 검증
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// applyDefaults는 비어 있는 설정값을 기본값으로 채웁니다
func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Tuner.Timeout == 0 {
		c.Tuner.Timeout = 30
	}
	if c.Tuner.ReadBufferSize == 0 {
		c.Tuner.ReadBufferSize = DefaultReadBufferSize
	}
	if c.Catalog.InputFormat == "" {
		c.Catalog.InputFormat = DefaultInputFormat
	}
	if c.Catalog.MemberChannelNumber == "" {
		c.Catalog.MemberChannelNumber = MemberNumberPosition
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = 10
	}
	if c.Probe.Transport == "" {
		c.Probe.Transport = "tcp"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate는 설정값의 유효성을 검증합니다
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.Server.HTTPPort)
	}

	// 주소는 host 또는 host:port 형식이어야 함 (URL 조합에 그대로 사용)
	if c.Tuner.Address == "" {
		return fmt.Errorf("tuner address is required")
	}
	if strings.Contains(c.Tuner.Address, "://") || strings.ContainsAny(c.Tuner.Address, "/?# ") {
		return fmt.Errorf("invalid tuner address %q: expected host or host:port", c.Tuner.Address)
	}

	if c.Tuner.Timeout < 0 {
		return fmt.Errorf("tuner timeout must not be negative")
	}

	if c.Tuner.ReadBufferSize < 0 {
		return fmt.Errorf("read_buffer_size must be positive")
	}

	switch c.Catalog.MemberChannelNumber {
	case MemberNumberPosition, MemberNumberUniqueID:
	default:
		return fmt.Errorf("invalid member_channel_number: %s", c.Catalog.MemberChannelNumber)
	}

	switch c.Probe.Transport {
	case "tcp", "udp":
	default:
		return fmt.Errorf("invalid probe transport: %s", c.Probe.Transport)
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %s", c.Logging.Output)
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		return fmt.Errorf("logging file_path is required for output %s", c.Logging.Output)
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /")
	}

	return nil
}
