package rtsp

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
	"go.uber.org/zap"
)

// Prober는 채널 스트림 URL에 DESCRIBE를 보내 미디어 정보를 확인합니다 (재생은 하지 않음)
type Prober struct {
	transport string // "tcp" or "udp"
	timeout   time.Duration
	logger    *zap.Logger
}

// ProberConfig는 Prober 설정
type ProberConfig struct {
	Transport string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Description은 DESCRIBE 결과 요약
type Description struct {
	URL    string      `json:"url"`
	Medias []MediaInfo `json:"medias"`
}

// MediaInfo는 SDP 미디어 한 개의 정보
type MediaInfo struct {
	Type    string       `json:"type"`
	Formats []FormatInfo `json:"formats"`
}

// FormatInfo는 미디어 포맷 정보
type FormatInfo struct {
	Codec       string `json:"codec"`
	PayloadType uint8  `json:"payload_type"`
	ClockRate   int    `json:"clock_rate"`
}

// NewProber는 새로운 Prober를 생성합니다
func NewProber(config ProberConfig) *Prober {
	// 기본값 설정
	if config.Transport == "" {
		config.Transport = "tcp"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Prober{
		transport: config.Transport,
		timeout:   config.Timeout,
		logger:    config.Logger,
	}
}

// Describe는 RTSP 서버에 연결해 스트림 정보를 가져옵니다
func (p *Prober) Describe(ctx context.Context, rawURL string) (*Description, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid RTSP URL: %w", err)
	}
	if u.Scheme != "rtsp" && u.Scheme != "rtsps" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 컨텍스트 마감이 더 가까우면 그 시간을 사용
	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	baseURL, err := base.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	client := &gortsplib.Client{
		Transport:    p.getTransport(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	if err := client.Start(u.Scheme, u.Host); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer client.Close()

	// DESCRIBE: 스트림 정보 획득
	desc, _, err := client.Describe(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to describe: %w", err)
	}

	result := &Description{URL: MaskURL(rawURL)}
	for _, media := range desc.Medias {
		info := MediaInfo{Type: string(media.Type)}
		for _, forma := range media.Formats {
			info.Formats = append(info.Formats, FormatInfo{
				Codec:       forma.Codec(),
				PayloadType: forma.PayloadType(),
				ClockRate:   forma.ClockRate(),
			})
		}
		result.Medias = append(result.Medias, info)
	}

	p.logger.Info("Stream description received",
		zap.String("url", result.URL),
		zap.Int("media_count", len(result.Medias)),
	)

	return result, nil
}

// getTransport는 전송 프로토콜을 반환합니다
func (p *Prober) getTransport() *gortsplib.Transport {
	if p.transport == "udp" {
		transport := gortsplib.TransportUDP
		return &transport
	}
	transport := gortsplib.TransportTCP
	return &transport
}

// MaskURL은 비밀번호를 마스킹한 URL을 반환합니다
func MaskURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "***"
	}

	if u.User != nil {
		u.User = url.UserPassword("***", "***")
	}

	return u.String()
}
