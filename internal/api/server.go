package api

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourusername/octonet/internal/catalog"
	"github.com/yourusername/octonet/internal/playlist"
	"github.com/yourusername/octonet/internal/pvr"
	"github.com/yourusername/octonet/internal/rtsp"
	"go.uber.org/zap"
)

// Backend는 API가 호스트 역할로 호출하는 채널 백엔드
type Backend interface {
	Loaded() bool
	ChannelCount() int
	Channels(handle pvr.Handle, radio bool) pvr.Error
	GroupCount() int
	Groups(handle pvr.Handle, radio bool) pvr.Error
	GroupMembers(handle pvr.Handle, group pvr.GroupRecord) pvr.Error
	Catalog() *catalog.Catalog
}

// Prober는 채널 스트림 정보를 확인합니다
type Prober interface {
	Describe(ctx context.Context, url string) (*rtsp.Description, error)
}

// Server는 HTTP API 서버입니다
type Server struct {
	logger     *zap.Logger
	httpServer *http.Server
	router     *gin.Engine
	port       int

	backend Backend
	prober  Prober
	version string

	websocketHandler func(http.ResponseWriter, *http.Request)
	clientCount      func() int
}

// ServerConfig는 API 서버 설정
type ServerConfig struct {
	Port             int
	Production       bool
	Version          string
	Logger           *zap.Logger
	Backend          Backend
	Prober           Prober                                   // nil이면 describe 비활성화
	MetricsPath      string                                   // 비어 있으면 /metrics 비활성화
	WebSocketHandler func(http.ResponseWriter, *http.Request) // nil이면 /ws 비활성화
	ClientCount      func() int
}

// NewServer는 새로운 API 서버를 생성합니다
func NewServer(config ServerConfig) *Server {
	if !config.Production {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	router := gin.New()
	// 그룹 이름에 인코딩된 '/'가 들어갈 수 있음
	router.UseRawPath = true
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggerMiddleware(config.Logger))

	server := &Server{
		logger:           config.Logger,
		router:           router,
		port:             config.Port,
		backend:          config.Backend,
		prober:           config.Prober,
		version:          config.Version,
		websocketHandler: config.WebSocketHandler,
		clientCount:      config.ClientCount,
	}

	server.setupRoutes(config.MetricsPath)

	return server
}

// setupRoutes는 라우트를 설정합니다
func (s *Server) setupRoutes(metricsPath string) {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/channels", s.handleChannels)
		v1.GET("/channels/:id", s.handleChannel)
		v1.GET("/channels/:id/describe", s.handleDescribe)
		v1.GET("/groups", s.handleGroups)
		v1.GET("/groups/:name/members", s.handleGroupMembers)
		v1.GET("/stats", s.handleStats)
	}

	s.router.GET("/playlist.m3u", s.handlePlaylist)

	if metricsPath != "" {
		s.router.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}

	// WebSocket 알림
	if s.websocketHandler != nil {
		s.router.GET("/ws", gin.WrapF(s.websocketHandler))
	}
}

// Handler는 라우터를 반환합니다 (테스트용)
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start는 API 서버를 시작합니다
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting API server",
		zap.String("addr", addr),
	)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop은 API 서버를 종료합니다
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// handleHealth는 헬스 체크를 처리합니다
func (s *Server) handleHealth(c *gin.Context) {
	health := gin.H{
		"status":   "ok",
		"version":  s.version,
		"loaded":   s.backend.Loaded(),
		"channels": s.backend.ChannelCount(),
		"groups":   s.backend.GroupCount(),
		"time":     time.Now().UTC(),
	}
	if s.clientCount != nil {
		health["ws_clients"] = s.clientCount()
	}

	c.JSON(http.StatusOK, health)
}

// handleChannels는 채널 목록을 반환합니다 (?radio=true|false, 생략하면 전체)
func (s *Server) handleChannels(c *gin.Context) {
	kinds, ok := radioFilter(c)
	if !ok {
		return
	}

	batch := &pvr.Batch{}
	for _, radio := range kinds {
		s.backend.Channels(batch, radio)
	}
	channels := batch.Channels
	if channels == nil {
		channels = []pvr.ChannelRecord{}
	}
	slices.SortStableFunc(channels, func(a, b pvr.ChannelRecord) int {
		return cmp.Compare(a.ChannelNumber, b.ChannelNumber)
	})

	c.JSON(http.StatusOK, gin.H{
		"channels": channels,
		"count":    len(channels),
	})
}

// handleChannel은 채널 ID로 채널 하나를 반환합니다
func (s *Server) handleChannel(c *gin.Context) {
	entry, ok := s.lookupChannel(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, entry)
}

// handleDescribe는 채널 스트림에 DESCRIBE를 보내 미디어 정보를 반환합니다
func (s *Server) handleDescribe(c *gin.Context) {
	if s.prober == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "stream probing is disabled"})
		return
	}

	entry, ok := s.lookupChannel(c)
	if !ok {
		return
	}

	desc, err := s.prober.Describe(c.Request.Context(), entry.URL)
	if err != nil {
		s.logger.Warn("Channel describe failed",
			zap.Int("channel_id", entry.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"channel":     entry,
		"description": desc,
	})
}

// handleGroups는 그룹 목록을 반환합니다
func (s *Server) handleGroups(c *gin.Context) {
	kinds, ok := radioFilter(c)
	if !ok {
		return
	}

	batch := &pvr.Batch{}
	for _, radio := range kinds {
		s.backend.Groups(batch, radio)
	}
	groups := batch.Groups
	if groups == nil {
		groups = []pvr.GroupRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
		"count":  len(groups),
	})
}

// handleGroupMembers는 그룹 멤버 목록을 반환합니다
func (s *Server) handleGroupMembers(c *gin.Context) {
	name := c.Param("name")

	batch := &pvr.Batch{}
	if s.backend.GroupMembers(batch, pvr.GroupRecord{GroupName: name}) != pvr.ErrorNoError {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown group: %s", name)})
		return
	}
	members := batch.Members
	if members == nil {
		members = []pvr.GroupMemberRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"group":   name,
		"members": members,
		"count":   len(members),
	})
}

// handleStats는 카탈로그 통계를 반환합니다
func (s *Server) handleStats(c *gin.Context) {
	cat := s.backend.Catalog()

	count := func(radio bool) (channels, groups int) {
		for range cat.Channels(radio) {
			channels++
		}
		for range cat.Groups(radio) {
			groups++
		}
		return channels, groups
	}
	tvChannels, tvGroups := count(false)
	radioChannels, radioGroups := count(true)

	c.JSON(http.StatusOK, gin.H{
		"tuner":          cat.ServerAddress(),
		"state":          cat.State().String(),
		"channels":       cat.ChannelCount(),
		"groups":         cat.GroupCount(),
		"tv_channels":    tvChannels,
		"radio_channels": radioChannels,
		"tv_groups":      tvGroups,
		"radio_groups":   radioGroups,
	})
}

// handlePlaylist는 전체 채널을 M3U로 내보냅니다
func (s *Server) handlePlaylist(c *gin.Context) {
	c.Header("Content-Type", "audio/x-mpegurl; charset=utf-8")
	c.Status(http.StatusOK)

	if err := playlist.FromCatalog(s.backend.Catalog()).Encode(c.Writer); err != nil {
		s.logger.Error("Failed to write playlist", zap.Error(err))
	}
}

// lookupChannel은 :id 파라미터로 채널을 찾고, 실패하면 응답을 씁니다
func (s *Server) lookupChannel(c *gin.Context) (catalog.ChannelEntry, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return catalog.ChannelEntry{}, false
	}

	entry, ok := s.backend.Catalog().Channel(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("channel %d not found", id)})
		return catalog.ChannelEntry{}, false
	}

	return entry, true
}

// radioFilter는 radio 쿼리를 해석합니다. 생략하면 TV와 라디오 모두.
func radioFilter(c *gin.Context) ([]bool, bool) {
	raw, present := c.GetQuery("radio")
	if !present {
		return []bool{false, true}, true
	}

	radio, err := strconv.ParseBool(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "radio must be true or false"})
		return nil, false
	}
	return []bool{radio}, true
}

// corsMiddleware는 CORS 미들웨어입니다
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware는 요청마다 X-Request-ID를 부여합니다
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)

		c.Next()
	}
}

// loggerMiddleware는 로깅 미들웨어입니다
func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		logger.Info("HTTP request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
