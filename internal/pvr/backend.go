package pvr

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/octonet/internal/catalog"
	"github.com/yourusername/octonet/internal/metrics"
	"go.uber.org/zap"
)

// Backend는 한 튜너 장비의 카탈로그를 소유하고 호스트 조회에 응답합니다.
// 생성 시 채널 목록을 한 번 로드하며 이후에는 읽기 전용입니다.
type Backend struct {
	catalog     *catalog.Catalog
	host        Host
	notifier    Notifier
	inputFormat string
	logger      *zap.Logger
}

// BackendConfig는 Backend 설정
type BackendConfig struct {
	Catalog     catalog.Config
	Opener      catalog.Opener
	Host        Host     // nil이면 Collector
	Notifier    Notifier // nil이면 로그로만 남김
	InputFormat string   // 기본값 video/x-mpegts
	Logger      *zap.Logger
}

// NewBackend는 백엔드를 생성하고 채널 목록을 로드합니다.
// 로드에 실패해도 백엔드는 빈 카탈로그로 동작합니다.
func NewBackend(ctx context.Context, config BackendConfig) *Backend {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Host == nil {
		config.Host = Collector{}
	}
	if config.Notifier == nil {
		config.Notifier = logNotifier{logger: config.Logger}
	}
	if config.InputFormat == "" {
		config.InputFormat = "video/x-mpegts"
	}
	if config.Catalog.Logger == nil {
		config.Catalog.Logger = config.Logger
	}

	b := &Backend{
		catalog:     catalog.New(config.Catalog),
		host:        config.Host,
		notifier:    config.Notifier,
		inputFormat: config.InputFormat,
		logger:      config.Logger,
	}

	if b.load(ctx, config.Opener) {
		b.notifier.QueueNotification(QueueInfo, "%d channels loaded.", b.catalog.ChannelCount())
	}

	return b
}

// load는 카탈로그 로드를 실행하고 메트릭을 기록합니다
func (b *Backend) load(ctx context.Context, opener catalog.Opener) bool {
	start := time.Now()
	err := b.catalog.Load(ctx, opener)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		metrics.RecordLoad("success", elapsed)
	case errors.Is(err, catalog.ErrParse):
		metrics.RecordLoad("parse_error", elapsed)
	default:
		metrics.RecordLoad("fetch_error", elapsed)
	}

	if err != nil {
		b.logger.Warn("Channel list unavailable, serving empty catalog",
			zap.String("tuner", b.catalog.ServerAddress()),
			zap.Error(err),
		)
		return false
	}

	b.updateSizeMetrics()
	return true
}

func (b *Backend) updateSizeMetrics() {
	count := func(radio bool) (channels, groups int) {
		for range b.catalog.Channels(radio) {
			channels++
		}
		for range b.catalog.Groups(radio) {
			groups++
		}
		return channels, groups
	}

	tvChannels, tvGroups := count(false)
	radioChannels, radioGroups := count(true)
	metrics.SetCatalogSize(tvChannels, radioChannels, tvGroups, radioGroups)
}

// Catalog는 내부 카탈로그를 반환합니다 (읽기 전용 조회용)
func (b *Backend) Catalog() *catalog.Catalog {
	return b.catalog
}

// Loaded는 채널 목록이 로드되었는지 반환합니다
func (b *Backend) Loaded() bool {
	return b.catalog.State() == catalog.StateLoaded
}

// ChannelCount는 전체 채널 수를 반환합니다
func (b *Backend) ChannelCount() int {
	return b.catalog.ChannelCount()
}

// Channels는 종류가 일치하는 채널마다 TransferChannelEntry를 호출합니다
func (b *Backend) Channels(handle Handle, radio bool) Error {
	n := 0
	for entry := range b.catalog.Channels(radio) {
		rec := newChannelRecord(entry, b.inputFormat)
		b.host.TransferChannelEntry(handle, &rec)
		n++
	}
	metrics.RecordTransfers("channel", n)
	return ErrorNoError
}

// GroupCount는 전체 그룹 수를 반환합니다
func (b *Backend) GroupCount() int {
	return b.catalog.GroupCount()
}

// Groups는 종류가 일치하는 그룹마다 TransferChannelGroup을 호출합니다
func (b *Backend) Groups(handle Handle, radio bool) Error {
	n := 0
	for group := range b.catalog.Groups(radio) {
		rec := newGroupRecord(group)
		b.host.TransferChannelGroup(handle, &rec)
		n++
	}
	metrics.RecordTransfers("group", n)
	return ErrorNoError
}

// GroupMembers는 이름이 일치하는 그룹의 멤버마다 TransferChannelGroupMember를 호출합니다.
// 그룹이 없으면 ErrorUnknown을 반환하고 아무것도 전달하지 않습니다.
func (b *Backend) GroupMembers(handle Handle, group GroupRecord) Error {
	members, err := b.catalog.GroupMembers(group.GroupName)
	if err != nil {
		b.logger.Debug("Group members requested for unknown group",
			zap.String("group", group.GroupName),
		)
		return ErrorUnknown
	}

	n := 0
	for m := range members {
		rec := newGroupMemberRecord(group.GroupName, m)
		b.host.TransferChannelGroupMember(handle, &rec)
		n++
	}
	metrics.RecordTransfers("group_member", n)
	return ErrorNoError
}

// Close는 채널과 그룹 목록을 비웁니다
func (b *Backend) Close() {
	b.catalog.Reset()
	metrics.SetCatalogSize(0, 0, 0, 0)
	b.logger.Info("Backend closed")
}
