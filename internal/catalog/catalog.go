package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"sync/atomic"
	"time"

	"github.com/yourusername/octonet/internal/tuner"
	"go.uber.org/zap"
)

var (
	// ErrFetch는 목록 문서를 열거나 읽지 못한 경우
	ErrFetch = errors.New("channel list fetch failed")
	// ErrParse는 목록 문서가 올바른 JSON이 아닌 경우
	ErrParse = errors.New("channel list parse failed")
	// ErrUnknownGroup은 이름에 해당하는 그룹이 없는 경우
	ErrUnknownGroup = errors.New("unknown channel group")
	// ErrAlreadyLoaded는 같은 인스턴스에서 로드를 두 번 시도한 경우
	ErrAlreadyLoaded = errors.New("channel list load already attempted")
)

// Opener는 URL의 바이트 스트림을 여는 I/O 기본 요소입니다
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// State는 카탈로그 상태
type State int

const (
	StateUnloaded State = iota
	StateLoaded
)

func (s State) String() string {
	if s == StateLoaded {
		return "loaded"
	}
	return "unloaded"
}

// snapshot은 한 번의 로드 결과이며 게시된 뒤에는 변경되지 않습니다
type snapshot struct {
	channels []Channel
	groups   []Group
}

var emptySnapshot = &snapshot{}

// Catalog는 한 튜너 장비의 채널과 그룹을 메모리에 보관합니다.
// 로드는 한 번만 실행되고 이후에는 읽기 전용이므로 조회는 여러 고루틴에서 동시에 호출해도 됩니다.
type Catalog struct {
	serverAddress  string
	readBufferSize int
	numbering      MemberNumbering
	logger         *zap.Logger

	attempted atomic.Bool
	data      atomic.Pointer[snapshot]
}

// Config는 카탈로그 설정
type Config struct {
	ServerAddress   string // 튜너 장비 주소 (host 또는 host:port)
	ReadBufferSize  int    // 기본값 1024
	MemberNumbering MemberNumbering
	Logger          *zap.Logger
}

// New는 비어 있는(UNLOADED) 카탈로그를 생성합니다
func New(config Config) *Catalog {
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = 1024
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Catalog{
		serverAddress:  config.ServerAddress,
		readBufferSize: config.ReadBufferSize,
		numbering:      config.MemberNumbering,
		logger:         config.Logger.With(zap.String("tuner", config.ServerAddress)),
	}
}

// ServerAddress는 설정된 튜너 주소를 반환합니다
func (c *Catalog) ServerAddress() string {
	return c.serverAddress
}

// Load는 장비에서 채널 목록을 가져와 카탈로그를 채웁니다.
// 문서 전체가 파싱된 경우에만 결과가 반영되며, 실패하면 카탈로그는 비어 있는 상태로 남습니다.
// 인스턴스당 한 번만 시도할 수 있습니다.
func (c *Catalog) Load(ctx context.Context, opener Opener) error {
	if !c.attempted.CompareAndSwap(false, true) {
		return ErrAlreadyLoaded
	}

	start := time.Now()

	content, err := c.fetch(ctx, opener)
	if err != nil {
		c.logger.Error("Failed to fetch channel list", zap.Error(err))
		return err
	}

	snap, err := parseListing(content, c.serverAddress)
	if err != nil {
		c.logger.Error("Failed to parse channel list",
			zap.Int("bytes", len(content)),
			zap.Error(err),
		)
		return err
	}

	c.data.Store(snap)

	c.logger.Info("Channel list loaded",
		zap.Int("channels", len(snap.channels)),
		zap.Int("groups", len(snap.groups)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return nil
}

// fetch는 목록 문서를 고정 크기 버퍼로 끝까지 읽습니다
func (c *Catalog) fetch(ctx context.Context, opener Opener) ([]byte, error) {
	url := tuner.ListingURL(c.serverAddress)

	if opener == nil {
		return nil, fmt.Errorf("%w: no opener", ErrFetch)
	}

	f, err := opener.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer f.Close()

	var content bytes.Buffer
	buf := make([]byte, c.readBufferSize)
	for {
		n, err := f.Read(buf)
		content.Write(buf[:n])
		// 0바이트 읽기는 스트림 끝으로 처리
		if err == io.EOF || (n == 0 && err == nil) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrFetch, url, err)
		}
	}

	return content.Bytes(), nil
}

// State는 현재 상태를 반환합니다
func (c *Catalog) State() State {
	if c.data.Load() == nil {
		return StateUnloaded
	}
	return StateLoaded
}

// Reset은 채널과 그룹 목록을 비웁니다 (소유 객체 해제 시)
func (c *Catalog) Reset() {
	c.data.Store(nil)
}

func (c *Catalog) snapshot() *snapshot {
	if snap := c.data.Load(); snap != nil {
		return snap
	}
	return emptySnapshot
}

// ChannelCount는 TV와 라디오를 합친 채널 수를 반환합니다
func (c *Catalog) ChannelCount() int {
	return len(c.snapshot().channels)
}

// Channels는 IsRadio가 radio와 같은 채널을 목록 순서대로 나열합니다.
// Number는 필터링된 순서가 아니라 전체 채널 목록에서의 위치입니다.
func (c *Catalog) Channels(radio bool) iter.Seq[ChannelEntry] {
	snap := c.snapshot()
	return func(yield func(ChannelEntry) bool) {
		for i, ch := range snap.channels {
			if ch.IsRadio != radio {
				continue
			}
			if !yield(ChannelEntry{Channel: ch, Number: i}) {
				return
			}
		}
	}
}

// Channel은 채널 ID로 채널을 찾습니다
func (c *Catalog) Channel(id int) (ChannelEntry, bool) {
	snap := c.snapshot()
	index := id - FirstChannelID
	if index < 0 || index >= len(snap.channels) {
		return ChannelEntry{}, false
	}
	return ChannelEntry{Channel: snap.channels[index], Number: index}, true
}

// GroupCount는 TV와 라디오를 합친 그룹 수를 반환합니다
func (c *Catalog) GroupCount() int {
	return len(c.snapshot().groups)
}

// Groups는 IsRadio가 radio와 같은 그룹을 목록 순서대로 나열합니다
func (c *Catalog) Groups(radio bool) iter.Seq[Group] {
	snap := c.snapshot()
	return func(yield func(Group) bool) {
		for _, g := range snap.groups {
			if g.IsRadio != radio {
				continue
			}
			g.Members = slices.Clone(g.Members)
			if !yield(g) {
				return
			}
		}
	}
}

// GroupMembers는 이름이 정확히 일치하는 첫 번째 그룹의 멤버를 멤버 순서대로 나열합니다.
// 그룹이 없으면 ErrUnknownGroup을 반환합니다.
func (c *Catalog) GroupMembers(name string) (iter.Seq[Member], error) {
	snap := c.snapshot()

	group, ok := snap.findGroup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
	}

	numbering := c.numbering
	return func(yield func(Member) bool) {
		for _, index := range group.Members {
			ch := snap.channels[index]
			m := Member{
				GroupName:       group.Name,
				ChannelUniqueID: ch.ID,
				ChannelNumber:   index,
			}
			if numbering == NumberByUniqueID {
				m.ChannelNumber = ch.ID
			}
			if !yield(m) {
				return
			}
		}
	}, nil
}

// findGroup은 그룹을 이름으로 선형 탐색합니다 (첫 번째 일치)
func (s *snapshot) findGroup(name string) (*Group, bool) {
	for i := range s.groups {
		if s.groups[i].Name == name {
			return &s.groups[i], true
		}
	}
	return nil, false
}
