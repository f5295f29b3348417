package pvr

import (
	"fmt"

	"go.uber.org/zap"
)

// Handle은 호스트가 조회마다 넘겨주는 불투명 토큰입니다.
// 백엔드는 이 값을 해석하지 않고 전송 콜백에 그대로 전달합니다.
type Handle any

// Host는 조회 결과를 항목 단위로 받는 호스트 콜백
type Host interface {
	TransferChannelEntry(handle Handle, channel *ChannelRecord)
	TransferChannelGroup(handle Handle, group *GroupRecord)
	TransferChannelGroupMember(handle Handle, member *GroupMemberRecord)
}

// Level은 알림 수준
type Level int

const (
	QueueInfo Level = iota
	QueueWarning
	QueueError
)

func (l Level) String() string {
	switch l {
	case QueueWarning:
		return "warning"
	case QueueError:
		return "error"
	default:
		return "info"
	}
}

// Notifier는 사용자에게 보이는 알림을 보내는 인터페이스 (fire-and-forget)
type Notifier interface {
	QueueNotification(level Level, format string, args ...any)
}

// Batch는 Collector가 한 번의 조회 동안 받은 레코드를 모읍니다
type Batch struct {
	Channels []ChannelRecord
	Groups   []GroupRecord
	Members  []GroupMemberRecord
}

// Collector는 *Batch 핸들에 레코드를 쌓는 Host 구현입니다
type Collector struct{}

func (Collector) TransferChannelEntry(handle Handle, channel *ChannelRecord) {
	if b, ok := handle.(*Batch); ok {
		b.Channels = append(b.Channels, *channel)
	}
}

func (Collector) TransferChannelGroup(handle Handle, group *GroupRecord) {
	if b, ok := handle.(*Batch); ok {
		b.Groups = append(b.Groups, *group)
	}
}

func (Collector) TransferChannelGroupMember(handle Handle, member *GroupMemberRecord) {
	if b, ok := handle.(*Batch); ok {
		b.Members = append(b.Members, *member)
	}
}

// logNotifier는 알림을 로그로만 남깁니다
type logNotifier struct {
	logger *zap.Logger
}

func (n logNotifier) QueueNotification(level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case QueueError:
		n.logger.Error(msg)
	case QueueWarning:
		n.logger.Warn(msg)
	default:
		n.logger.Info(msg)
	}
}
