package pvr

import (
	"unicode/utf8"

	"github.com/yourusername/octonet/internal/catalog"
)

// 호스트 레코드의 고정 길이 문자열 필드 크기 (종료 문자 포함)
const (
	NameStringLength        = 1024
	URLStringLength         = 1024
	InputFormatStringLength = 32
)

// Error는 호스트에 돌려주는 상태 코드
type Error int

const (
	ErrorNoError Error = 0
	ErrorUnknown Error = -1
)

func (e Error) String() string {
	switch e {
	case ErrorNoError:
		return "no error"
	case ErrorUnknown:
		return "unknown"
	default:
		return "error"
	}
}

// ChannelRecord는 호스트로 전달되는 채널 항목
type ChannelRecord struct {
	UniqueID      uint32 `json:"unique_id"`
	IsRadio       bool   `json:"is_radio"`
	ChannelNumber uint32 `json:"channel_number"`
	ChannelName   string `json:"channel_name"`
	StreamURL     string `json:"stream_url"`
	InputFormat   string `json:"input_format"`
	IsHidden      bool   `json:"is_hidden"`
}

// GroupRecord는 호스트로 전달되는 채널 그룹 항목
type GroupRecord struct {
	GroupName string `json:"group_name"`
	IsRadio   bool   `json:"is_radio"`
	Position  uint32 `json:"position"`
}

// GroupMemberRecord는 호스트로 전달되는 그룹 멤버 항목
type GroupMemberRecord struct {
	GroupName       string `json:"group_name"`
	ChannelUniqueID uint32 `json:"channel_unique_id"`
	ChannelNumber   uint32 `json:"channel_number"`
}

func newChannelRecord(e catalog.ChannelEntry, inputFormat string) ChannelRecord {
	return ChannelRecord{
		UniqueID:      uint32(e.ID),
		IsRadio:       e.IsRadio,
		ChannelNumber: uint32(e.Number),
		ChannelName:   boundedCopy(e.Name, NameStringLength),
		StreamURL:     boundedCopy(e.URL, URLStringLength),
		InputFormat:   boundedCopy(inputFormat, InputFormatStringLength),
		IsHidden:      false,
	}
}

func newGroupRecord(g catalog.Group) GroupRecord {
	return GroupRecord{
		GroupName: boundedCopy(g.Name, NameStringLength),
		IsRadio:   g.IsRadio,
		Position:  0,
	}
}

func newGroupMemberRecord(groupName string, m catalog.Member) GroupMemberRecord {
	return GroupMemberRecord{
		GroupName:       boundedCopy(groupName, NameStringLength),
		ChannelUniqueID: uint32(m.ChannelUniqueID),
		ChannelNumber:   uint32(m.ChannelNumber),
	}
}

// boundedCopy는 size 바이트 필드에 들어가도록 문자열을 자릅니다.
// 종료 문자 자리를 남겨 최대 size-1 바이트를 유지하며 UTF-8 문자를 중간에서 자르지 않습니다.
func boundedCopy(s string, size int) string {
	if size <= 0 {
		return ""
	}
	if len(s) < size {
		return s
	}

	cut := size - 1
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
