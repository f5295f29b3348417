package catalog

import "strings"

const (
	// FirstChannelID는 로더가 부여하는 첫 번째 채널 ID
	// 장비가 주는 ID는 64비트라 호스트 필드에 담을 수 없으므로 순번을 사용합니다
	FirstChannelID = 1000

	radioPrefix = "Radio"
)

// Channel은 튜닝 가능한 단일 TV/라디오 스트림입니다
type Channel struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	IsRadio bool   `json:"is_radio"`
}

// Group은 같은 종류의 채널을 묶는 이름 있는 카테고리입니다
// Members는 채널 ID가 아니라 채널 목록의 인덱스입니다
type Group struct {
	Name    string `json:"name"`
	IsRadio bool   `json:"is_radio"`
	Members []int  `json:"members"`
}

// ChannelEntry는 채널과 전체 채널 목록에서의 위치(채널 번호)
type ChannelEntry struct {
	Channel
	Number int `json:"number"`
}

// Member는 그룹 멤버십 레코드
type Member struct {
	GroupName       string `json:"group_name"`
	ChannelUniqueID int    `json:"channel_unique_id"`
	ChannelNumber   int    `json:"channel_number"`
}

// MemberNumbering은 그룹 멤버의 채널 번호를 정하는 규칙
type MemberNumbering int

const (
	// NumberByPosition은 채널 목록에서의 위치를 채널 번호로 사용합니다 (Channels와 동일)
	NumberByPosition MemberNumbering = iota
	// NumberByUniqueID는 채널 ID를 채널 번호로도 사용합니다 (기존 호스트 호환)
	NumberByUniqueID
)

// IsRadioName은 그룹 이름이 정확히 "Radio"로 시작하는지 검사합니다 (대소문자 구분)
func IsRadioName(name string) bool {
	return strings.HasPrefix(name, radioPrefix)
}

// StreamURL은 장비 주소와 요청 경로로 RTSP 스트림 URL을 만듭니다
func StreamURL(serverAddress, request string) string {
	return "rtsp://" + serverAddress + "/" + request
}
