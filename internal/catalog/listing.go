package catalog

import (
	"encoding/json"
	"fmt"
)

// listingDocument는 장비의 channellist.lua JSON 문서
//
//	{ "GroupList": [ { "Title": ..., "ChannelList": [ { "Title", "Request", "ID" } ] } ] }
//
// 최상위가 객체가 아니거나 GroupList가 배열이 아니면 파싱 실패로 처리합니다.
// 그 안쪽의 잘못된 항목은 버리지 않고 빈 값으로 채웁니다.
type listingDocument struct {
	// Kodi 애드온은 배열이 아닌 GroupList를 빈 목록으로 읽지만 여기서는 파싱 실패로 처리
	GroupList []listingGroup `json:"GroupList"`
}

type listingGroup struct {
	Title       text        `json:"Title"`
	ChannelList channelList `json:"ChannelList"`
}

// listingChannel의 ID 필드는 읽지 않습니다 (채널 ID는 로더가 순번으로 부여)
type listingChannel struct {
	Title   text `json:"Title"`
	Request text `json:"Request"`
}

// text는 문자열이 아닌 값을 빈 문자열로 받아들이는 JSON 문자열
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = ""
		return nil
	}
	*t = text(s)
	return nil
}

// channelList는 배열이 아닌 값을 빈 목록으로 받아들입니다
type channelList []listingChannel

func (l *channelList) UnmarshalJSON(data []byte) error {
	var items []listingChannel
	if err := json.Unmarshal(data, &items); err != nil {
		*l = nil
		return nil
	}
	*l = items
	return nil
}

func (g *listingGroup) UnmarshalJSON(data []byte) error {
	type plain listingGroup
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*g = listingGroup{}
		return nil
	}
	*g = listingGroup(p)
	return nil
}

func (c *listingChannel) UnmarshalJSON(data []byte) error {
	type plain listingChannel
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*c = listingChannel{}
		return nil
	}
	*c = listingChannel(p)
	return nil
}

// parseListing은 목록 문서를 파싱해 새 스냅샷을 만듭니다
func parseListing(content []byte, serverAddress string) (*snapshot, error) {
	var doc listingDocument
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	snap := &snapshot{}
	for _, lg := range doc.GroupList {
		group := Group{
			Name:    string(lg.Title),
			IsRadio: IsRadioName(string(lg.Title)),
			Members: []int{},
		}

		for _, lc := range lg.ChannelList {
			index := len(snap.channels)
			snap.channels = append(snap.channels, Channel{
				ID:      FirstChannelID + index,
				Name:    string(lc.Title),
				URL:     StreamURL(serverAddress, string(lc.Request)),
				IsRadio: group.IsRadio,
			})
			group.Members = append(group.Members, index)
		}

		snap.groups = append(snap.groups, group)
	}

	return snap, nil
}
