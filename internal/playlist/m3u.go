package playlist

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/yourusername/octonet/internal/catalog"
)

// Item은 플레이리스트 항목 하나
type Item struct {
	ID     int
	Number int
	Name   string
	URL    string
	Group  string
	Radio  bool
}

type Encoder struct {
	items []Item
}

func NewEncoder() *Encoder {
	return &Encoder{items: []Item{}}
}

func (e *Encoder) Add(item Item) {
	e.items = append(e.items, item)
}

// Len은 항목 수를 반환합니다
func (e *Encoder) Len() int {
	return len(e.items)
}

func (e *Encoder) Encode(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "#EXTM3U\n"); err != nil {
		return err
	}

	for _, item := range e.items {
		if err := item.encode(w); err != nil {
			return err
		}
	}

	return nil
}

func (it Item) encode(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "#EXTINF:-1 tvg-id=\"%d\" tvg-chno=\"%d\" group-title=\"%s\"",
		it.ID, it.Number, attr(it.Group)); err != nil {
		return err
	}

	if it.Radio {
		if _, err := fmt.Fprintf(w, " radio=\"true\""); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, ",%s\n%s\n", line(it.Name), line(it.URL)); err != nil {
		return err
	}

	return nil
}

// FromCatalog는 카탈로그의 모든 채널을 채널 목록 순서대로 담은 인코더를 만듭니다
func FromCatalog(c *catalog.Catalog) *Encoder {
	groupOf := map[int]string{}
	for _, radio := range []bool{false, true} {
		for g := range c.Groups(radio) {
			for _, index := range g.Members {
				groupOf[index] = g.Name
			}
		}
	}

	var entries []catalog.ChannelEntry
	for _, radio := range []bool{false, true} {
		for e := range c.Channels(radio) {
			entries = append(entries, e)
		}
	}
	slices.SortFunc(entries, func(a, b catalog.ChannelEntry) int {
		return cmp.Compare(a.Number, b.Number)
	})

	enc := NewEncoder()
	for _, e := range entries {
		enc.Add(Item{
			ID:     e.ID,
			Number: e.Number,
			Name:   e.Name,
			URL:    e.URL,
			Group:  groupOf[e.Number],
			Radio:  e.IsRadio,
		})
	}
	return enc
}

// attr는 속성 값 안의 따옴표와 줄바꿈을 제거합니다
func attr(s string) string {
	return strings.ReplaceAll(line(s), `"`, "'")
}

func line(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
