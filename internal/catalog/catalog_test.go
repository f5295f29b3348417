package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleListing = `{"GroupList":[{"Title":"TV","ChannelList":[{"Title":"Ch1","Request":"ch1"}]},{"Title":"RadioFM","ChannelList":[{"Title":"R1","Request":"r1"}]}]}`

// fakeOpener는 Opener 테스트 더블입니다
type fakeOpener struct {
	body    string
	openErr error
	readErr error
	wrap    func(io.Reader) io.Reader

	url    string
	opened int
	closed int
}

func (f *fakeOpener) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	f.url = url
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opened++

	var r io.Reader = strings.NewReader(f.body)
	if f.readErr != nil {
		r = io.MultiReader(r, iotest.ErrReader(f.readErr))
	}
	if f.wrap != nil {
		r = f.wrap(r)
	}
	return &trackedBody{Reader: r, onClose: func() { f.closed++ }}, nil
}

// stallingReader는 내부 리더가 끝나면 (0, nil)만 돌려줍니다
type stallingReader struct {
	r io.Reader
}

func (s *stallingReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

func stalling(r io.Reader) io.Reader {
	return &stallingReader{r: r}
}

type trackedBody struct {
	io.Reader
	onClose func()
}

func (b *trackedBody) Close() error {
	b.onClose()
	return nil
}

func loadCatalog(t *testing.T, body string) *Catalog {
	t.Helper()
	c := New(Config{ServerAddress: "10.0.0.1"})
	require.NoError(t, c.Load(context.Background(), &fakeOpener{body: body}))
	return c
}

func TestLoad_Example(t *testing.T) {
	opener := &fakeOpener{body: sampleListing}
	c := New(Config{ServerAddress: "10.0.0.1"})

	require.NoError(t, c.Load(context.Background(), opener))

	assert.Equal(t, "http://10.0.0.1/channellist.lua?select=json", opener.url)
	assert.Equal(t, StateLoaded, c.State())
	assert.Equal(t, 2, c.ChannelCount())
	assert.Equal(t, 2, c.GroupCount())

	tv := slices.Collect(c.Channels(false))
	require.Len(t, tv, 1)
	assert.Equal(t, ChannelEntry{
		Channel: Channel{ID: 1000, Name: "Ch1", URL: "rtsp://10.0.0.1/ch1", IsRadio: false},
		Number:  0,
	}, tv[0])

	radio := slices.Collect(c.Channels(true))
	require.Len(t, radio, 1)
	assert.Equal(t, ChannelEntry{
		Channel: Channel{ID: 1001, Name: "R1", URL: "rtsp://10.0.0.1/r1", IsRadio: true},
		Number:  1,
	}, radio[0])

	radioGroups := slices.Collect(c.Groups(true))
	require.Len(t, radioGroups, 1)
	assert.Equal(t, "RadioFM", radioGroups[0].Name)
	assert.True(t, radioGroups[0].IsRadio)
	assert.Equal(t, []int{1}, radioGroups[0].Members)
}

func TestLoad_ReleasesStreamOnEveryPath(t *testing.T) {
	tests := []struct {
		name    string
		opener  *fakeOpener
		wantErr error
	}{
		{"Success", &fakeOpener{body: sampleListing}, nil},
		{"EmptyBody", &fakeOpener{body: ""}, ErrParse},
		{"ParseFailure", &fakeOpener{body: `{"GroupList":[`}, ErrParse},
		{"ReadFailure", &fakeOpener{body: `{"Group`, readErr: errors.New("connection reset")}, ErrFetch},
		{"ZeroByteReadAfterBody", &fakeOpener{body: sampleListing, wrap: stalling}, nil},
		{"ZeroByteReadOnly", &fakeOpener{body: "", wrap: stalling}, ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Config{ServerAddress: "octonet"})
			err := c.Load(context.Background(), tt.opener)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, 1, tt.opener.opened)
			assert.Equal(t, 1, tt.opener.closed)
		})
	}
}

func TestLoad_FetchFailure(t *testing.T) {
	c := New(Config{ServerAddress: "octonet"})
	err := c.Load(context.Background(), &fakeOpener{openErr: errors.New("no route to host")})

	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, StateUnloaded, c.State())
	assert.Equal(t, 0, c.ChannelCount())
	assert.Equal(t, 0, c.GroupCount())
}

func TestLoad_NilOpener(t *testing.T) {
	c := New(Config{ServerAddress: "octonet"})

	err := c.Load(context.Background(), nil)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, StateUnloaded, c.State())
	assert.Equal(t, 0, c.ChannelCount())
}

func TestLoad_MalformedLeavesCatalogEmpty(t *testing.T) {
	for _, body := range []string{
		sampleListing[:len(sampleListing)-10],
		`not json`,
		`[1,2,3]`,
		`{"GroupList":"TV"}`,
	} {
		c := New(Config{ServerAddress: "octonet"})
		err := c.Load(context.Background(), &fakeOpener{body: body})

		assert.ErrorIs(t, err, ErrParse, body)
		assert.Equal(t, StateUnloaded, c.State())
		assert.Equal(t, 0, c.ChannelCount())
		assert.Equal(t, 0, c.GroupCount())
		assert.Empty(t, slices.Collect(c.Channels(false)))
		assert.Empty(t, slices.Collect(c.Groups(true)))
	}
}

func TestLoad_OnlyOnce(t *testing.T) {
	c := New(Config{ServerAddress: "octonet"})
	require.Error(t, c.Load(context.Background(), &fakeOpener{openErr: errors.New("down")}))

	// 실패한 인스턴스는 다시 로드하지 않습니다
	err := c.Load(context.Background(), &fakeOpener{body: sampleListing})
	assert.ErrorIs(t, err, ErrAlreadyLoaded)
	assert.Equal(t, StateUnloaded, c.State())
}

func TestLoad_ChunkedReads(t *testing.T) {
	readers := map[string]func(io.Reader) io.Reader{
		"OneByte":  iotest.OneByteReader,
		"HalfRead": iotest.HalfReader,
		"DataErr":  iotest.DataErrReader,
	}

	for name, wrap := range readers {
		t.Run(name, func(t *testing.T) {
			c := New(Config{ServerAddress: "10.0.0.1", ReadBufferSize: 7})
			require.NoError(t, c.Load(context.Background(), &fakeOpener{body: sampleListing, wrap: wrap}))
			assert.Equal(t, 2, c.ChannelCount())
		})
	}
}

func TestLoad_LargeDocumentSpansManyBuffers(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`{"GroupList":[`)
	for g := 0; g < 20; g++ {
		if g > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"Title":"Group %d","ChannelList":[`, g)
		for ch := 0; ch < 25; ch++ {
			if ch > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, `{"Title":"Channel %d-%d","Request":"?src=1&freq=%d","ID":"1:2:%d"}`, g, ch, g*100+ch, ch)
		}
		sb.WriteString("]}")
	}
	sb.WriteString("]}")
	require.Greater(t, sb.Len(), 1024*10)

	c := loadCatalog(t, sb.String())

	assert.Equal(t, 500, c.ChannelCount())
	assert.Equal(t, 20, c.GroupCount())

	// ID는 문서 순회 순서대로 1000부터 증가
	ids := []int{}
	for e := range c.Channels(false) {
		ids = append(ids, e.ID)
	}
	require.Len(t, ids, 500)
	for i, id := range ids {
		assert.Equal(t, FirstChannelID+i, id)
	}
}

func TestLoad_TolerantEntries(t *testing.T) {
	c := loadCatalog(t, `{"GroupList":[
		{"Title":"TV","ChannelList":[{"Request":"a"},{"Title":42,"Request":null},{},7]},
		{"ChannelList":[{"Title":"Orphan","Request":"o"}]},
		{"Title":"Empty"},
		{"Title":"Broken","ChannelList":"oops"},
		"not an object"
	]}`)

	require.Equal(t, 5, c.ChannelCount())
	assert.Equal(t, 5, c.GroupCount())

	entries := slices.Collect(c.Channels(false))
	require.Len(t, entries, 5)
	assert.Equal(t, "", entries[0].Name)
	assert.Equal(t, "rtsp://10.0.0.1/a", entries[0].URL)
	assert.Equal(t, "", entries[1].Name)
	assert.Equal(t, "rtsp://10.0.0.1/", entries[1].URL)
	assert.Equal(t, "rtsp://10.0.0.1/", entries[3].URL)
	assert.Equal(t, "Orphan", entries[4].Name)

	groups := slices.Collect(c.Groups(false))
	require.Len(t, groups, 5)
	assert.Equal(t, []int{0, 1, 2, 3}, groups[0].Members)
	assert.Equal(t, "", groups[1].Name)
	assert.Equal(t, []int{4}, groups[1].Members)
	assert.Equal(t, []int{}, groups[2].Members)
	assert.Equal(t, []int{}, groups[3].Members)

	data, err := json.Marshal(groups[2])
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Empty","is_radio":false,"members":[]}`, string(data))
}

func TestLoad_MissingGroupList(t *testing.T) {
	c := loadCatalog(t, `{"Version":"1.0"}`)
	assert.Equal(t, StateLoaded, c.State())
	assert.Equal(t, 0, c.ChannelCount())
	assert.Equal(t, 0, c.GroupCount())
}

func TestIsRadioName(t *testing.T) {
	assert.True(t, IsRadioName("Radio"))
	assert.True(t, IsRadioName("RadioXYZ"))
	assert.True(t, IsRadioName("Radio Bremen"))
	assert.False(t, IsRadioName("radio"))
	assert.False(t, IsRadioName("RADIO"))
	assert.False(t, IsRadioName("Radi"))
	assert.False(t, IsRadioName(" Radio"))
	assert.False(t, IsRadioName("TV"))
	assert.False(t, IsRadioName(""))
}

func TestRadioInheritedFromGroup(t *testing.T) {
	c := loadCatalog(t, `{"GroupList":[
		{"Title":"Radiowelle","ChannelList":[{"Title":"a"},{"Title":"b"}]},
		{"Title":"TV Radio","ChannelList":[{"Title":"c"}]},
		{"Title":"Radio","ChannelList":[{"Title":"d"}]}
	]}`)

	for _, radio := range []bool{true, false} {
		for g := range c.Groups(radio) {
			assert.Equal(t, IsRadioName(g.Name), g.IsRadio)
			for _, index := range g.Members {
				ch, ok := c.Channel(FirstChannelID + index)
				require.True(t, ok)
				assert.Equal(t, g.IsRadio, ch.IsRadio, g.Name)
			}
		}
	}
}

func TestChannels_Partition(t *testing.T) {
	c := loadCatalog(t, `{"GroupList":[
		{"Title":"TV","ChannelList":[{"Title":"a"},{"Title":"b"}]},
		{"Title":"RadioA","ChannelList":[{"Title":"c"}]},
		{"Title":"HD","ChannelList":[{"Title":"d"}]},
		{"Title":"RadioB","ChannelList":[{"Title":"e"},{"Title":"f"}]}
	]}`)

	seen := map[int]int{}
	for _, radio := range []bool{true, false} {
		for e := range c.Channels(radio) {
			seen[e.ID]++
			assert.Equal(t, radio, e.IsRadio)
			assert.Equal(t, e.ID-FirstChannelID, e.Number)
		}
	}

	require.Len(t, seen, c.ChannelCount())
	for id, n := range seen {
		assert.Equal(t, 1, n, "channel %d", id)
	}

	// 채널 번호는 필터링된 위치가 아니라 전체 목록의 위치
	var numbers []int
	for e := range c.Channels(true) {
		numbers = append(numbers, e.Number)
	}
	assert.Equal(t, []int{2, 4, 5}, numbers)
}

func TestChannels_EarlyStop(t *testing.T) {
	c := loadCatalog(t, `{"GroupList":[{"Title":"TV","ChannelList":[{"Title":"a"},{"Title":"b"},{"Title":"c"}]}]}`)

	count := 0
	for range c.Channels(false) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestGroupMembers(t *testing.T) {
	body := `{"GroupList":[
		{"Title":"TV","ChannelList":[{"Title":"a"},{"Title":"b"}]},
		{"Title":"RadioFM","ChannelList":[{"Title":"c"}]},
		{"Title":"Mixed","ChannelList":[{"Title":"d"},{"Title":"e"},{"Title":"f"}]},
		{"Title":"TV","ChannelList":[{"Title":"dup"}]}
	]}`

	t.Run("Position", func(t *testing.T) {
		c := loadCatalog(t, body)

		seq, err := c.GroupMembers("Mixed")
		require.NoError(t, err)
		members := slices.Collect(seq)
		assert.Equal(t, []Member{
			{GroupName: "Mixed", ChannelUniqueID: 1003, ChannelNumber: 3},
			{GroupName: "Mixed", ChannelUniqueID: 1004, ChannelNumber: 4},
			{GroupName: "Mixed", ChannelUniqueID: 1005, ChannelNumber: 5},
		}, members)
	})

	t.Run("UniqueID", func(t *testing.T) {
		c := New(Config{ServerAddress: "10.0.0.1", MemberNumbering: NumberByUniqueID})
		require.NoError(t, c.Load(context.Background(), &fakeOpener{body: body}))

		seq, err := c.GroupMembers("RadioFM")
		require.NoError(t, err)
		assert.Equal(t, []Member{
			{GroupName: "RadioFM", ChannelUniqueID: 1002, ChannelNumber: 1002},
		}, slices.Collect(seq))
	})

	t.Run("FirstMatchWins", func(t *testing.T) {
		c := loadCatalog(t, body)

		seq, err := c.GroupMembers("TV")
		require.NoError(t, err)
		members := slices.Collect(seq)
		require.Len(t, members, 2)
		assert.Equal(t, 1000, members[0].ChannelUniqueID)
		assert.Equal(t, 1001, members[1].ChannelUniqueID)
	})

	t.Run("Unknown", func(t *testing.T) {
		c := loadCatalog(t, body)

		for _, name := range []string{"tv", "Radio", "", "Mixed "} {
			seq, err := c.GroupMembers(name)
			assert.ErrorIs(t, err, ErrUnknownGroup)
			assert.Nil(t, seq)
		}
	})

	t.Run("Unloaded", func(t *testing.T) {
		c := New(Config{ServerAddress: "10.0.0.1"})
		_, err := c.GroupMembers("TV")
		assert.ErrorIs(t, err, ErrUnknownGroup)
	})
}

func TestGroups_MembersAreCopies(t *testing.T) {
	c := loadCatalog(t, sampleListing)

	for g := range c.Groups(false) {
		g.Members[0] = 99
	}

	seq, err := c.GroupMembers("TV")
	require.NoError(t, err)
	members := slices.Collect(seq)
	require.Len(t, members, 1)
	assert.Equal(t, 1000, members[0].ChannelUniqueID)
}

func TestChannelLookup(t *testing.T) {
	c := loadCatalog(t, sampleListing)

	e, ok := c.Channel(1001)
	require.True(t, ok)
	assert.Equal(t, "R1", e.Name)
	assert.Equal(t, 1, e.Number)

	_, ok = c.Channel(999)
	assert.False(t, ok)
	_, ok = c.Channel(1002)
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	c := loadCatalog(t, sampleListing)
	require.Equal(t, 2, c.ChannelCount())

	c.Reset()

	assert.Equal(t, StateUnloaded, c.State())
	assert.Equal(t, 0, c.ChannelCount())
	assert.Equal(t, 0, c.GroupCount())
	assert.Equal(t, "unloaded", c.State().String())
}
