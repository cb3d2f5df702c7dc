package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moepig/qqbridge/internal/logging"
	"github.com/moepig/qqbridge/internal/onebot"
)

type stubDownloader struct {
	path string
	err  error
	urls []string
}

func (s *stubDownloader) Download(_ context.Context, url string) (string, error) {
	s.urls = append(s.urls, url)
	return s.path, s.err
}

func newTestExtractor(dl Downloader) *Extractor {
	return NewExtractor(dl, logging.New(io.Discard, "silent"))
}

func imageSegment(url string) onebot.Segment {
	return onebot.Segment{Type: onebot.SegmentImage, Data: onebot.SegmentData{URL: url}}
}

func TestExtract_PlainStringPassthrough(t *testing.T) {
	e := newTestExtractor(&stubDownloader{})

	got := e.Extract(context.Background(), onebot.MessageBody{Plain: "  hello  ", IsPlain: true})

	assert.Equal(t, "  hello  ", got)
}

func TestExtract_TextSegmentsConcatenated(t *testing.T) {
	e := newTestExtractor(&stubDownloader{})

	got := e.Extract(context.Background(), onebot.MessageBody{Segments: []onebot.Segment{
		textSegment("foo"),
		textSegment("bar"),
		{Type: "face", Data: onebot.SegmentData{}},
		textSegment(" baz "),
	}})

	assert.Equal(t, "foobar baz", got)
}

func TestExtract_ImageDownloaded(t *testing.T) {
	dl := &stubDownloader{path: "/tmp/img/123-abcd.png"}
	e := newTestExtractor(dl)

	got := e.Extract(context.Background(), onebot.MessageBody{Segments: []onebot.Segment{
		imageSegment("https://example.com/pic"),
	}})

	assert.Equal(t, fmt.Sprintf(imagePromptLocal, "/tmp/img/123-abcd.png"), got)
	assert.Equal(t, []string{"https://example.com/pic"}, dl.urls)
}

func TestExtract_ImageDownloadFailureFallsBackToURL(t *testing.T) {
	dl := &stubDownloader{err: errors.New("timeout")}
	e := newTestExtractor(dl)

	got := e.Extract(context.Background(), onebot.MessageBody{Segments: []onebot.Segment{
		imageSegment("https://example.com/pic"),
	}})

	assert.Equal(t, fmt.Sprintf(imagePromptURL, "https://example.com/pic"), got)
}

func TestExtract_ImageWithoutURLSkipped(t *testing.T) {
	dl := &stubDownloader{}
	e := newTestExtractor(dl)

	got := e.Extract(context.Background(), onebot.MessageBody{Segments: []onebot.Segment{
		imageSegment(""),
		textSegment("caption"),
	}})

	assert.Equal(t, "caption", got)
	assert.Empty(t, dl.urls)
}

func TestExtract_TextThenImageJoined(t *testing.T) {
	dl := &stubDownloader{path: "/tmp/img/a.jpg"}
	e := newTestExtractor(dl)

	got := e.Extract(context.Background(), onebot.MessageBody{Segments: []onebot.Segment{
		textSegment("look at this"),
		imageSegment("https://example.com/pic"),
	}})

	assert.Equal(t, "look at this\n\n"+fmt.Sprintf(imagePromptLocal, "/tmp/img/a.jpg"), got)
}

func TestStripMention(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		botQQ string
		want  string
	}{
		{"cq markup removed", "[CQ:at,qq=100] hello", "100", "hello"},
		{"plain at removed", "@100 hello", "100", "hello"},
		{"both forms", "[CQ:at,qq=100] @100  hello", "100", "hello"},
		{"other mentions kept", "@200 hello", "100", "@200 hello"},
		{"empty bot id", "[CQ:at,qq=55] hi", "", "hi"},
		{"whitespace trimmed", "  hi  ", "100", "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMention(tt.text, tt.botQQ))
		})
	}
}
