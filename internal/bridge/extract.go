package bridge

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/moepig/qqbridge/internal/logging"
	"github.com/moepig/qqbridge/internal/onebot"
)

// Image prompt blocks appended to the extracted text. The local-path
// variant instructs the backend to analyze the downloaded file; the URL
// variant is the fallback when the download fails.
const (
	imagePromptLocal = "[用户发送了一张图片]\n本地路径: %s\n请使用image工具分析这张图片并回复用户。"
	imagePromptURL   = "[用户发送了一张图片]\n图片URL: %s"
)

// cqAtPattern matches CQ-style at-mention markup embedded in plain text.
var cqAtPattern = regexp.MustCompile(`\[CQ:at,qq=\d+\]`)

// Downloader fetches a remote attachment and returns its local path.
type Downloader interface {
	Download(ctx context.Context, url string) (string, error)
}

// Extractor normalizes heterogeneous message payloads into plain text.
type Extractor struct {
	media Downloader
	log   *logging.Logger
}

// NewExtractor creates an extractor using the given attachment downloader.
func NewExtractor(media Downloader, log *logging.Logger) *Extractor {
	return &Extractor{
		media: media,
		log:   log.Sub("extract"),
	}
}

// Extract converts a message body into a single prompt string. Text
// segments are concatenated in order; image segments contribute an
// instructional block after a blank-line separator; everything else is
// dropped.
func (e *Extractor) Extract(ctx context.Context, msg onebot.MessageBody) string {
	if msg.IsPlain {
		return msg.Plain
	}

	var textParts []string
	var imagePrompts []string

	for _, seg := range msg.Segments {
		switch seg.Type {
		case onebot.SegmentText:
			textParts = append(textParts, seg.Data.Text)
		case onebot.SegmentImage:
			url := seg.Data.URL
			if url == "" {
				continue
			}
			path, err := e.media.Download(ctx, url)
			if err != nil {
				e.log.Error().Err(err).Msg("attachment download failed")
				imagePrompts = append(imagePrompts, fmt.Sprintf(imagePromptURL, url))
				continue
			}
			imagePrompts = append(imagePrompts, fmt.Sprintf(imagePromptLocal, path))
		}
	}

	result := strings.TrimSpace(strings.Join(textParts, ""))
	if len(imagePrompts) > 0 {
		joined := strings.Join(imagePrompts, "\n\n")
		if result != "" {
			result = result + "\n\n" + joined
		} else {
			result = joined
		}
	}
	return result
}

// StripMention removes at-mention markup for the given bot identity plus
// plain "@<identity>" occurrences, then trims whitespace. Applied to
// group-origin text only.
func StripMention(text, botQQ string) string {
	text = cqAtPattern.ReplaceAllString(text, "")
	if botQQ != "" {
		plain := regexp.MustCompile(`@` + regexp.QuoteMeta(botQQ) + `\s*`)
		text = plain.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
