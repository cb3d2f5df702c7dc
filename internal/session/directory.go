// Package session locates and invalidates backend conversation state.
//
// The backend owns session creation and transcript contents; the bridge
// only looks records up by conversation key and removes them on reset,
// archiving the backing transcript rather than deleting it.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moepig/qqbridge/internal/logging"
)

// User-facing reset results. The bridge serves Chinese-speaking chats, so
// these match the deployment language.
const (
	MsgReset      = "上下文已重置，开始新的对话。"
	MsgNoSession  = "当前没有活跃的对话上下文。"
	MsgResetError = "重置失败，请稍后重试。"
)

const (
	indexFile = "sessions.json"
	keyPrefix = "agent:main:openresponses-user:"
)

// record is the slice of a session index entry the bridge understands.
type record struct {
	SessionID string `json:"sessionId"`
}

// Directory resolves conversation identities to backend session records
// stored under a root directory.
type Directory struct {
	dir string
	log *logging.Logger
	now func() time.Time
}

// New creates a directory rooted at dir.
func New(dir string, log *logging.Logger) *Directory {
	return &Directory{
		dir: dir,
		log: log.Sub("session"),
		now: time.Now,
	}
}

// Key computes the index key for a conversation identity.
func Key(conversationID string) string {
	return keyPrefix + strings.ToLower(conversationID)
}

// Reset invalidates the session for the given conversation identity and
// returns a user-facing result message. Index failures are converted to a
// generic failure message, never returned as errors.
func (d *Directory) Reset(conversationID string) string {
	key := Key(conversationID)

	index, err := d.loadIndex()
	if err != nil {
		d.log.Error().Err(err).Str("key", key).Msg("reset failed")
		return MsgResetError
	}

	raw, ok := index[key]
	if !ok {
		d.log.Info().Str("key", key).Msg("no session to reset")
		return MsgNoSession
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		d.log.Error().Err(err).Str("key", key).Msg("reset failed")
		return MsgResetError
	}
	if rec.SessionID == "" {
		d.log.Info().Str("key", key).Msg("no session to reset")
		return MsgNoSession
	}

	d.archiveTranscript(rec.SessionID)

	delete(index, key)
	if err := d.saveIndex(index); err != nil {
		d.log.Error().Err(err).Str("key", key).Msg("reset failed")
		return MsgResetError
	}

	d.log.Info().Str("key", key).Msg("session cleared")
	return MsgReset
}

// archiveTranscript renames the transcript with a timestamp suffix so the
// audit trail survives the reset. Rename failure does not abort the reset.
func (d *Directory) archiveTranscript(sessionID string) {
	transcript := filepath.Join(d.dir, sessionID+".jsonl")
	archived := fmt.Sprintf("%s.reset.%d", transcript, d.now().UnixMilli())
	if err := os.Rename(transcript, archived); err != nil {
		d.log.Warn().Err(err).Str("sessionId", sessionID).Msg("transcript archive failed")
	}
}

// loadIndex reads the session index. A missing index means no sessions
// exist yet. Unknown record fields are preserved verbatim so a rewrite
// never loses backend-owned state.
func (d *Directory) loadIndex() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(filepath.Join(d.dir, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	var index map[string]json.RawMessage
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, err
	}
	return index, nil
}

func (d *Directory) saveIndex(index map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.dir, indexFile), data, 0o600)
}
