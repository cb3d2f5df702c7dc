// Package bridge orchestrates the inbound event pipeline: dedup, origin
// filtering, mention gating, extraction, command interception, backend
// dispatch and reply delivery.
package bridge

import (
	"context"
	"slices"
	"strings"

	"github.com/moepig/qqbridge/internal/backend"
	"github.com/moepig/qqbridge/internal/config"
	"github.com/moepig/qqbridge/internal/dedup"
	"github.com/moepig/qqbridge/internal/logging"
	"github.com/moepig/qqbridge/internal/onebot"
	"github.com/moepig/qqbridge/internal/session"
)

// Apology is the fixed user-facing message for backend failures. Raw
// errors never reach the chat surface.
const Apology = "服务暂时不可用，请稍后再试。"

// resetCommands intercept the pipeline before backend dispatch.
var resetCommands = []string{"/reset", "/重置"}

// Sender is the outbound-send primitive shared with the control endpoint.
type Sender interface {
	Send(target, text string, group bool) error
}

// Cleaner reclaims stale attachment-cache entries.
type Cleaner interface {
	CleanupOnce()
}

// Recorder persists a best-effort audit trail of bridge traffic.
type Recorder interface {
	Record(conversation, direction, body string) error
}

// Pipeline processes one inbound event at a time through the gate chain.
type Pipeline struct {
	botQQ         string
	allowedUsers  []string
	allowedGroups []string

	dedup     *dedup.Cache
	extractor *Extractor
	cleaner   Cleaner
	sessions  *session.Directory
	backend   backend.Responder
	sender    Sender
	events    Recorder // optional
	log       *logging.Logger
}

// NewPipeline wires the pipeline from its collaborators. events may be nil.
func NewPipeline(
	cfg config.NapCatConfig,
	extractor *Extractor,
	cleaner Cleaner,
	sessions *session.Directory,
	responder backend.Responder,
	sender Sender,
	events Recorder,
	log *logging.Logger,
) *Pipeline {
	return &Pipeline{
		botQQ:         cfg.BotQQ,
		allowedUsers:  cfg.AllowedUsers,
		allowedGroups: cfg.AllowedGroups,
		dedup:         dedup.New(),
		extractor:     extractor,
		cleaner:       cleaner,
		sessions:      sessions,
		backend:       responder,
		sender:        sender,
		events:        events,
		log:           log.Sub("bridge"),
	}
}

// Handle runs one inbound message event through the pipeline, short-
// circuiting on the first failing gate. It never returns an error; every
// failure is terminal at the step where it occurs.
func (p *Pipeline) Handle(ctx context.Context, ev onebot.Event) {
	if p.dedup.Seen(ev.MessageID.String()) {
		return
	}

	isGroup := ev.IsGroup()
	userID := ev.UserID.String()
	groupID := ev.GroupID.String()

	// Skip the bridge's own messages in groups to prevent echo loops.
	if isGroup && p.botQQ != "" && userID == p.botQQ {
		return
	}

	if !p.allowed(isGroup, userID, groupID) {
		return
	}

	// Groups only respond when the bridge is mentioned.
	if isGroup && !ev.Message.Mentions(p.botQQ) {
		return
	}

	text := p.extractor.Extract(ctx, ev.Message)
	if isGroup {
		text = StripMention(text, p.botQQ)
	}
	if text == "" {
		return
	}

	target := userID
	source := "user:" + userID
	if isGroup {
		target = groupID
		source = "group:" + groupID + ":" + userID
	}
	p.log.Info().
		Str("source", source).
		Str("text", truncate(text, 100)).
		Msg("inbound message")

	convID := ConversationID(ev)
	p.record(convID, "in", text)

	// Cleanup runs after every processed event, off the reply path.
	defer func() { go p.cleaner.CleanupOnce() }()

	if isResetCommand(text) {
		p.reply(target, p.sessions.Reset(convID), isGroup, convID)
		return
	}

	replyText, err := p.backend.Dispatch(ctx, text, convID)
	if err != nil {
		p.log.Error().Err(err).Str("session", convID).Msg("backend dispatch failed")
		p.reply(target, Apology, isGroup, convID)
		return
	}
	if replyText == "" {
		return
	}
	p.reply(target, replyText, isGroup, convID)
}

// allowed applies the allowlist gate. An empty group allow-set disables
// all group handling; an empty user allow-set accepts all direct messages.
func (p *Pipeline) allowed(isGroup bool, userID, groupID string) bool {
	if isGroup {
		return len(p.allowedGroups) > 0 && slices.Contains(p.allowedGroups, groupID)
	}
	return len(p.allowedUsers) == 0 || slices.Contains(p.allowedUsers, userID)
}

// reply delivers text to the originating destination. Delivery failures
// are logged, never propagated.
func (p *Pipeline) reply(target, text string, group bool, convID string) {
	if err := p.sender.Send(target, text, group); err != nil {
		p.log.Error().Err(err).Str("target", target).Msg("reply delivery failed")
		return
	}
	p.record(convID, "out", text)
}

// record appends to the audit log when one is configured; failures are
// logged at debug and otherwise ignored.
func (p *Pipeline) record(conversation, direction, body string) {
	if p.events == nil {
		return
	}
	if err := p.events.Record(conversation, direction, body); err != nil {
		p.log.Debug().Err(err).Msg("audit record failed")
	}
}

func isResetCommand(text string) bool {
	return slices.Contains(resetCommands, strings.ToLower(strings.TrimSpace(text)))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
