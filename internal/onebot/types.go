// Package onebot defines the OneBot v11 wire types exchanged with a
// NapCat gateway: inbound event frames and outbound action commands.
package onebot

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Message type discriminators carried in the message_type field.
const (
	MessageTypeGroup   = "group"
	MessageTypePrivate = "private"
)

// Segment type discriminators.
const (
	SegmentText  = "text"
	SegmentImage = "image"
	SegmentAt    = "at"
)

// ID is a string identifier that tolerates JSON numbers. OneBot
// implementations are inconsistent about whether user_id, group_id and
// message_id arrive as numbers or strings.
type ID string

// UnmarshalJSON accepts both string and numeric JSON values.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// SegmentData carries the payload of a message segment. Only the fields
// the bridge consumes are modeled.
type SegmentData struct {
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
	File string `json:"file,omitempty"`
	QQ   ID     `json:"qq,omitempty"`
}

// Segment is one typed unit of a structured message.
type Segment struct {
	Type string      `json:"type"`
	Data SegmentData `json:"data"`
}

// MessageBody is the message field of an inbound event, which is either a
// plain string or an ordered array of segments.
type MessageBody struct {
	Plain    string
	Segments []Segment
	IsPlain  bool
}

// UnmarshalJSON accepts either a JSON string or a segment array.
func (m *MessageBody) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = MessageBody{}
		return nil
	}
	if data[0] == '"' {
		if err := json.Unmarshal(data, &m.Plain); err != nil {
			return err
		}
		m.IsPlain = true
		m.Segments = nil
		return nil
	}
	m.IsPlain = false
	m.Plain = ""
	return json.Unmarshal(data, &m.Segments)
}

// MarshalJSON round-trips the original shape.
func (m MessageBody) MarshalJSON() ([]byte, error) {
	if m.IsPlain {
		return json.Marshal(m.Plain)
	}
	return json.Marshal(m.Segments)
}

// Mentions reports whether any at-segment targets the given identity.
func (m MessageBody) Mentions(target string) bool {
	if target == "" {
		return false
	}
	for _, seg := range m.Segments {
		if seg.Type == SegmentAt && seg.Data.QQ.String() == target {
			return true
		}
	}
	return false
}

// Event is an inbound frame from the gateway.
type Event struct {
	PostType    string          `json:"post_type"`
	MessageType string          `json:"message_type"`
	MessageID   ID              `json:"message_id"`
	UserID      ID              `json:"user_id"`
	GroupID     ID              `json:"group_id"`
	Message     MessageBody     `json:"message"`
	Echo        json.RawMessage `json:"echo,omitempty"`
}

// IsGroup reports whether the event originated in a group chat.
func (e Event) IsGroup() bool { return e.MessageType == MessageTypeGroup }

// IsAck reports whether the frame is an API acknowledgment (echo present)
// rather than a pushed event.
func (e Event) IsAck() bool {
	return len(e.Echo) > 0 && !bytes.Equal(e.Echo, []byte("null"))
}

// ParseEvent decodes a raw frame. Malformed frames return an error and
// are expected to be discarded by the caller.
func ParseEvent(raw []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// SendCommand is an outbound action frame.
type SendCommand struct {
	Action string     `json:"action"`
	Params SendParams `json:"params"`
}

// SendParams addresses an outbound text message.
type SendParams struct {
	GroupID int64     `json:"group_id,omitempty"`
	UserID  int64     `json:"user_id,omitempty"`
	Message []Segment `json:"message"`
}

// NewSendCommand builds a directed text send for a user or group target.
// Targets that do not parse as numbers yield a zero id, which the gateway
// rejects; the caller validates targets before building commands.
func NewSendCommand(target, text string, group bool) SendCommand {
	id, _ := strconv.ParseInt(target, 10, 64)
	msg := []Segment{{Type: SegmentText, Data: SegmentData{Text: text}}}
	if group {
		return SendCommand{
			Action: "send_group_msg",
			Params: SendParams{GroupID: id, Message: msg},
		}
	}
	return SendCommand{
		Action: "send_private_msg",
		Params: SendParams{UserID: id, Message: msg},
	}
}
