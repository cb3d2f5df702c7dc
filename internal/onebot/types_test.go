package onebot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_UnmarshalStringAndNumber(t *testing.T) {
	var ev Event
	raw := `{"post_type":"message","message_type":"group","message_id":12345,"user_id":"67890","group_id":424242,"message":"hi"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))

	assert.Equal(t, "12345", ev.MessageID.String())
	assert.Equal(t, "67890", ev.UserID.String())
	assert.Equal(t, "424242", ev.GroupID.String())
}

func TestMessageBody_PlainString(t *testing.T) {
	var m MessageBody
	require.NoError(t, json.Unmarshal([]byte(`"hello world"`), &m))

	assert.True(t, m.IsPlain)
	assert.Equal(t, "hello world", m.Plain)
	assert.Empty(t, m.Segments)
}

func TestMessageBody_SegmentArray(t *testing.T) {
	var m MessageBody
	raw := `[
		{"type":"at","data":{"qq":111}},
		{"type":"text","data":{"text":"hello"}},
		{"type":"image","data":{"url":"https://example.com/a.png"}}
	]`
	require.NoError(t, json.Unmarshal([]byte(raw), &m))

	assert.False(t, m.IsPlain)
	require.Len(t, m.Segments, 3)
	assert.Equal(t, SegmentAt, m.Segments[0].Type)
	assert.Equal(t, "111", m.Segments[0].Data.QQ.String())
	assert.Equal(t, "hello", m.Segments[1].Data.Text)
	assert.Equal(t, "https://example.com/a.png", m.Segments[2].Data.URL)
}

func TestMessageBody_Mentions(t *testing.T) {
	m := MessageBody{Segments: []Segment{
		{Type: SegmentText, Data: SegmentData{Text: "hey"}},
		{Type: SegmentAt, Data: SegmentData{QQ: "999"}},
	}}

	assert.True(t, m.Mentions("999"))
	assert.False(t, m.Mentions("888"))
	assert.False(t, m.Mentions(""))
}

func TestParseEvent_Malformed(t *testing.T) {
	_, err := ParseEvent([]byte("not json"))
	assert.Error(t, err)
}

func TestEvent_IsAck(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"echo":"req-1","status":"ok"}`))
	require.NoError(t, err)
	assert.True(t, ev.IsAck())

	ev, err = ParseEvent([]byte(`{"post_type":"message","message_type":"private","message":"hi"}`))
	require.NoError(t, err)
	assert.False(t, ev.IsAck())
}

func TestNewSendCommand_Group(t *testing.T) {
	cmd := NewSendCommand("424242", "hello", true)

	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"action": "send_group_msg",
		"params": {
			"group_id": 424242,
			"message": [{"type":"text","data":{"text":"hello"}}]
		}
	}`, string(data))
}

func TestNewSendCommand_Private(t *testing.T) {
	cmd := NewSendCommand("67890", "hi there", false)

	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"action": "send_private_msg",
		"params": {
			"user_id": 67890,
			"message": [{"type":"text","data":{"text":"hi there"}}]
		}
	}`, string(data))
}
