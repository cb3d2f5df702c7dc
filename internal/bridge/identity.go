package bridge

import "github.com/moepig/qqbridge/internal/onebot"

// ConversationID derives the stable conversation identity used to scope
// backend session state: one identity per group, one per direct-message
// sender.
func ConversationID(ev onebot.Event) string {
	if ev.IsGroup() {
		return "group_" + ev.GroupID.String()
	}
	return "user_" + ev.UserID.String()
}
