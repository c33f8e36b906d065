package chat

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// VoiceExt is the container the chat server records voice messages in.
const VoiceExt = "ogg"

type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	IsBot    bool   `json:"isBot"`
}

// AttachmentRef points at an uploaded file on the chat server. Key is the
// server-side storage key; URL is a direct (possibly external) fallback.
type AttachmentRef struct {
	ChannelID string `json:"-"`

	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

// IsVoice reports whether the attachment is a voice recording.
func (a AttachmentRef) IsVoice() bool {
	ct := strings.ToLower(strings.TrimSpace(a.ContentType))
	if strings.HasPrefix(ct, "audio/") {
		return true
	}
	name := strings.ToLower(strings.TrimSpace(a.Filename))
	return strings.HasSuffix(name, "."+VoiceExt)
}

type Message struct {
	ID          string          `json:"_id"`
	ChannelID   string          `json:"channelId"`
	Content     string          `json:"content"`
	Attachments []AttachmentRef `json:"attachments"`
	RetractedAt *time.Time      `json:"retractedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	// AuthorRaw may be a bare user ID string or a populated user object,
	// depending on what the backend sends for the event.
	AuthorRaw json.RawMessage `json:"authorId"`
}

func (m Message) AuthorID() string { return authorID(m.AuthorRaw) }

// Voice returns the first voice attachment on the message, if any.
func (m Message) Voice() *AttachmentRef {
	for i := range m.Attachments {
		if m.Attachments[i].IsVoice() {
			att := m.Attachments[i]
			if att.ChannelID == "" {
				att.ChannelID = m.ChannelID
			}
			return &att
		}
	}
	return nil
}

func authorID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return ""
		}
		return strings.TrimSpace(id)
	}

	if raw[0] != '{' {
		return ""
	}
	var author struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(raw, &author); err != nil {
		return ""
	}
	return strings.TrimSpace(author.ID)
}

// IsOwnMessage reports whether the message was authored by the bot itself.
func IsOwnMessage(authorRaw json.RawMessage, botUserID string) bool {
	id := authorID(authorRaw)
	if id == "" {
		return false
	}
	return id == botUserID
}
