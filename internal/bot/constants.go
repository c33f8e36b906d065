package bot

import "time"

const (
	logPrefix = "[curumim]"

	eventMessageCreate         = "message_create"
	upstreamEventMessageCreate = "message_create"

	dmRefreshInterval = 5 * time.Minute

	// maxVoiceBytes bounds a single voice download; chat-server voice
	// messages are well under this.
	maxVoiceBytes = 20 << 20

	logContentPreviewLen = 80

	replyDelayBase    = 300 * time.Millisecond
	replyDelayPerRune = 12 * time.Millisecond
	replyDelayMax     = 2 * time.Second
)
