package intake

import "time"

// timeNow is swapped in tests.
var timeNow = time.Now

// Metadata is the fixed record of answers collected over a session. Zero
// values mean "not collected yet" (Age and EmotionalState are validated to
// non-zero ranges on acceptance).
type Metadata struct {
	Consent        bool
	Name           string
	Age            int
	SmokingStatus  string
	Diagnosis      string
	EmotionalState int
	Environment    string

	// AudioURLs maps each fulfilled task to the public URL of its uploaded
	// recording.
	AudioURLs map[TaskID]string
	// CurrentTask is the task most recently dequeued and not yet fulfilled.
	CurrentTask TaskID
}

// Session is the per-user conversation state. It lives in process memory for
// the lifetime of the process; there is no persistence or eviction.
type Session struct {
	ID    string
	Stage Stage
	Meta  Metadata

	// TaskQueue holds the pending audio tasks, consumed front-to-back. It is
	// non-empty only while Stage.Kind is StageAudio.
	TaskQueue []TaskID

	// greeted is set once the welcome message has been sent, so the first
	// inbound message is answered with the greeting instead of being
	// interpreted as a consent answer.
	greeted bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSession(id string) *Session {
	now := timeNow()
	return &Session{
		ID:        id,
		Stage:     Stage{Kind: StageConsent},
		Meta:      Metadata{AudioURLs: map[TaskID]string{}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// reinitialize resets the session to its entry state, keeping the external
// identifier.
func (s *Session) reinitialize() {
	created := s.CreatedAt
	*s = *NewSession(s.ID)
	s.CreatedAt = created
}
