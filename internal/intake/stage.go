// Package intake implements the conversational intake flow: a per-session
// state machine that collects consent, demographic answers and a fixed
// sequence of voice recordings.
package intake

// TaskID identifies one audio-collection task.
type TaskID string

const (
	TaskVowelA TaskID = "vowel_a"
	TaskVowelI TaskID = "vowel_i"
	TaskVowelO TaskID = "vowel_o"
	TaskCount  TaskID = "count_1_to_10"
)

// DefaultTasks returns the fixed ordered task list, consumed front-to-back.
func DefaultTasks() []TaskID {
	return []TaskID{TaskVowelA, TaskVowelI, TaskVowelO, TaskCount}
}

type StageKind int

const (
	StageConsent StageKind = iota
	StageName
	StageAge
	StageSmoking
	StageDiagnosis
	StageEmotion
	StageEnvironment
	StageAudio
	StageFinished
)

func (k StageKind) String() string {
	switch k {
	case StageConsent:
		return "awaiting_consent"
	case StageName:
		return "awaiting_name"
	case StageAge:
		return "awaiting_age"
	case StageSmoking:
		return "awaiting_smoking_status"
	case StageDiagnosis:
		return "awaiting_diagnosis"
	case StageEmotion:
		return "awaiting_emotional_state"
	case StageEnvironment:
		return "awaiting_environment"
	case StageAudio:
		return "awaiting_audio_task"
	case StageFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Stage is the current node in the conversation state machine. Task is set
// only while Kind is StageAudio and names the recording being waited for.
type Stage struct {
	Kind StageKind
	Task TaskID
}

func (s Stage) String() string {
	if s.Kind == StageAudio && s.Task != "" {
		return s.Kind.String() + "(" + string(s.Task) + ")"
	}
	return s.Kind.String()
}

// AwaitingAudio builds the audio-wait stage for task.
func AwaitingAudio(task TaskID) Stage {
	return Stage{Kind: StageAudio, Task: task}
}
