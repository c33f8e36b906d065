package intake

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/renan-b-eth/curumim-backend-telegram/internal/chat"
)

// Input is one inbound message as seen by the engine: optional text and an
// optional voice attachment reference.
type Input struct {
	Text  string
	Voice *chat.AttachmentRef
}

// UploadRequest asks the driver to fetch the referenced recording and persist
// it, then feed the outcome back through CompleteUpload or FailUpload.
type UploadRequest struct {
	Task  TaskID
	Voice chat.AttachmentRef
}

// Result is the outcome of one engine step: zero or more replies, in order,
// and optionally a side effect for the driver to perform.
type Result struct {
	Replies []string
	Upload  *UploadRequest
}

// Engine is the deterministic conversation state machine. It mutates sessions
// and produces replies; all I/O (audio fetch, upload, message delivery) is
// the driver's job.
type Engine struct {
	// Tasks is the ordered audio-task list queued after the last question.
	Tasks []TaskID
	// ResumeOnReset keeps collected answers on reset for in-progress
	// sessions instead of discarding them.
	ResumeOnReset bool
}

func NewEngine() *Engine {
	return &Engine{Tasks: DefaultTasks()}
}

var resetKeywords = map[string]struct{}{
	"restart":   {},
	"reiniciar": {},
}

func isResetKeyword(text string) bool {
	_, ok := resetKeywords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// Advance processes one inbound message against the session's current stage.
// Invalid input never changes the stage or the metadata.
func (e *Engine) Advance(s *Session, in Input) Result {
	s.touch()

	if !s.greeted {
		s.greeted = true
		return reply(replyGreeting, replyConsent)
	}

	text := strings.TrimSpace(in.Text)

	switch s.Stage.Kind {
	case StageConsent:
		yes, ok := parseYesNo(text)
		if !ok {
			return reply(replyConsentRetry)
		}
		s.Meta.Consent = yes
		if !yes {
			s.Stage = Stage{Kind: StageFinished}
			return reply(replyConsentDeclined)
		}
		s.Stage = Stage{Kind: StageName}
		return reply(replyNamePrompt)

	case StageName:
		if text == "" {
			return reply(replyNameRetry)
		}
		s.Meta.Name = text
		s.Stage = Stage{Kind: StageAge}
		return reply(fmt.Sprintf(replyAgePrompt, s.Meta.Name))

	case StageAge:
		age, err := strconv.Atoi(text)
		if err != nil || age < ageMin || age > ageMax {
			return reply(fmt.Sprintf(replyAgeRetry, ageMin, ageMax))
		}
		s.Meta.Age = age
		s.Stage = Stage{Kind: StageSmoking}
		return reply(fmt.Sprintf(replySmokingPrompt, smokingLabelList()))

	case StageSmoking:
		label, ok := parseSmoking(text)
		if !ok {
			return reply(fmt.Sprintf(replySmokingRetry, smokingLabelList()))
		}
		s.Meta.SmokingStatus = label
		s.Stage = Stage{Kind: StageDiagnosis}
		return reply(replyDiagnosisPrompt)

	case StageDiagnosis:
		if text == "" {
			return reply(replyDiagnosisRetry)
		}
		s.Meta.Diagnosis = text
		s.Stage = Stage{Kind: StageEmotion}
		return reply(fmt.Sprintf(replyEmotionPrompt, emotionMin, emotionMax))

	case StageEmotion:
		v, err := strconv.Atoi(text)
		if err != nil || v < emotionMin || v > emotionMax {
			return reply(fmt.Sprintf(replyEmotionRetry, emotionMin, emotionMax))
		}
		s.Meta.EmotionalState = v
		s.Stage = Stage{Kind: StageEnvironment}
		return reply(replyEnvironmentPrompt)

	case StageEnvironment:
		if text == "" {
			return reply(replyEnvironmentRetry)
		}
		s.Meta.Environment = text
		s.TaskQueue = append([]TaskID(nil), e.Tasks...)
		replies := []string{replyTasksIntro}
		return Result{Replies: append(replies, e.advanceQueue(s)...)}

	case StageAudio:
		if in.Voice == nil {
			return reply(fmt.Sprintf(replyNoAudio, taskLabel(s.Stage.Task)))
		}
		return Result{Upload: &UploadRequest{Task: s.Stage.Task, Voice: *in.Voice}}

	case StageFinished:
		if isResetKeyword(text) {
			return e.Reset(s)
		}
		return reply(replyAlreadyDone)

	default:
		// Unreachable: Stage.Kind is always one of the enumerated values.
		return reply(replyConsentRetry)
	}
}

// CompleteUpload records the uploaded recording's URL and moves the session
// on to the next task, or to the summary and Finished when the queue is
// empty. The call is a no-op unless the session is still waiting on task.
func (e *Engine) CompleteUpload(s *Session, task TaskID, url string) Result {
	if s.Stage.Kind != StageAudio || s.Stage.Task != task {
		return Result{}
	}
	s.touch()
	if s.Meta.AudioURLs == nil {
		s.Meta.AudioURLs = map[TaskID]string{}
	}
	s.Meta.AudioURLs[task] = url
	s.Meta.CurrentTask = ""
	return Result{Replies: append([]string{replyAudioSaved}, e.advanceQueue(s)...)}
}

// FailUpload reports an audio fetch/upload failure to the user. The stage is
// unchanged and no metadata is written; the user simply retries.
func (e *Engine) FailUpload(s *Session, task TaskID) Result {
	s.touch()
	return reply(replyAudioProblem)
}

// Reset reinitializes the session. With ResumeOnReset, an in-progress
// session keeps its answers and is re-asked the current question; finished
// (or untouched) sessions always start over.
func (e *Engine) Reset(s *Session) Result {
	if e.ResumeOnReset && s.greeted && s.Stage.Kind != StageFinished {
		return reply(replyResetResume, e.promptFor(s))
	}

	restarted := s.greeted && (s.Stage.Kind != StageConsent || s.Meta.Consent)
	s.reinitialize()
	s.greeted = true
	if restarted {
		return reply(replyResetDiscard, replyGreeting, replyConsent)
	}
	return reply(replyGreeting, replyConsent)
}

// Help returns the static help reply.
func (e *Engine) Help() Result {
	return reply(replyHelp)
}

// advanceQueue dequeues the next audio task and emits its prompt, or closes
// out the session with the summary when the queue is exhausted.
func (e *Engine) advanceQueue(s *Session) []string {
	if len(s.TaskQueue) == 0 {
		s.Stage = Stage{Kind: StageFinished}
		return []string{replyAllDone, summaryReply(s.Meta)}
	}

	task := s.TaskQueue[0]
	s.TaskQueue = s.TaskQueue[1:]
	s.Meta.CurrentTask = task
	s.Stage = AwaitingAudio(task)
	return []string{taskPrompt(task)}
}

// promptFor re-asks the question for the session's current stage.
func (e *Engine) promptFor(s *Session) string {
	switch s.Stage.Kind {
	case StageConsent:
		return replyConsent
	case StageName:
		return replyNamePrompt
	case StageAge:
		return fmt.Sprintf(replyAgeRetry, ageMin, ageMax)
	case StageSmoking:
		return fmt.Sprintf(replySmokingRetry, smokingLabelList())
	case StageDiagnosis:
		return replyDiagnosisPrompt
	case StageEmotion:
		return fmt.Sprintf(replyEmotionRetry, emotionMin, emotionMax)
	case StageEnvironment:
		return replyEnvironmentPrompt
	case StageAudio:
		return taskPrompt(s.Stage.Task)
	default:
		return replyAlreadyDone
	}
}

func reply(lines ...string) Result {
	return Result{Replies: lines}
}

func parseYesNo(text string) (yes bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes", "y", "sim":
		return true, true
	case "no", "n", "nao", "não":
		return false, true
	default:
		return false, false
	}
}

func parseSmoking(text string) (label string, ok bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	for canonical, variants := range smokingLabels {
		for _, v := range variants {
			if t == v {
				return canonical, true
			}
		}
	}
	return "", false
}

func (s *Session) touch() {
	s.UpdatedAt = timeNow()
}
