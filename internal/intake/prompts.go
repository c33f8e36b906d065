package intake

import (
	"fmt"
	"sort"
	"strings"
)

// Replies use the chat client's lightweight *emphasis* markup on a few words.
// It is cosmetic; clients without markup render the asterisks as-is.

const (
	replyGreeting = "Hi! I am Curumim, the voice-collection assistant for the Angelia AI health research project."
	replyConsent  = "Your answers and recordings are used for research only. Do you agree to contribute? Please answer *yes* or *no*."

	replyConsentRetry    = "Sorry, I didn't catch that. Please answer *yes* or *no*."
	replyConsentDeclined = "No problem, thank you for your time! If you change your mind, send *restart*."

	replyNamePrompt = "Great! Let's begin. What is your *name*?"
	replyNameRetry  = "Please tell me your name."

	replyAgePrompt = "Thanks, %s! Now, what is your *age*? (numbers only)"
	replyAgeRetry  = "Please send your age as a number between %d and %d."

	replySmokingPrompt = "Age registered! Do you smoke? Please answer one of: %s."
	replySmokingRetry  = "Please answer one of: %s."

	replyDiagnosisPrompt = "Got it. Do you have any *respiratory diagnosis*? Describe it briefly, or say \"none\"."
	replyDiagnosisRetry  = "Please describe your diagnosis, or say \"none\"."

	replyEmotionPrompt = "Registered! How would you rate your *emotional state* right now, from %d (very bad) to %d (very good)?"
	replyEmotionRetry  = "Please send a number from %d to %d."

	replyEnvironmentPrompt = "Thanks! Where are you recording from? Describe your *environment* (e.g. quiet room, street, office)."
	replyEnvironmentRetry  = "Please describe the environment you are recording in."

	replyTasksIntro = "Perfect, that's everything I need to ask. Now come the *recordings*."

	replyNoAudio       = "I didn't receive a recording. Please record and send the audio for: %s."
	replyAudioSaved    = "Recording received and saved, thank you!"
	replyAudioProblem  = "Sorry, I had a problem processing your audio. Could you try again?"
	replyAllDone       = "That completes your contribution. Thank you so much for helping Angelia AI!"
	replyAlreadyDone   = "We already have your contribution! To start over, send *restart*."
	replyResetDiscard  = "Restarting the conversation from the beginning."
	replyResetResume   = "Let's pick up where we left off."
	replyHelp          = "I collect voice samples for health research. Answer my questions and send the recordings I ask for. Send *restart* to start over."
)

const (
	ageMin = 5
	ageMax = 120

	emotionMin = 1
	emotionMax = 5
)

// Canonical smoking labels with their accepted spellings (lowercase).
var smokingLabels = map[string][]string{
	"never":   {"never", "no", "nunca", "nao", "não"},
	"former":  {"former", "ex", "ex-smoker", "ex-fumante"},
	"current": {"current", "yes", "smoker", "sim", "fumante"},
}

func smokingLabelList() string {
	labels := make([]string, 0, len(smokingLabels))
	for l := range smokingLabels {
		labels = append(labels, "*"+l+"*")
	}
	sort.Strings(labels)
	return strings.Join(labels, ", ")
}

// taskPrompt returns the fixed instruction for each recording task.
func taskPrompt(task TaskID) string {
	switch task {
	case TaskVowelA:
		return "Please record a *sustained vowel \"A\"* for 3 to 5 seconds (like: Aaaaaa...) and send it as a voice message."
	case TaskVowelI:
		return "Now record a *sustained vowel \"I\"* for 3 to 5 seconds (like: Iiiiii...) and send it."
	case TaskVowelO:
		return "Almost there! Record a *sustained vowel \"O\"* for 3 to 5 seconds (like: Oooooo...) and send it."
	case TaskCount:
		return "Last one: record yourself *counting from 1 to 10* at a comfortable pace and send it."
	default:
		return fmt.Sprintf("Please record and send the audio for: %s.", task)
	}
}

func taskLabel(task TaskID) string {
	switch task {
	case TaskVowelA:
		return "sustained vowel \"A\""
	case TaskVowelI:
		return "sustained vowel \"I\""
	case TaskVowelO:
		return "sustained vowel \"O\""
	case TaskCount:
		return "counting from 1 to 10"
	default:
		return string(task)
	}
}

func summaryReply(meta Metadata) string {
	var b strings.Builder
	b.WriteString("Here is what we collected:\n")
	fmt.Fprintf(&b, "name: %s\n", meta.Name)
	fmt.Fprintf(&b, "age: %d\n", meta.Age)
	fmt.Fprintf(&b, "smoking: %s\n", meta.SmokingStatus)
	fmt.Fprintf(&b, "diagnosis: %s\n", meta.Diagnosis)
	fmt.Fprintf(&b, "emotional state: %d/%d\n", meta.EmotionalState, emotionMax)
	fmt.Fprintf(&b, "environment: %s\n", meta.Environment)
	fmt.Fprintf(&b, "recordings: %d", len(meta.AudioURLs))
	return b.String()
}
