package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/renan-b-eth/curumim-backend-telegram/internal/chat"
	"github.com/renan-b-eth/curumim-backend-telegram/internal/config"
	"github.com/renan-b-eth/curumim-backend-telegram/internal/intake"
)

type fakeUploader struct {
	fail bool
	keys []string
}

func (f *fakeUploader) Upload(ctx context.Context, data []byte, key, contentType string) (string, error) {
	if f.fail {
		return "", fmt.Errorf("storage unavailable")
	}
	f.keys = append(f.keys, key)
	return "https://pub.example/" + key, nil
}

type sentMessage struct {
	event   string
	payload map[string]any
}

func collectEmit(out *[]sentMessage) chat.EmitFunc {
	return func(event string, payload any) error {
		m, _ := payload.(map[string]any)
		*out = append(*out, sentMessage{event: event, payload: m})
		return nil
	}
}

func testRunner(t *testing.T, uploader *fakeUploader) *Runner {
	t.Helper()

	cfg := config.Config{
		ChatURL:         "http://localhost:3000",
		APIBase:         "http://localhost:3000/api",
		BotToken:        "tok",
		Namespace:       "curumim_audios",
		ResetPolicy:     config.ResetDiscard,
		DownloadTimeout: 5 * time.Second,
		UploadTimeout:   5 * time.Second,
	}
	r, err := NewRunner(cfg, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	if uploader != nil {
		r.uploader = uploader
	}
	return r
}

func textMessage(userID, channelID, content string) chat.Message {
	return chat.Message{
		ID:        "m-" + content,
		ChannelID: channelID,
		Content:   content,
		AuthorRaw: json.RawMessage(`"` + userID + `"`),
		CreatedAt: time.Now(),
	}
}

func voiceMessage(userID, channelID, url string) chat.Message {
	return chat.Message{
		ID:        "m-voice",
		ChannelID: channelID,
		AuthorRaw: json.RawMessage(`"` + userID + `"`),
		Attachments: []chat.AttachmentRef{{
			Filename:    "voice.ogg",
			ContentType: "audio/ogg",
			URL:         url,
		}},
		CreatedAt: time.Now(),
	}
}

func send(t *testing.T, r *Runner, msg chat.Message) []sentMessage {
	t.Helper()
	var sent []sentMessage
	if err := r.processMessage(context.Background(), msg, collectEmit(&sent)); err != nil {
		t.Fatalf("processMessage(%q): %v", msg.Content, err)
	}
	return sent
}

func TestProcessMessage_FullIntakeConversation(t *testing.T) {
	t.Parallel()

	audioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("ogg-bytes"))
	}))
	t.Cleanup(audioSrv.Close)

	up := &fakeUploader{}
	r := testRunner(t, up)

	const user, channel = "u1", "ch1"

	// Greeting turn, then the questionnaire.
	for _, text := range []string{"hello", "yes", "Maria", "34", "never", "asthma", "4", "quiet room"} {
		if got := send(t, r, textMessage(user, channel, text)); len(got) == 0 {
			t.Fatalf("no reply for %q", text)
		}
	}

	session, created := r.store.GetOrCreate(user)
	if created {
		t.Fatalf("session should already exist")
	}
	if session.Stage.Kind != intake.StageAudio || session.Stage.Task != intake.TaskVowelA {
		t.Fatalf("expected first audio task, got %s", session.Stage)
	}

	// Four recordings complete the intake.
	for i := 0; i < 4; i++ {
		sent := send(t, r, voiceMessage(user, channel, audioSrv.URL+"/v.ogg"))
		if len(sent) == 0 {
			t.Fatalf("recording %d produced no replies", i)
		}
	}

	if session.Stage.Kind != intake.StageFinished {
		t.Fatalf("expected finished, got %s", session.Stage)
	}
	if len(session.Meta.AudioURLs) != 4 {
		t.Fatalf("audio urls = %v, want 4", session.Meta.AudioURLs)
	}
	if len(up.keys) != 4 {
		t.Fatalf("uploader saw %d objects, want 4", len(up.keys))
	}
	for _, key := range up.keys {
		if !strings.HasPrefix(key, "curumim_audios/u1/maria_") {
			t.Fatalf("unexpected key: %q", key)
		}
		if !strings.HasSuffix(key, ".ogg") {
			t.Fatalf("unexpected key extension: %q", key)
		}
	}
}

func TestProcessMessage_UploadFailureKeepsStage(t *testing.T) {
	t.Parallel()

	audioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("ogg-bytes"))
	}))
	t.Cleanup(audioSrv.Close)

	up := &fakeUploader{fail: true}
	r := testRunner(t, up)

	const user, channel = "u1", "ch1"
	for _, text := range []string{"hello", "yes", "Maria", "34", "never", "asthma", "4", "quiet room"} {
		send(t, r, textMessage(user, channel, text))
	}

	sent := send(t, r, voiceMessage(user, channel, audioSrv.URL+"/v.ogg"))
	if len(sent) != 1 {
		t.Fatalf("expected one failure reply, got %#v", sent)
	}

	session, _ := r.store.GetOrCreate(user)
	if session.Stage.Kind != intake.StageAudio || session.Stage.Task != intake.TaskVowelA {
		t.Fatalf("failed upload should keep the task, got %s", session.Stage)
	}
	if len(session.Meta.AudioURLs) != 0 {
		t.Fatalf("failed upload must not record urls: %v", session.Meta.AudioURLs)
	}
}

func TestProcessMessage_NoUploaderDegrades(t *testing.T) {
	t.Parallel()

	audioSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("ogg-bytes"))
	}))
	t.Cleanup(audioSrv.Close)

	r := testRunner(t, nil)

	const user, channel = "u1", "ch1"
	for _, text := range []string{"hello", "yes", "Maria", "34", "never", "asthma", "4", "quiet room"} {
		send(t, r, textMessage(user, channel, text))
	}

	sent := send(t, r, voiceMessage(user, channel, audioSrv.URL+"/v.ogg"))
	if len(sent) != 1 {
		t.Fatalf("expected a user-visible failure, got %#v", sent)
	}
	session, _ := r.store.GetOrCreate(user)
	if session.Stage.Task != intake.TaskVowelA {
		t.Fatalf("stage advanced without storage: %s", session.Stage)
	}
}

func TestProcessMessage_Commands(t *testing.T) {
	t.Parallel()

	r := testRunner(t, &fakeUploader{})
	const user, channel = "u1", "ch1"

	sent := send(t, r, textMessage(user, channel, "/help"))
	if len(sent) != 1 {
		t.Fatalf("expected help reply, got %#v", sent)
	}

	// Make some progress, then /start discards it.
	send(t, r, textMessage(user, channel, "hello"))
	send(t, r, textMessage(user, channel, "yes"))
	send(t, r, textMessage(user, channel, "Maria"))

	send(t, r, textMessage(user, channel, "/start"))
	session, _ := r.store.GetOrCreate(user)
	if session.Stage.Kind != intake.StageConsent {
		t.Fatalf("/start should reset to consent, got %s", session.Stage)
	}
	if session.Meta.Name != "" {
		t.Fatalf("/start should discard answers, got %+v", session.Meta)
	}
}

func TestHandleMessageCreate_Filters(t *testing.T) {
	t.Parallel()

	channelsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"_id":"dm1","type":"DM"},{"_id":"room1","type":"GROUP"}]`))
	}))
	t.Cleanup(channelsSrv.Close)

	r := testRunner(t, &fakeUploader{})
	r.apiBase = channelsSrv.URL
	r.botUserID = "bot1"

	var sent []sentMessage
	emit := collectEmit(&sent)

	// Own messages are ignored.
	own, _ := json.Marshal(textMessage("bot1", "dm1", "hi"))
	if err := r.handleMessageCreate(context.Background(), own, emit); err != nil {
		t.Fatalf("handleMessageCreate: %v", err)
	}
	if len(sent) != 0 {
		t.Fatalf("own message must not be answered: %#v", sent)
	}

	// Non-DM channels are ignored.
	group, _ := json.Marshal(textMessage("u1", "room1", "hi"))
	if err := r.handleMessageCreate(context.Background(), group, emit); err != nil {
		t.Fatalf("handleMessageCreate: %v", err)
	}
	if len(sent) != 0 {
		t.Fatalf("group message must not be answered: %#v", sent)
	}

	// DM messages reach the engine.
	dm, _ := json.Marshal(textMessage("u1", "dm1", "hi"))
	if err := r.handleMessageCreate(context.Background(), dm, emit); err != nil {
		t.Fatalf("handleMessageCreate: %v", err)
	}
	if len(sent) == 0 {
		t.Fatalf("DM message should be answered")
	}
	for _, m := range sent {
		if m.event != upstreamEventMessageCreate {
			t.Fatalf("unexpected event: %q", m.event)
		}
		if m.payload["channelId"] != "dm1" {
			t.Fatalf("reply sent to wrong channel: %#v", m.payload)
		}
	}
}

func TestCommandParsing(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"/start", "/start"},
		{"  /START  ", "/start"},
		{"/help me please", "/help"},
		{"start", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := command(c.in); got != c.want {
			t.Fatalf("command(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestReplyDelayBounded(t *testing.T) {
	t.Parallel()

	if replyDelay("") != 0 {
		t.Fatalf("empty line should have no delay")
	}
	long := strings.Repeat("x", 1000)
	if d := replyDelay(long); d != replyDelayMax {
		t.Fatalf("delay for long line = %s, want cap %s", d, replyDelayMax)
	}
}
