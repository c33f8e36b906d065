package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/renan-b-eth/curumim-backend-telegram/internal/chat"
	"github.com/renan-b-eth/curumim-backend-telegram/internal/intake"
	"github.com/renan-b-eth/curumim-backend-telegram/internal/storage"
)

func (r *Runner) handleEvent(ctx context.Context, eventName string, payload json.RawMessage, emit chat.EmitFunc) error {
	if eventName != eventMessageCreate || len(payload) == 0 {
		return nil
	}
	if err := r.handleMessageCreate(ctx, payload, emit); err != nil {
		log.Printf("%s event handler error: %v", logPrefix, err)
	}
	return nil
}

func (r *Runner) handleMessageCreate(ctx context.Context, payload json.RawMessage, emit chat.EmitFunc) error {
	var msg chat.Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	if strings.TrimSpace(msg.ChannelID) == "" || strings.TrimSpace(msg.ID) == "" {
		return nil
	}
	if chat.IsOwnMessage(msg.AuthorRaw, r.botUserID) {
		return nil
	}
	if msg.RetractedAt != nil {
		return nil
	}
	if !r.isDMChannel(ctx, msg.ChannelID) {
		return nil
	}

	userID := msg.AuthorID()
	if userID == "" {
		return nil
	}

	log.Printf("%s DM message: channel=%s msg=%s user=%s voice=%t content=%q",
		logPrefix, msg.ChannelID, msg.ID, userID, msg.Voice() != nil,
		preview(msg.Content, logContentPreviewLen),
	)

	lock := r.store.Lock(userID)
	lock.Lock()
	defer lock.Unlock()

	return r.processMessage(ctx, msg, emit)
}

func (r *Runner) isDMChannel(ctx context.Context, channelID string) bool {
	if r.dmChannels.Has(channelID) {
		return true
	}
	if err := r.refreshDMChannels(ctx); err != nil {
		return false
	}
	return r.dmChannels.Has(channelID)
}

// processMessage runs one inbound message through the engine to completion,
// including the synchronous audio download/upload side effect, before the
// per-session lock is released.
func (r *Runner) processMessage(ctx context.Context, msg chat.Message, emit chat.EmitFunc) error {
	userID := msg.AuthorID()
	session, created := r.store.GetOrCreate(userID)
	if created {
		log.Printf("%s new session: user=%s", logPrefix, userID)
	}

	before := session.Stage
	res := r.step(ctx, session, msg)
	r.store.Put(userID, session)

	log.Printf("%s session step: user=%s stage=%s -> %s replies=%d",
		logPrefix, userID, before, session.Stage, len(res.Replies))

	return r.sendReplies(ctx, emit, msg.ChannelID, userID, res.Replies)
}

func (r *Runner) step(ctx context.Context, session *intake.Session, msg chat.Message) intake.Result {
	switch command(msg.Content) {
	case "/start":
		return r.engine.Reset(session)
	case "/help":
		return r.engine.Help()
	}

	res := r.engine.Advance(session, intake.Input{Text: msg.Content, Voice: msg.Voice()})
	if res.Upload == nil {
		return res
	}

	req := *res.Upload
	url, err := r.fetchAndUpload(ctx, session, req)
	if err != nil {
		log.Printf("%s audio task failed: user=%s task=%s err=%v", logPrefix, session.ID, req.Task, err)
		fail := r.engine.FailUpload(session, req.Task)
		fail.Replies = append(res.Replies, fail.Replies...)
		return fail
	}

	log.Printf("%s audio stored: user=%s task=%s url=%s", logPrefix, session.ID, req.Task, url)
	done := r.engine.CompleteUpload(session, req.Task, url)
	done.Replies = append(res.Replies, done.Replies...)
	return done
}

// fetchAndUpload resolves the voice attachment to raw bytes and persists it
// in object storage, returning the public URL.
func (r *Runner) fetchAndUpload(ctx context.Context, session *intake.Session, req intake.UploadRequest) (string, error) {
	if r.uploader == nil {
		return "", fmt.Errorf("%w: object storage not configured", storage.ErrUpload)
	}

	dlCtx, cancel := context.WithTimeout(ctx, r.cfg.DownloadTimeout)
	defer cancel()
	data, err := chat.DownloadAttachmentBytes(dlCtx, r.downloadHTTPClient, r.apiBase, r.userToken, req.Voice, maxVoiceBytes)
	if err != nil {
		return "", err
	}

	key := storage.BuildKey(r.cfg.Namespace, session.ID, session.Meta.Name, string(req.Task), chat.VoiceExt)
	url, err := r.uploader.Upload(ctx, data, key, "audio/"+chat.VoiceExt)
	if err != nil {
		return "", err
	}
	return url, nil
}

func (r *Runner) sendReplies(ctx context.Context, emit chat.EmitFunc, channelID, userID string, replies []string) error {
	sent := 0
	for i, text := range replies {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if err := emit(upstreamEventMessageCreate, map[string]any{
			"channelId": channelID,
			"content":   text,
		}); err != nil {
			return fmt.Errorf("send message failed: %w", err)
		}
		sent++
		if i < len(replies)-1 {
			sleepWithContext(ctx, replyDelay(text))
		}
	}
	if sent > 0 {
		log.Printf("%s replies sent: channel=%s user=%s lines=%d", logPrefix, channelID, userID, sent)
	}
	return nil
}

func command(content string) string {
	t := strings.ToLower(strings.TrimSpace(content))
	if !strings.HasPrefix(t, "/") {
		return ""
	}
	if i := strings.IndexByte(t, ' '); i > 0 {
		t = t[:i]
	}
	return t
}

func replyDelay(line string) time.Duration {
	n := len([]rune(line))
	if n <= 0 {
		return 0
	}
	d := replyDelayBase + time.Duration(n)*replyDelayPerRune
	if d > replyDelayMax {
		return replyDelayMax
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func preview(s string, maxRunes int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= maxRunes {
		return string(runes)
	}
	return string(runes[:maxRunes]) + "…"
}
