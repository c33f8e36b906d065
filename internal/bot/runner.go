// Package bot drives the intake engine against a live chat-server
// connection: it receives gateway events, serializes per-session processing,
// performs the audio fetch/upload side effects and delivers replies.
package bot

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/renan-b-eth/curumim-backend-telegram/internal/chat"
	"github.com/renan-b-eth/curumim-backend-telegram/internal/config"
	"github.com/renan-b-eth/curumim-backend-telegram/internal/intake"
	"github.com/renan-b-eth/curumim-backend-telegram/internal/storage"
	"github.com/renan-b-eth/curumim-backend-telegram/internal/syncx"
)

type Runner struct {
	cfg     config.Config
	apiBase string
	wsURL   string

	chatHTTPClient     *http.Client
	downloadHTTPClient *http.Client

	botUserID string
	userToken string

	dmChannels *chat.DMChannelCache
	store      *intake.Store
	engine     *intake.Engine

	// uploader is nil when storage credentials are incomplete; uploads then
	// fail with a user-visible message instead of crashing.
	uploader storage.Uploader
}

func NewRunner(cfg config.Config, uploader storage.Uploader) (*Runner, error) {
	wsURL, err := chat.WebsocketURL(cfg.ChatURL)
	if err != nil {
		return nil, err
	}

	engine := intake.NewEngine()
	engine.ResumeOnReset = cfg.ResetPolicy == config.ResetResume

	return &Runner{
		cfg:                cfg,
		apiBase:            strings.TrimRight(cfg.APIBase, "/"),
		wsURL:              wsURL,
		chatHTTPClient:     &http.Client{Timeout: 30 * time.Second},
		downloadHTTPClient: &http.Client{Timeout: cfg.DownloadTimeout},
		dmChannels:         chat.NewDMChannelCache(),
		store:              intake.NewStore(),
		engine:             engine,
		uploader:           uploader,
	}, nil
}

func (r *Runner) Run(ctx context.Context) error {
	me, token, err := chat.LoginBot(ctx, r.chatHTTPClient, r.apiBase, r.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("%s bot auth failed: %w", logPrefix, err)
	}
	r.botUserID = me.ID
	r.userToken = token
	log.Printf("%s logged in: user=%s username=%q", logPrefix, me.ID, me.Username)

	if err := r.refreshDMChannels(ctx); err != nil {
		log.Printf("%s refresh DM channels failed (will retry later): %v", logPrefix, err)
	}

	g := syncx.NewGroup(ctx)
	g.Go(func(ctx context.Context) {
		syncx.RunInterval(ctx, dmRefreshInterval, false, func(ctx context.Context) {
			if err := r.refreshDMChannels(ctx); err != nil {
				log.Printf("%s refresh DM channels failed: %v", logPrefix, err)
			}
		})
	})
	g.Go(func(ctx context.Context) {
		err := chat.RunGatewayWithReconnect(ctx, r.wsURL, r.userToken, r.handleEvent, chat.GatewayOptions{}, chat.ReconnectOptions{
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     10 * time.Second,
			OnDisconnect: func(err error, nextBackoff time.Duration) {
				log.Printf("%s gateway disconnected: %v (reconnecting in %s)", logPrefix, err, nextBackoff)
			},
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("%s gateway stopped: %v", logPrefix, err)
		}
	})
	g.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (r *Runner) refreshDMChannels(ctx context.Context) error {
	return r.dmChannels.Refresh(ctx, r.chatHTTPClient, r.apiBase, r.userToken)
}
