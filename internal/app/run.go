package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/renan-b-eth/curumim-backend-telegram/internal/bot"
	"github.com/renan-b-eth/curumim-backend-telegram/internal/config"
	"github.com/renan-b-eth/curumim-backend-telegram/internal/storage"
)

const logPrefix = "[curumim]"

func Run() error {
	config.LoadDotEnv(logPrefix)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var uploader storage.Uploader
	if cfg.Storage.Complete() {
		r2, err := storage.NewR2Client(cfg.Storage, cfg.UploadTimeout)
		if err != nil {
			return err
		}
		uploader = r2
		log.Printf("%s object storage connected: endpoint=%s bucket=%s", logPrefix, cfg.Storage.Endpoint, cfg.Storage.Bucket)
	} else {
		log.Printf("%s object-storage credentials incomplete: audio upload disabled", logPrefix)
	}

	runner, err := bot.NewRunner(cfg, uploader)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("%s starting (apiBase=%s resetPolicy=%s namespace=%s)", logPrefix, cfg.APIBase, cfg.ResetPolicy, cfg.Namespace)
	return runner.Run(ctx)
}
