package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// ResetPolicy controls what a reset command does to an in-progress session.
type ResetPolicy string

const (
	// ResetDiscard drops any partial answers and starts over.
	ResetDiscard ResetPolicy = "discard"
	// ResetResume keeps collected answers; only finished sessions start over.
	ResetResume ResetPolicy = "resume"
)

type Config struct {
	ChatURL  string
	APIBase  string
	BotToken string

	Storage StorageConfig

	Namespace   string
	ResetPolicy ResetPolicy

	DownloadTimeout time.Duration
	UploadTimeout   time.Duration
}

// StorageConfig holds the S3-compatible object-storage credentials
// (Cloudflare R2 in the reference deployment).
type StorageConfig struct {
	AccessKeyID     string
	SecretAccessKey string
	AccountID       string
	Bucket          string
	Endpoint        string
	PublicBaseURL   string
}

// Complete reports whether enough is configured to attempt uploads.
func (s StorageConfig) Complete() bool {
	return s.AccessKeyID != "" && s.SecretAccessKey != "" && s.Endpoint != "" && s.Bucket != ""
}

func Load() (Config, error) {
	botToken := strings.TrimSpace(os.Getenv("CHAT_BOT_TOKEN"))
	if botToken == "" {
		return Config{}, fmt.Errorf("CHAT_BOT_TOKEN is required")
	}

	chatURL := strings.TrimRight(strings.TrimSpace(os.Getenv("CHAT_URL")), "/")
	if chatURL == "" {
		chatURL = "http://localhost:3000"
	}
	apiBase := strings.TrimRight(strings.TrimSpace(os.Getenv("CHAT_API_BASE")), "/")
	if apiBase == "" {
		apiBase = chatURL + "/api"
	}

	accountID := strings.TrimSpace(os.Getenv("R2_ACCOUNT_ID"))
	endpoint := strings.TrimSpace(os.Getenv("R2_ENDPOINT"))
	if endpoint == "" && accountID != "" {
		endpoint = accountID + ".r2.cloudflarestorage.com"
	}
	publicBase := strings.TrimRight(strings.TrimSpace(os.Getenv("R2_PUBLIC_BASE_URL")), "/")
	if publicBase == "" && accountID != "" {
		publicBase = "https://pub-" + accountID + ".r2.dev"
	}

	namespace := strings.TrimSpace(os.Getenv("INTAKE_NAMESPACE"))
	if namespace == "" {
		namespace = "curumim_audios"
	}

	policy := ResetPolicy(strings.ToLower(strings.TrimSpace(os.Getenv("INTAKE_RESET_POLICY"))))
	switch policy {
	case "":
		policy = ResetDiscard
	case ResetDiscard, ResetResume:
	default:
		return Config{}, fmt.Errorf("invalid INTAKE_RESET_POLICY: %q (want %q or %q)", policy, ResetDiscard, ResetResume)
	}

	return Config{
		ChatURL:  chatURL,
		APIBase:  apiBase,
		BotToken: botToken,
		Storage: StorageConfig{
			AccessKeyID:     strings.TrimSpace(os.Getenv("R2_ACCESS_KEY_ID")),
			SecretAccessKey: strings.TrimSpace(os.Getenv("R2_SECRET_ACCESS_KEY")),
			AccountID:       accountID,
			Bucket:          strings.TrimSpace(os.Getenv("R2_BUCKET_NAME")),
			Endpoint:        endpoint,
			PublicBaseURL:   publicBase,
		},
		Namespace:       namespace,
		ResetPolicy:     policy,
		DownloadTimeout: 45 * time.Second,
		UploadTimeout:   90 * time.Second,
	}, nil
}
