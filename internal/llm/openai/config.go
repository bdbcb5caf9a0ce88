package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// Config for the OpenAI client.
type Config struct {
	APIKey   string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL  string        // default https://api.openai.com/v1
	Model    string        // e.g., "gpt-4o-mini"
	Timeout  time.Duration // http client timeout
	JSONMode bool          // response_format=json_object
}

type Client struct {
	cfg    Config
	api    *goopenai.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = goopenai.GPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		cfg:    cfg,
		api:    goopenai.NewClientWithConfig(apiCfg),
		logger: logger,
	}
}
