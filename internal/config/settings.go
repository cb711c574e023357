package config

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Settings are the plugin-level administrator settings. Unlike Config they
// are looked up on every call through a Provider and never cached.
type Settings struct {
	LTIAASURL    string `env:"LTIAAS_URL"`
	LTIAASAPIKey string `env:"LTIAAS_API_KEY"`

	Lang        string `env:"DEFAULT_LANG" envDefault:"en"`
	Timezone    string `env:"DEFAULT_TIMEZONE"`
	MailDisplay string `env:"DEFAULT_MAILDISPLAY"` // empty: fall back to 2
	City        string `env:"DEFAULT_CITY"`
	Country     string `env:"DEFAULT_COUNTRY"`
	MNetHostID  int64  `env:"MNET_LOCALHOST_ID" envDefault:"1"`

	AuthEnabled         bool `env:"AUTH_LTI_ENABLED" envDefault:"true"`
	EnrolEnabled        bool `env:"ENROL_LTIAAS_ENABLED" envDefault:"true"`
	AllowFrameEmbedding bool `env:"ALLOW_FRAME_EMBEDDING" envDefault:"false"`
}

type Provider interface {
	Settings(ctx context.Context) (Settings, error)
}

// EnvProvider re-reads the environment each time Settings is called.
type EnvProvider struct{}

func (EnvProvider) Settings(context.Context) (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// Static always returns the same settings.
type Static Settings

func (s Static) Settings(context.Context) (Settings, error) { return Settings(s), nil }
