package config

import "time"

type LinkingConfig interface {
	GetCallbackURL() string
	GetCompletionURL() string
	GetPendingTTL() time.Duration
	GetSweepInterval() time.Duration
}

type Linking struct {
	CallbackURL   string        `env:"LINK_CALLBACK_URL"`
	CompletionURL string        `env:"LINK_COMPLETION_URL" envDefault:"/"`
	PendingTTL    time.Duration `env:"LINK_PENDING_TTL" envDefault:"10m"`
	SweepInterval time.Duration `env:"LINK_SWEEP_INTERVAL" envDefault:"60s"`
}

// GetCallbackURL is implemented on mainConfig, which can see the base URL.
func (l Linking) GetCompletionURL() string {
	return l.CompletionURL
}

func (l Linking) GetPendingTTL() time.Duration {
	if l.PendingTTL <= 0 {
		return 10 * time.Minute
	}
	return l.PendingTTL
}

func (l Linking) GetSweepInterval() time.Duration {
	if l.SweepInterval <= 0 {
		return time.Minute
	}
	return l.SweepInterval
}
