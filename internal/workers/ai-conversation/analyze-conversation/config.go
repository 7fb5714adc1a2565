package analyzeconversation

import "time"

type Config struct {
	Timeout time.Duration
	// PreferRemote is used when a job does not say.
	PreferRemote bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:      45 * time.Second,
		PreferRemote: true,
	}
}
