package generatereport

import "time"

type Config struct {
	Timeout time.Duration
	// RequireArchive fails the job when the PDF did not reach object storage.
	RequireArchive bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        2 * time.Minute,
		RequireArchive: true,
	}
}
