package deliverreport

import (
	"fmt"
	"time"
)

type Config struct {
	Timeout time.Duration
	// NotifyTopicARN is used when a job carries no topic. Empty disables
	// notifications.
	NotifyTopicARN string
	Subject        string
	Body           string
}

func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Subject: "Your ZenCalcs calculation report",
		Body: "Hello,\n\nYour calculation report is attached as a PDF.\n\n" +
			"Results are estimates for planning purposes. Consult a professional for specific advice.\n\n" +
			"ZenCalcs",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	return nil
}
