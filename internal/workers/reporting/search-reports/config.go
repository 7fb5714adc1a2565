package searchreports

import "time"

type Config struct {
	Timeout     time.Duration
	IndexName   string
	DefaultSize int
	MaxSize     int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:     10 * time.Second,
		IndexName:   "zencalcs-reports",
		DefaultSize: 20,
		MaxSize:     100,
	}
}
