package config

import (
	"RouteGrader/feedback"
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	RPCPort            int           `yaml:"RPCPort"`
	HTTPPort           int           `yaml:"HTTPPort"`
	MonitorPort        int           `yaml:"MonitorPort"`
	WorkersNum         int           `yaml:"workersNum"`
	ModelPath          string        `yaml:"modelPath"`
	LogMode            string        `yaml:"logMode"`
	SessionIdleTimeout time.Duration `yaml:"sessionIdleTimeout"`

	Redis    feedback.RedisConfig `yaml:"redis"`
	Feedback FeedbackConfig       `yaml:"feedback"`
	Detector DetectorConfig       `yaml:"detector"`

	UseRegServer  bool   `yaml:"UseRegServer"`
	RegServerHost string `yaml:"RegServerHost"`
	RegServerPort int    `yaml:"RegServerPort"`
}

type FeedbackConfig struct {
	UploadURL string        `yaml:"uploadURL"`
	Timeout   time.Duration `yaml:"timeout"`
}

type DetectorConfig struct {
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"apiKey"`
	Confidence float64       `yaml:"confidence"`
	Timeout    time.Duration `yaml:"timeout"`
}

func Default() Config {
	return Config{
		RPCPort:            50051,
		HTTPPort:           8080,
		MonitorPort:        50052,
		WorkersNum:         1,
		ModelPath:          "model.json",
		LogMode:            "production",
		SessionIdleTimeout: 10 * time.Minute,
		Redis:              feedback.RedisConfig{Addr: "localhost:6379"},
		Feedback:           FeedbackConfig{Timeout: 5 * time.Second},
		Detector:           DetectorConfig{Confidence: 0.3, Timeout: 30 * time.Second},
		RegServerHost:      "127.0.0.1",
		RegServerPort:      8090,
	}
}

// Load reads path over the defaults. The returned warnings describe values
// that were adjusted rather than rejected.
func Load(path string) (Config, []string, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, nil, fmt.Errorf("parse config: %w", err)
	}
	warnings, err := cfg.normalize()
	return cfg, warnings, err
}

func (c *Config) normalize() ([]string, error) {
	var warnings []string
	cpus := runtime.NumCPU()
	if c.WorkersNum <= 0 {
		c.WorkersNum = 1
		warnings = append(warnings, "invalid workersNum in config, defaulting to 1")
	} else if c.WorkersNum > cpus {
		warnings = append(warnings, fmt.Sprintf("workersNum %d exceeds %d CPU cores, which may degrade performance", c.WorkersNum, cpus))
	}
	if c.Detector.Confidence < 0 || c.Detector.Confidence > 1 {
		return warnings, fmt.Errorf("detector confidence must be between 0.0 and 1.0, got %v", c.Detector.Confidence)
	}
	for name, port := range map[string]int{"RPCPort": c.RPCPort, "HTTPPort": c.HTTPPort, "MonitorPort": c.MonitorPort} {
		if port <= 0 || port > 65535 {
			return warnings, fmt.Errorf("%s %d is out of range", name, port)
		}
	}
	if c.ModelPath == "" {
		return warnings, fmt.Errorf("modelPath cannot be empty")
	}
	return warnings, nil
}
