package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultGMPAPIURL    = "https://webnodejs.investorgain.com/cloud/report/data-read/331/1/8/2000/abc/00/all"
	DefaultSMTPHost     = "smtp.gmail.com"
	DefaultSMTPPort     = 587
	DefaultFetchTimeout = 10 * time.Second
)

type Config struct {
	EmailUser     string
	EmailPassword string
	NotifyEmails  string
	LogLevel      string
	GMPAPIURL     string
	SMTPHost      string
	SMTPPort      int
	FetchTimeout  time.Duration
}

// MailSettings holds what the notifier needs to open an SMTP session
type MailSettings struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Recipients splits NOTIFY_EMAILS on commas, dropping blank entries
func (c *Config) Recipients() []string {
	var recipients []string
	for _, address := range strings.Split(c.NotifyEmails, ",") {
		address = strings.TrimSpace(address)
		if address != "" {
			recipients = append(recipients, address)
		}
	}
	return recipients
}

// Mail returns the SMTP settings for the notifier
func (c *Config) Mail() MailSettings {
	return MailSettings{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.EmailUser,
		Password: c.EmailPassword,
	}
}

// LoadConfig reads envFile (when present) and the process environment
func LoadConfig(envFile string) *Config {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		logrus.WithField("env_file", envFile).Warn("No env file loaded, using system environment variables")
	}

	return &Config{
		EmailUser:     getEnv("EMAIL_USER", ""),
		EmailPassword: getEnv("EMAIL_PASSWORD", ""),
		NotifyEmails:  getEnv("NOTIFY_EMAILS", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		GMPAPIURL:     getEnv("GMP_API_URL", DefaultGMPAPIURL),
		SMTPHost:      getEnv("SMTP_HOST", DefaultSMTPHost),
		SMTPPort:      getEnvInt("SMTP_PORT", DefaultSMTPPort),
		FetchTimeout:  DefaultFetchTimeout,
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		logrus.Warnf("Invalid %s value: %s, using default %d", key, raw, fallback)
		return fallback
	}
	return value
}
