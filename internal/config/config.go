package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "PDF2DOCX"
	fileName  = "pdf2docx"
)

type Config struct {
	Server  ServerConfig
	TempDir string
	Log     LogConfig
	AI      AIConfig
}

type ServerConfig struct {
	Addr        string
	BodyLimitMB int
}

type LogConfig struct {
	Level  string
	Format string
}

type AIConfig struct {
	Provider string
	Model    string
	APIKey   string
}

// Enabled reports whether scanned pages should be sent for transcription.
func (c AIConfig) Enabled() bool {
	return strings.EqualFold(c.Provider, "gemini")
}

// SetDefaults registers every key so env overrides resolve even when no
// config file exists.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8501")
	v.SetDefault("server.body_limit_mb", 256)
	v.SetDefault("temp_dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("ai.provider", "off")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.api_key", "")
}

// Init points v at the config file and environment. A missing config file
// is not an error; a broken one is.
func Init(v *viper.Viper, cfgFile string) error {
	_ = godotenv.Load()

	SetDefaults(v)
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", fileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Addr:        v.GetString("server.addr"),
			BodyLimitMB: v.GetInt("server.body_limit_mb"),
		},
		TempDir: v.GetString("temp_dir"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		AI: AIConfig{
			Provider: v.GetString("ai.provider"),
			Model:    v.GetString("ai.model"),
			APIKey:   v.GetString("ai.api_key"),
		},
	}
	if cfg.Server.BodyLimitMB <= 0 {
		return Config{}, fmt.Errorf("server.body_limit_mb must be positive, got %d", cfg.Server.BodyLimitMB)
	}
	if cfg.TempDir != "" {
		info, err := os.Stat(cfg.TempDir)
		if err != nil {
			return Config{}, fmt.Errorf("temp_dir: %w", err)
		}
		if !info.IsDir() {
			return Config{}, fmt.Errorf("temp_dir: %s is not a directory", cfg.TempDir)
		}
	}
	switch strings.ToLower(cfg.AI.Provider) {
	case "", "off", "none", "gemini":
	default:
		return Config{}, fmt.Errorf("ai.provider: unsupported provider %q", cfg.AI.Provider)
	}
	return cfg, nil
}

// NewLogger builds the process logger from the log section.
func NewLogger(c LogConfig, out io.Writer) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(out)
	lvl, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}
	l.SetLevel(lvl)
	switch strings.ToLower(c.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("log.format: unsupported format %q", c.Format)
	}
	return l, nil
}
