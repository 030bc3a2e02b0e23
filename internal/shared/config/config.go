package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"
	"github.com/samber/oops"

	"tgrelay/internal/shared/errors"
)

type Config struct {
	TelegramBotToken string      `koanf:"telegram_bot_token"`
	TelegramAPIURL   string      `koanf:"telegram_api_url"`
	StoragePath      string      `koanf:"storage_path"`
	HTTPPort         string      `koanf:"http_port"`
	PollInterval     int         `koanf:"poll_interval"`
	AllowedUsers     []int64     `koanf:"allowed_users"`
	AdminChatID      int64       `koanf:"admin_chat_id"`
	ConfirmMode      ConfirmMode `koanf:"confirm_mode"`
	ConfirmTimeout   int         `koanf:"confirm_timeout"`
	IngestMode       IngestMode  `koanf:"ingest_mode"`
	StripPatterns    []string    `koanf:"strip_patterns"`
	AppEnv           AppEnv      `koanf:"app_env"`
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try to load config file from various formats
	configFiles := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"config.toml",
	}

	configFile, found := lo.Find(configFiles, func(file string) bool {
		_, err := os.Stat(file)
		return err == nil
	})

	if found {
		var parser koanf.Parser
		ext := filepath.Ext(configFile)

		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		case ".toml":
			parser = toml.Parser()
		default:
			return nil, oops.Errorf("unsupported config file extension: %s", ext)
		}

		if err := k.Load(file.Provider(configFile), parser); err != nil {
			return nil, oops.With("config_file", configFile).Wrap(err)
		}
	}

	// Load environment variables (they override config file values)
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, oops.With("context", "loading environment variables").Wrap(err)
	}

	// Set defaults
	if !k.Exists("telegram_api_url") {
		k.Set("telegram_api_url", "https://api.telegram.org")
	}
	if !k.Exists("storage_path") {
		k.Set("storage_path", "./data")
	}
	if !k.Exists("http_port") {
		k.Set("http_port", "8080")
	}
	if !k.Exists("poll_interval") {
		k.Set("poll_interval", 5)
	}
	if !k.Exists("confirm_timeout") {
		k.Set("confirm_timeout", 60)
	}

	// Unmarshal into struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.With("context", "unmarshaling config").Wrap(err)
	}

	// Parse AllowedUsers from comma-separated string if it's a string
	if allowedUsers := k.Get("allowed_users"); allowedUsers != nil {
		switch v := allowedUsers.(type) {
		case string:
			cfg.AllowedUsers = ParseAllowedUsers(v)
		case []interface{}:
			cfg.AllowedUsers = lo.FilterMap(v, func(item interface{}, _ int) (int64, bool) {
				switch val := item.(type) {
				case int64:
					return val, true
				case int:
					return int64(val), true
				case float64:
					return int64(val), true
				default:
					return 0, false
				}
			})
		}
	}

	// Enum fields fall back to their defaults on unknown values
	if mode, err := ParseConfirmMode(k.String("confirm_mode")); err == nil {
		cfg.ConfirmMode = mode
	} else {
		cfg.ConfirmMode = ConfirmModePrompt
	}
	if mode, err := ParseIngestMode(k.String("ingest_mode")); err == nil {
		cfg.IngestMode = mode
	} else {
		cfg.IngestMode = IngestModePush
	}
	if appEnv, err := ParseAppEnv(k.String("app_env")); err == nil {
		cfg.AppEnv = appEnv
	} else {
		cfg.AppEnv = AppEnvProduction
	}

	// Validate required fields
	if cfg.TelegramBotToken == "" {
		return nil, errors.ErrMissingBotToken
	}
	if cfg.ConfirmMode == ConfirmModePrompt && cfg.AdminChatID == 0 {
		return nil, errors.ErrMissingAdminChat
	}

	return &cfg, nil
}

// Authorized reports whether a user may drive the operator surface.
// An empty allowlist means no restrictions.
func (c *Config) Authorized(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	return lo.Contains(c.AllowedUsers, userID)
}

// ParseAllowedUsers parses comma-separated user IDs string into []int64
func ParseAllowedUsers(s string) []int64 {
	if s == "" {
		return []int64{}
	}
	parts := strings.Split(s, ",")
	return lo.FilterMap(parts, func(part string, _ int) (int64, bool) {
		part = strings.TrimSpace(part)
		if part == "" {
			return 0, false
		}
		var id int64
		if _, err := fmt.Sscanf(part, "%d", &id); err == nil {
			return id, true
		}
		return 0, false
	})
}
