package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

const settingsHeader = "# kaban config file, edit at your own risk\n"

const EnvPrefix = "KABAN"

var (
	ErrUnknownSetting = errors.New("unknown setting")
	ErrInvalidFormat  = errors.New("unsupported format")
	ErrInvalidValue   = errors.New("invalid setting value")
)

type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q (expected toml or yaml)", ErrInvalidFormat, value)
	}
}

// Other returns the format that is not f.
func (f Format) Other() Format {
	if f == FormatYAML {
		return FormatTOML
	}
	return FormatYAML
}

// Settings are the persistent user options kept in config.toml.
type Settings struct {
	Format Format `mapstructure:"format" toml:"format"`
	Local  bool   `mapstructure:"local" toml:"local"`
	Quiet  bool   `mapstructure:"quiet" toml:"quiet"`
}

func DefaultSettings() Settings {
	return Settings{Format: FormatTOML}
}

// SettingKeys lists the keys accepted by Get and Set.
func SettingKeys() []string {
	keys := []string{"format", "local", "quiet"}
	sort.Strings(keys)
	return keys
}

// LoadSettings reads path, applying KABAN_FORMAT, KABAN_LOCAL and
// KABAN_QUIET on top. A missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	defaults := DefaultSettings()

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("format", string(defaults.Format))
	v.SetDefault("local", defaults.Local)
	v.SetDefault("quiet", defaults.Quiet)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return defaults, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return defaults, err
		}
	}

	var out Settings
	if err := v.Unmarshal(&out); err != nil {
		return defaults, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	format, err := ParseFormat(string(out.Format))
	if err != nil {
		return defaults, err
	}
	out.Format = format
	return out, nil
}

// SaveSettings rewrites path in full with a fresh header comment.
func SaveSettings(path string, settings Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(settingsHeader)
	if err := toml.NewEncoder(&buf).Encode(settings); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Get renders a single setting.
func (s Settings) Get(key string) (string, error) {
	switch normalizeKey(key) {
	case "format":
		return string(s.Format), nil
	case "local":
		return strconv.FormatBool(s.Local), nil
	case "quiet":
		return strconv.FormatBool(s.Quiet), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
}

// Set parses value and assigns it to key.
func (s *Settings) Set(key, value string) error {
	switch normalizeKey(key) {
	case "format":
		format, err := ParseFormat(value)
		if err != nil {
			return err
		}
		s.Format = format
	case "local":
		parsed, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%w for local: %s", ErrInvalidValue, value)
		}
		s.Local = parsed
	case "quiet":
		parsed, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%w for quiet: %s", ErrInvalidValue, value)
		}
		s.Quiet = parsed
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSetting, key)
	}
	return nil
}

// IsSettingKey reports whether key names a setting.
func IsSettingKey(key string) bool {
	_, err := DefaultSettings().Get(key)
	return err == nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", value)
	}
}
