package ops

import (
	"os"
	"strconv"
	"strings"

	"autotrader/internal/codec"
	"autotrader/internal/risk"
	"autotrader/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/yanun0323/errors"
)

// Environment overrides, applied after the file.
const (
	EnvExecHost   = "AUTOTRADER_EXEC_HOST"
	EnvExecPort   = "AUTOTRADER_EXEC_PORT"
	EnvTeamName   = "AUTOTRADER_TEAM_NAME"
	EnvSecret     = "AUTOTRADER_SECRET"
	EnvLogLevel   = "AUTOTRADER_LOG_LEVEL"
	EnvJournalDSN = "AUTOTRADER_JOURNAL_DSN"
)

// InfoTypeUDP is the only supported market data transport.
const InfoTypeUDP = "udp"

// Config mirrors autotrader.json.
type Config struct {
	Execution   ExecutionConfig   `json:"Execution"`
	Information InformationConfig `json:"Information"`
	TeamName    string            `json:"TeamName"`
	Secret      string            `json:"Secret"`
	Risk        risk.Config       `json:"Risk"`
	Recorder    RecorderConfig    `json:"Recorder"`
	Journal     JournalConfig     `json:"Journal"`
	LogLevel    string            `json:"LogLevel"`
}

// ExecutionConfig is the order entry endpoint.
type ExecutionConfig struct {
	Host string `json:"Host"`
	Port int    `json:"Port"`
}

// Addr returns host:port.
func (c ExecutionConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// InformationConfig is the market data subscription.
type InformationConfig struct {
	Type string `json:"Type"`
	Name string `json:"Name"`
}

type RecorderConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
}

type JournalConfig struct {
	DSN string `json:"dsn"`
}

// Default returns the configuration used when the file leaves fields out.
func Default() Config {
	return Config{
		Execution:   ExecutionConfig{Host: "127.0.0.1", Port: 12345},
		Information: InformationConfig{Type: InfoTypeUDP, Name: "127.0.0.1:12346"},
		Risk:        risk.DefaultConfig(),
		Recorder:    RecorderConfig{Dir: "wal"},
		LogLevel:    "info",
	}
}

// Load reads the JSON file at path over the defaults, loads envPath (or
// ./.env when empty) if present and applies environment overrides.
func Load(path, envPath string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config").With("path", path)
		}
		if err := sonic.ConfigStd.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrap(err, "decode config").With("path", path)
		}
	}

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return Config{}, errors.Wrap(err, "load env file").With("path", envPath)
		}
	} else {
		_ = godotenv.Load()
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvExecHost); v != "" {
		c.Execution.Host = v
	}
	if v := os.Getenv(EnvExecPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(exception.ErrConfigInvalid, "exec port is not a number").With("value", v)
		}
		c.Execution.Port = port
	}
	if v := os.Getenv(EnvTeamName); v != "" {
		c.TeamName = v
	}
	if v := os.Getenv(EnvSecret); v != "" {
		c.Secret = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvJournalDSN); v != "" {
		c.Journal.DSN = v
	}
	return nil
}

// Validate checks that the configuration can start a session.
func (c Config) Validate() error {
	switch {
	case c.Execution.Host == "":
		return errors.Wrap(exception.ErrConfigInvalid, "execution host is empty")
	case c.Execution.Port <= 0 || c.Execution.Port > 65535:
		return errors.Wrap(exception.ErrConfigInvalid, "execution port out of range").With("port", c.Execution.Port)
	case !strings.EqualFold(c.Information.Type, InfoTypeUDP):
		return errors.Wrap(exception.ErrConfigUnsupported, "information type").With("type", c.Information.Type)
	case c.Information.Name == "":
		return errors.Wrap(exception.ErrConfigInvalid, "information name is empty")
	case len(c.TeamName) > codec.StringFieldSize:
		return errors.Wrap(exception.ErrConfigInvalid, "configured team name is too long")
	case len(c.Secret) > codec.StringFieldSize:
		return errors.Wrap(exception.ErrConfigInvalid, "configured secret is too long")
	case c.Recorder.Enabled && c.Recorder.Dir == "":
		return errors.Wrap(exception.ErrConfigInvalid, "recorder dir is empty")
	}
	return c.Risk.Validate()
}
