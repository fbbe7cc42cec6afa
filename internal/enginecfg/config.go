// Package enginecfg loads engine configuration from environment variables,
// config.toml, and defaults, in that precedence order, the way the teacher's
// internal/config loads config.yaml via viper — one process-wide *viper.Viper
// singleton, SetDefault for every knob, AutomaticEnv for overrides.
package enginecfg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

var v *viper.Viper

// Defaults is the shape of the compiled-in fallback: Initialize decodes
// DefaultDoc into it with BurntSushi/toml and registers each field as a
// viper default, under viper's own file/env layers. WriteDefaultConfig can
// write one out as config.toml; no catalogctl command calls it.
type Defaults struct {
	Engine struct {
		LockTimeout       string `toml:"lock_timeout"`
		MaxColumns        int    `toml:"max_columns"`
		StatementTimeout  string `toml:"statement_timeout"`
	} `toml:"engine"`
	Catalog struct {
		Backend string `toml:"backend"` // "sqlite" | "dolt"
	} `toml:"catalog"`
	Dolt struct {
		Mode     string `toml:"mode"` // "embedded" | "server"
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		User     string `toml:"user"`
		Database string `toml:"database"`
	} `toml:"dolt"`
	Telemetry struct {
		OTLPEndpoint string `toml:"otlp_endpoint"`
		ServiceName  string `toml:"service_name"`
	} `toml:"telemetry"`
	Distribution struct {
		Nodes []string `toml:"nodes"`
	} `toml:"distribution"`
}

// DefaultDoc is the literal TOML embedded as the compiled-in fallback,
// decoded once by Initialize and then layered under env vars / config file
// values the same way the teacher layers YAML config under viper defaults.
const DefaultDoc = `
[engine]
lock_timeout = "30s"
max_columns = 1600
statement_timeout = "0s"

[catalog]
backend = "sqlite"

[dolt]
mode = "embedded"
host = "127.0.0.1"
port = 3307
user = "root"
database = "enginecore"

[telemetry]
otlp_endpoint = ""
service_name = "enginecore"

[distribution]
nodes = []
`

// Initialize sets up the viper singleton: decode DefaultDoc for its
// defaults, locate config.toml by walking up from cwd then falling back to
// the user config dir, bind ENGINECORE_-prefixed environment variables, and
// leave the result in the package-level v for Get*/All to read. Should be
// called once at process startup (cmd/catalogctl's root command does this).
func Initialize() error {
	var d Defaults
	if _, err := toml.Decode(DefaultDoc, &d); err != nil {
		return fmt.Errorf("enginecfg: decode built-in defaults: %w", err)
	}

	v = viper.New()
	v.SetConfigType("toml")

	v.SetDefault("engine.lock_timeout", d.Engine.LockTimeout)
	v.SetDefault("engine.max_columns", d.Engine.MaxColumns)
	v.SetDefault("engine.statement_timeout", d.Engine.StatementTimeout)
	v.SetDefault("catalog.backend", d.Catalog.Backend)
	v.SetDefault("dolt.mode", d.Dolt.Mode)
	v.SetDefault("dolt.host", d.Dolt.Host)
	v.SetDefault("dolt.port", d.Dolt.Port)
	v.SetDefault("dolt.user", d.Dolt.User)
	v.SetDefault("dolt.database", d.Dolt.Database)
	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("distribution.nodes", d.Distribution.Nodes)

	if path := locateConfigFile(); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("enginecfg: read %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("ENGINECORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return nil
}

// locateConfigFile walks up from the working directory looking for
// .enginecore/config.toml, then falls back to $XDG_CONFIG_HOME/enginecore,
// mirroring the teacher's project-then-user-dir search order.
func locateConfigFile() string {
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			candidate := filepath.Join(dir, ".enginecore", "config.toml")
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		candidate := filepath.Join(configDir, "enginecore", "config.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// WriteDefaultConfig encodes d as TOML and writes it to path, creating the
// parent directory. Only the fields of d are written; values changed through
// Set are not included.
func WriteDefaultConfig(path string, d Defaults) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(d); err != nil {
		return fmt.Errorf("enginecfg: encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetStringSlice returns a config key such as distribution.nodes as a list,
// accepting both a TOML array and an ENGINECORE_-prefixed comma-separated
// env var override (viper splits the latter automatically via AutomaticEnv).
func GetStringSlice(key string) []string {
	if v == nil {
		return nil
	}
	return v.GetStringSlice(key)
}

func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// ConfigFileUsed returns the path of the config.toml actually loaded, or ""
// if none was found and only built-in defaults/env vars are in effect.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// LockTimeout is the statement-level lock wait before a LOCK_TIMEOUT error
// (spec.md §5/§7), sourced from engine.lock_timeout.
func LockTimeout() time.Duration {
	d, err := time.ParseDuration(GetString("engine.lock_timeout"))
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// MaxColumns is the hard cap on live attributes per relation (spec.md's
// MaxAttrNumber / "ADD COLUMN past the column limit" edge case).
func MaxColumns() int {
	n := GetInt("engine.max_columns")
	if n <= 0 {
		return 1600
	}
	return n
}
