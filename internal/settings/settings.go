// Package settings loads wslrun's own runtime settings from WSLRUN_*
// environment variables. These tune logging and the launch backend; they
// never take part in choosing the distribution.
package settings

import (
	"fmt"
	"strings"

	"wslrun/internal/launcher"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read here.
const EnvPrefix = "WSLRUN"

// Settings are the runtime settings of one invocation.
type Settings struct {
	LogLevel  log.Level
	Backend   launcher.Backend
	ClearPath bool   // empty PATH before launching (Windows build 20175 workaround)
	AuditLog  string // JSON-lines launch audit file; empty disables it
}

// Defaults returns the settings used when no variable is set.
func Defaults() Settings {
	return Settings{
		LogLevel: log.WarnLevel,
		Backend:  launcher.BackendWSLAPI,
	}
}

// Load reads settings through lookup, which is normally os.LookupEnv.
// A nil lookup uses the process environment.
func Load(lookup func(string) (string, bool)) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)

	defaults := Defaults()
	v.SetDefault("log_level", defaults.LogLevel.String())
	v.SetDefault("backend", string(defaults.Backend))
	v.SetDefault("clear_path", defaults.ClearPath)
	v.SetDefault("audit_log", defaults.AuditLog)

	for _, key := range []string{"log_level", "backend", "clear_path", "audit_log"} {
		env := EnvPrefix + "_" + strings.ToUpper(key)
		if lookup == nil {
			if err := v.BindEnv(key, env); err != nil {
				return Settings{}, fmt.Errorf("bind %s: %w", env, err)
			}
			continue
		}
		if val, ok := lookup(env); ok {
			v.Set(key, val)
		}
	}

	s := Settings{
		ClearPath: v.GetBool("clear_path"),
		AuditLog:  v.GetString("audit_log"),
	}

	level, err := log.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return Settings{}, fmt.Errorf("%s_LOG_LEVEL: %w", EnvPrefix, err)
	}
	s.LogLevel = level

	backend, err := launcher.ParseBackend(v.GetString("backend"))
	if err != nil {
		return Settings{}, fmt.Errorf("%s_BACKEND: %w", EnvPrefix, err)
	}
	s.Backend = backend

	return s, nil
}
