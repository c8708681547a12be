// Package distro resolves which WSL distribution a launch targets.
//
// A wslrun.config file next to the binary wins. Only when that file does
// not exist is the user's default distribution read from the registry. A
// config file that exists but cannot be read never falls back.
package distro

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf16"

	"wslrun/internal/failure"

	"github.com/charmbracelet/log"
	"gopkg.in/ini.v1"
)

const (
	// ConfigFileName is the config file looked up beside the binary.
	ConfigFileName = "wslrun.config"
	// ConfigSection and ConfigKey locate the distribution in the config file.
	ConfigSection = "config"
	ConfigKey     = "distribution"

	// LxssKeyPath is the per-user WSL registry key, relative to HKCU.
	LxssKeyPath = `SOFTWARE\Microsoft\Windows\CurrentVersion\Lxss`
	// DefaultDistributionValue points at the subkey of the default distribution.
	DefaultDistributionValue = "DefaultDistribution"
	// DistributionNameValue holds the distribution name inside that subkey.
	DistributionNameValue = "DistributionName"

	// MaxValueLength is the longest value, in UTF-16 code units, that fits
	// the 128 character buffers used for every lookup.
	MaxValueLength = 127
)

// Source tells which provider produced a distribution.
type Source string

const (
	SourceConfig   Source = "config"
	SourceRegistry Source = "registry"
)

// Resolver resolves the target distribution for the binary at Executable.
type Resolver struct {
	Executable string
	Registry   Registry
	Logger     *log.Logger
}

// NewResolver creates a Resolver for the binary at executable.
func NewResolver(executable string, reg Registry, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(os.Stderr)
	}
	return &Resolver{
		Executable: executable,
		Registry:   reg,
		Logger:     logger.WithPrefix("distro"),
	}
}

// ConfigPath returns the config file location for the binary.
func (r *Resolver) ConfigPath() string {
	return filepath.Join(filepath.Dir(r.Executable), ConfigFileName)
}

// Resolve returns the distribution name and the provider it came from.
// Errors are *failure.Error values whose message is the line to print.
func (r *Resolver) Resolve() (string, Source, error) {
	path := r.ConfigPath()

	_, err := os.Stat(path)
	switch {
	case err == nil:
		name, err := r.fromConfig(path)
		return name, SourceConfig, err
	case errors.Is(err, fs.ErrNotExist):
		r.Logger.Debug("no config file, using registry", "path", path)
		name, err := r.fromRegistry()
		return name, SourceRegistry, err
	default:
		return "", SourceConfig, failure.Wrap(err, failure.KindConfigMalformed, failure.SiteConfigOpen,
			"Could not load config file.")
	}
}

func (r *Resolver) fromConfig(path string) (string, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:         true,
		IgnoreInlineComment: true,
	}, path)
	if err != nil {
		return "", failure.Wrap(fmt.Errorf("load %s: %w", path, err),
			failure.KindConfigMalformed, failure.SiteConfigOpen, "Could not load config file.")
	}

	section, err := cfg.GetSection(ConfigSection)
	if err != nil {
		return "", failure.Wrap(err, failure.KindConfigMalformed, failure.SiteConfigValue,
			"Could not load config file.")
	}
	if !section.HasKey(ConfigKey) {
		return "", failure.New(failure.KindConfigMalformed, failure.SiteConfigValue,
			"Could not load config file.")
	}

	name := section.Key(ConfigKey).String()
	if name == "" {
		return "", failure.New(failure.KindConfigMalformed, failure.SiteConfigValue,
			"Could not load config file.")
	}

	if utf16Len(name) > MaxValueLength {
		r.Logger.Warn("distribution name truncated", "path", path, "max", MaxValueLength)
		name = truncateUTF16(name, MaxValueLength)
	}

	r.Logger.Debug("distribution from config", "path", path, "distribution", name)
	return name, nil
}

func (r *Resolver) fromRegistry() (string, error) {
	if r.Registry == nil {
		return "", failure.New(failure.KindRegistryUnavailable, failure.SiteRegistryOpen,
			"Failed to open Lxss registry.")
	}

	lxss, err := r.Registry.OpenKey(LxssKeyPath)
	if err != nil {
		return "", failure.Wrap(err, failure.KindRegistryUnavailable, failure.SiteRegistryOpen,
			"Failed to open Lxss registry.")
	}
	defer lxss.Close()

	pointer, err := queryString(lxss, DefaultDistributionValue, failure.SiteDefaultQuery, failure.SiteDefaultType)
	if err != nil {
		return "", err
	}

	distribution, err := lxss.OpenSubKey(pointer)
	if err != nil {
		return "", failure.Wrap(err, failure.KindRegistryUnavailable, failure.SiteDistributionOpen,
			"Failed to open %s key", pointer)
	}
	defer distribution.Close()

	name, err := queryString(distribution, DistributionNameValue, failure.SiteNameQuery, failure.SiteNameType)
	if err != nil {
		return "", err
	}

	r.Logger.Debug("distribution from registry", "default", pointer, "distribution", name)
	return name, nil
}

// queryString reads a REG_SZ value, reporting missing or oversized values
// at querySite and non-string values at typeSite.
func queryString(k Key, name string, querySite, typeSite failure.Site) (string, error) {
	val, err := k.StringValue(name)
	if errors.Is(err, ErrNotString) {
		return "", failure.Wrap(err, failure.KindRegistryUnavailable, typeSite,
			"Error %s is not REG_SZ", name)
	}
	if err != nil {
		return "", failure.Wrap(err, failure.KindRegistryUnavailable, querySite,
			"Failed to query %s value", name)
	}
	if utf16Len(val) > MaxValueLength {
		return "", failure.Wrap(fmt.Errorf("%s is longer than %d characters", name, MaxValueLength),
			failure.KindRegistryUnavailable, querySite, "Failed to query %s value", name)
	}
	return val, nil
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

func truncateUTF16(s string, n int) string {
	units := utf16.Encode([]rune(s))
	if len(units) <= n {
		return s
	}
	units = units[:n]
	if utf16.IsSurrogate(rune(units[n-1])) && units[n-1] < 0xdc00 {
		units = units[:n-1]
	}
	return string(utf16.Decode(units))
}
