package shim

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"wslrun/internal/audit"
	"wslrun/internal/distro"
	"wslrun/internal/failure"
	"wslrun/internal/launcher"
	"wslrun/internal/settings"
	"wslrun/pkg/protocol"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const ubuntuGUID = "{0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0}"

// fakeLauncher records launch requests and answers with a fixed result.
type fakeLauncher struct {
	requests []protocol.Request
	exitCode uint32
	hresult  protocol.HRESULT
	closed   bool
}

func (f *fakeLauncher) Launch(_ context.Context, req protocol.Request) (uint32, error) {
	f.requests = append(f.requests, req)
	if f.hresult.Failed() {
		return 0, &protocol.LaunchError{HRESULT: f.hresult}
	}
	return f.exitCode, nil
}

func (f *fakeLauncher) Close() error {
	f.closed = true
	return nil
}

type harness struct {
	dir      string
	exe      string
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	settings settings.Settings
	registry distro.Registry
	launcher *fakeLauncher
	openErr  error
	setenv   map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	exe := filepath.Join(dir, "wslrun.exe")
	require.NoError(t, os.WriteFile(exe, []byte("wslrun binary"), 0755))

	s := settings.Defaults()
	s.LogLevel = log.DebugLevel
	return &harness{
		dir:      dir,
		exe:      exe,
		settings: s,
		launcher: &fakeLauncher{},
		setenv:   make(map[string]string),
	}
}

func ubuntuRegistry() *distro.MemoryRegistry {
	reg := distro.NewMemoryRegistry()
	reg.Set(distro.LxssKeyPath, distro.DefaultDistributionValue, ubuntuGUID)
	reg.Set(distro.LxssKeyPath+`\`+ubuntuGUID, distro.DistributionNameValue, "Ubuntu")
	return reg
}

func (h *harness) writeConfig(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, distro.ConfigFileName), []byte(content), 0644))
}

func (h *harness) run(commandLine string) int {
	return RunWith(context.Background(), Env{
		CommandLine: commandLine,
		Executable:  h.exe,
		Stdout:      &h.stdout,
		Stderr:      &h.stderr,
		Settings:    h.settings,
		Registry:    h.registry,
		OpenLauncher: func(launcher.Backend, *log.Logger) (launcher.Launcher, error) {
			if h.openErr != nil {
				return nil, h.openErr
			}
			return h.launcher, nil
		},
		Setenv: func(key, value string) error {
			h.setenv[key] = value
			return nil
		},
	})
}

func (h *harness) entries(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

type scenario struct {
	Name              string   `yaml:"name"`
	CommandLine       string   `yaml:"command_line"`
	Config            *string  `yaml:"config"`
	Registry          bool     `yaml:"registry"`
	Existing          []string `yaml:"existing"`
	CapabilityMissing bool     `yaml:"capability_missing"`
	InnerExit         uint32   `yaml:"inner_exit"`
	LaunchHRESULT     uint32   `yaml:"launch_hresult"`

	WantExit         int      `yaml:"want_exit"`
	WantStdout       *string  `yaml:"want_stdout"`
	WantStdoutPrefix string   `yaml:"want_stdout_prefix"`
	WantCommand      *string  `yaml:"want_command"`
	WantDistribution string   `yaml:"want_distribution"`
	WantLaunches     *int     `yaml:"want_launches"`
	WantFiles        []string `yaml:"want_files"`
}

func loadScenarios(t *testing.T) []scenario {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "scenarios.yaml"))
	require.NoError(t, err)

	var scenarios []scenario
	require.NoError(t, yaml.Unmarshal(data, &scenarios))
	require.NotEmpty(t, scenarios)
	return scenarios
}

func TestScenarios(t *testing.T) {
	for _, sc := range loadScenarios(t) {
		t.Run(sc.Name, func(t *testing.T) {
			h := newHarness(t)
			if sc.Config != nil {
				h.writeConfig(t, *sc.Config)
			}
			if sc.Registry {
				h.registry = ubuntuRegistry()
			}
			for _, name := range sc.Existing {
				require.NoError(t, os.WriteFile(filepath.Join(h.dir, name), []byte("other"), 0644))
			}
			if sc.CapabilityMissing {
				h.openErr = failure.New(failure.KindCapabilityUnavailable, failure.SiteCapabilityLoad,
					"Could not load %s", launcher.DLLName)
			}
			h.launcher.exitCode = sc.InnerExit
			h.launcher.hresult = protocol.HRESULT(sc.LaunchHRESULT)

			code := h.run(sc.CommandLine)

			assert.Equal(t, sc.WantExit, code, "stderr:\n%s", h.stderr.String())
			if sc.WantStdout != nil {
				assert.Equal(t, *sc.WantStdout, h.stdout.String())
			}
			if sc.WantStdoutPrefix != "" {
				assert.True(t, strings.HasPrefix(h.stdout.String(), sc.WantStdoutPrefix),
					"stdout %q lacks prefix %q", h.stdout.String(), sc.WantStdoutPrefix)
				assert.Equal(t, 1, strings.Count(h.stdout.String(), "\n"), "want exactly one line")
			}
			if sc.WantLaunches != nil {
				assert.Len(t, h.launcher.requests, *sc.WantLaunches)
			}
			if sc.WantCommand != nil {
				require.Len(t, h.launcher.requests, 1)
				req := h.launcher.requests[0]
				assert.Equal(t, *sc.WantCommand, req.Command)
				assert.True(t, req.UseCurrentDirectory)
				if sc.WantDistribution != "" {
					assert.Equal(t, sc.WantDistribution, req.Distribution)
				}
			}
			if sc.WantFiles != nil {
				want := append([]string{}, sc.WantFiles...)
				sort.Strings(want)
				assert.Equal(t, want, h.entries(t))
			}
		})
	}
}

func TestDelegatedCommandIsNameSpaceArgs(t *testing.T) {
	names := []string{"ls", "git", "python3", "x", "wslrun2", "my-tool"}
	for _, name := range names {
		for _, args := range []string{"", "-v", "a  b ", `"quoted arg"`, "\t"} {
			h := newHarness(t)
			h.registry = ubuntuRegistry()

			cmdline := `C:\bin\` + name + ".exe"
			if args != "" {
				cmdline += " " + args
			}
			require.Equal(t, 0, h.run(cmdline))
			require.Len(t, h.launcher.requests, 1)
			assert.Equal(t, name+" "+args, h.launcher.requests[0].Command, "command line %q", cmdline)
		}
	}
}

func TestLauncherIsClosed(t *testing.T) {
	for _, cmdline := range []string{"ls", "wslrun", "wslrun --link foo"} {
		h := newHarness(t)
		h.registry = ubuntuRegistry()

		h.run(cmdline)
		assert.True(t, h.launcher.closed, "launcher left open for %q", cmdline)
	}
}

func TestResolveFailureDoesNotLaunch(t *testing.T) {
	h := newHarness(t)
	h.writeConfig(t, "[config]\nother=Debian\n")
	h.registry = ubuntuRegistry()

	assert.Equal(t, protocol.ExitFailure, h.run("ls"))
	assert.Empty(t, h.launcher.requests)
	assert.Equal(t, "Could not load config file.\n", h.stdout.String())
}

func TestClearPathSetting(t *testing.T) {
	h := newHarness(t)
	h.registry = ubuntuRegistry()
	h.settings.ClearPath = true

	require.Equal(t, 0, h.run("ls"))
	value, ok := h.setenv["PATH"]
	assert.True(t, ok, "PATH was not cleared")
	assert.Empty(t, value)

	h = newHarness(t)
	h.registry = ubuntuRegistry()
	require.Equal(t, 0, h.run("ls"))
	assert.Empty(t, h.setenv)
}

func TestAuditLogRecordsDelegatedLaunches(t *testing.T) {
	h := newHarness(t)
	h.registry = ubuntuRegistry()
	h.settings.AuditLog = filepath.Join(t.TempDir(), "audit.jsonl")
	h.launcher.exitCode = 3

	require.Equal(t, 3, h.run("cargo build"))
	h.writeConfig(t, "[config]\n")
	require.Equal(t, protocol.ExitFailure, h.run("cargo test"))
	require.Equal(t, protocol.ExitFailure, h.run("wslrun"))

	entries, err := audit.Read(h.settings.AuditLog)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "cargo build", entries[0].Command)
	assert.Equal(t, "Ubuntu", entries[0].Distribution)
	assert.Equal(t, string(distro.SourceRegistry), entries[0].Source)
	assert.Equal(t, 3, entries[0].ExitCode)

	assert.Equal(t, "cargo test", entries[1].Command)
	assert.Equal(t, string(distro.SourceConfig), entries[1].Source)
	assert.Equal(t, protocol.ExitFailure, entries[1].ExitCode)
	assert.Equal(t, "Could not load config file.", entries[1].Error)
}

func TestCauseGoesToDebugLog(t *testing.T) {
	h := newHarness(t)
	h.writeConfig(t, "[config]\n")

	h.run("ls")
	assert.Equal(t, "Could not load config file.\n", h.stdout.String())

	h = newHarness(t)
	h.launcher.hresult = protocol.E_FAIL
	h.registry = ubuntuRegistry()
	h.run("ls")
	assert.Contains(t, h.stderr.String(), "launch returned HRESULT 80004005")
}

func TestVirtualBackendEndToEnd(t *testing.T) {
	tests := []struct {
		cmdline    string
		wantCode   int
		wantStdout string
	}{
		{`C:\links\exit.exe 2`, 2, ""},
		{`C:\links\echo.exe hello  from wsl`, 0, "hello from wsl\n"},
		{`C:\links\true.exe`, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.cmdline, func(t *testing.T) {
			h := newHarness(t)
			h.registry = ubuntuRegistry()
			h.settings.Backend = launcher.BackendVirtual

			var inner bytes.Buffer
			code := RunWith(context.Background(), Env{
				CommandLine: tt.cmdline,
				Executable:  h.exe,
				Stdout:      &h.stdout,
				Stderr:      &h.stderr,
				Settings:    h.settings,
				Registry:    h.registry,
				OpenLauncher: func(b launcher.Backend, logger *log.Logger) (launcher.Launcher, error) {
					require.Equal(t, launcher.BackendVirtual, b)
					return launcher.NewVirtualLauncher(strings.NewReader(""), &inner, &bytes.Buffer{}, logger), nil
				},
			})

			assert.Equal(t, tt.wantCode, code, "stderr:\n%s", h.stderr.String())
			assert.Equal(t, tt.wantStdout, inner.String())
			assert.Empty(t, h.stdout.String())
		})
	}
}

func TestLinkedNameLaunchesThroughLink(t *testing.T) {
	h := newHarness(t)
	h.registry = ubuntuRegistry()

	require.Equal(t, 0, h.run("wslrun --link htop"))
	linkPath := filepath.Join(h.dir, "htop.exe")
	require.FileExists(t, linkPath)

	require.Equal(t, 0, h.run(`"`+linkPath+`" -d 10`))
	require.Len(t, h.launcher.requests, 1)
	assert.Equal(t, "htop -d 10", h.launcher.requests[0].Command)
}

func TestLinkStaysInInstallDirectory(t *testing.T) {
	h := newHarness(t)
	bin := filepath.Join(h.dir, "bin")
	require.NoError(t, os.Mkdir(bin, 0755))
	h.exe = filepath.Join(bin, "wslrun.exe")
	require.NoError(t, os.WriteFile(h.exe, []byte("wslrun binary"), 0755))

	assert.Equal(t, protocol.ExitFailure, h.run("wslrun --link ../evil"))
	assert.Equal(t, "Invalid link name: ../evil\n", h.stdout.String())
	assert.NoFileExists(t, filepath.Join(h.dir, "evil.exe"))
	assert.Equal(t, []string{"bin"}, h.entries(t))
}

func TestLoadSettingsFallsBackWithWarning(t *testing.T) {
	var stderr bytes.Buffer
	logger := newLogger(&stderr, settings.Defaults().LogLevel)

	got := loadSettings(func(key string) (string, bool) {
		if key == "WSLRUN_LOG_LEVEL" {
			return "loud", true
		}
		return "", false
	}, logger)

	assert.Equal(t, settings.Defaults(), got)
	assert.Contains(t, stderr.String(), "using default settings")
	assert.Contains(t, stderr.String(), "WSLRUN_LOG_LEVEL")
}

func TestReportPrintsOneLine(t *testing.T) {
	var out bytes.Buffer
	logger := log.NewWithOptions(&bytes.Buffer{}, log.Options{Level: log.DebugLevel})

	code := report(&out, logger, failure.Wrap(errors.New("access denied"),
		failure.KindRegistryUnavailable, failure.SiteRegistryOpen, "Failed to open Lxss registry."))
	assert.Equal(t, protocol.ExitFailure, code)
	assert.Equal(t, "Failed to open Lxss registry.\n", out.String())
}
