package reporter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/mod/modfile"

	"github.com/ethereum-optimism/infra/op-reporter/flags"
	"github.com/ethereum-optimism/infra/op-reporter/reporting"
	"github.com/ethereum-optimism/infra/op-reporter/resolver"
	"github.com/ethereum-optimism/infra/op-reporter/screenshot"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// ReportsDirName is the directory created under the report root
const ReportsDirName = "Reports"

// Config holds the reporting session configuration
type Config struct {
	Name              string        // Session name, used for the report directory and as the fallback entry
	RootDir           string        // Directory under which Reports/<Name>/<timestamp>/ is created
	Mode              resolver.Mode // How steps are matched to entries
	ReportingOff      bool          // Write Output.txt and mirror to Console instead of rendering HTML
	Console           io.Writer     // Receives step lines when reporting is off
	AsyncFlush        bool          // Flush sinks on a background goroutine
	Settings          reporting.Settings
	ScreenshotTimeout time.Duration // Bound on a single screenshot capture
	ShowTable         bool          // Print a summary table to Console on Close
	OpenReport        bool          // Launch the report in the desktop viewer once written
	Clock             func() time.Time
	Log               log.Logger
}

// DefaultConfig returns a config that renders HTML under the working directory
func DefaultConfig(name string) *Config {
	return &Config{
		Name:              name,
		RootDir:           ".",
		Mode:              resolver.Sequential,
		Console:           os.Stdout,
		Settings:          reporting.DefaultSettings(),
		ScreenshotTimeout: screenshot.DefaultTimeout,
		Clock:             time.Now,
		Log:               log.Root(),
	}
}

// Validate checks the config and fills unset optional fields
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is required")
	}
	c.Name = types.SanitizeName(c.Name)
	if c.Name == "" {
		return errors.New("session name is required")
	}
	if strings.ContainsAny(c.Name, `/\`) {
		return fmt.Errorf("session name %q must not contain path separators", c.Name)
	}
	if c.RootDir == "" {
		c.RootDir = "."
	}
	if c.Mode != resolver.Sequential && c.Mode != resolver.Concurrent {
		return fmt.Errorf("invalid resolver mode: %s", c.Mode)
	}
	if c.ScreenshotTimeout < 0 {
		return fmt.Errorf("screenshot timeout must not be negative: %s", c.ScreenshotTimeout)
	}
	if c.ScreenshotTimeout == 0 {
		c.ScreenshotTimeout = screenshot.DefaultTimeout
	}
	if c.Console == nil {
		c.Console = io.Discard
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Log == nil {
		c.Log = log.Root()
	}
	c.Settings = reporting.DefaultSettings().Merge(c.Settings)
	return nil
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	rootDir, err := filepath.Abs(ctx.String(flags.ReportRoot.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for report root '%s': %w", ctx.String(flags.ReportRoot.Name), err)
	}

	mode, err := resolver.ParseMode(ctx.String(flags.Mode.Name))
	if err != nil {
		return nil, err
	}

	settings, err := reporting.LoadSettings(ctx.String(flags.Settings.Name))
	if err != nil {
		return nil, err
	}

	name := ctx.String(flags.Name.Name)
	modulePath, modErr := ModulePath(rootDir)
	if modErr != nil {
		log.Debug("No module found for report defaults", "dir", rootDir, "err", modErr)
	}
	if name == "" {
		name = path.Base(modulePath)
		if modulePath == "" {
			name = resolver.DefaultFallback
		}
	}
	if ctx.String(flags.Settings.Name) == "" && modulePath != "" {
		settings.Title = modulePath
	}

	cfg := &Config{
		Name:              name,
		RootDir:           rootDir,
		Mode:              mode,
		ReportingOff:      ctx.Bool(flags.ReportingOff.Name),
		Console:           os.Stdout,
		AsyncFlush:        ctx.Bool(flags.AsyncFlush.Name),
		Settings:          settings,
		ScreenshotTimeout: screenshot.DefaultTimeout,
		ShowTable:         ctx.Bool(flags.ShowTable.Name),
		OpenReport:        ctx.Bool(flags.OpenReport.Name),
		Clock:             time.Now,
		Log:               log,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ModulePath returns the module path declared by the nearest go.mod at or above dir
func ModulePath(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		gomod := filepath.Join(dir, "go.mod")
		data, err := os.ReadFile(gomod)
		if err == nil {
			modulePath := modfile.ModulePath(data)
			if modulePath == "" {
				return "", fmt.Errorf("no module directive in %s", gomod)
			}
			return modulePath, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to read %s: %w", gomod, err)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("no go.mod found")
		}
		dir = parent
	}
}
