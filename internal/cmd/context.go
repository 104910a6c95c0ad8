package cmd

import (
	"io"

	"github.com/jimezsa/jobmine/internal/browser"
	"github.com/jimezsa/jobmine/internal/config"
	"github.com/jimezsa/jobmine/internal/ui"
	"github.com/rs/zerolog"
)

// LaunchFunc starts the browser used for portal sessions.
type LaunchFunc func(cfg config.Config, proxies browser.ProxySource, logger zerolog.Logger) (browser.Launcher, error)

type Context struct {
	Out        io.Writer
	Err        io.Writer
	UI         *ui.UI
	Config     config.Config
	ConfigDir  string
	Logger     zerolog.Logger
	Launch     LaunchFunc
	Verbose    bool
	JSONOutput bool
	PlainText  bool
	Version    string
	ColorMode  ui.ColorMode
}

// PlaywrightLauncher launches the configured browser through playwright.
func PlaywrightLauncher(cfg config.Config, proxies browser.ProxySource, logger zerolog.Logger) (browser.Launcher, error) {
	return browser.NewPlaywright(browser.LaunchOptions{
		Browser:  cfg.Browser,
		Headless: cfg.Headless,
		Timeout:  cfg.WaitTimeout(),
		Proxies:  proxies,
		Logger:   logger,
	})
}
