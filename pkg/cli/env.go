package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/recognizer/pkg/config"
	"github.com/devicelab-dev/recognizer/pkg/core"
	"github.com/devicelab-dev/recognizer/pkg/dom"
	"github.com/devicelab-dev/recognizer/pkg/logger"
	"github.com/devicelab-dev/recognizer/pkg/resolver"
	"github.com/devicelab-dev/recognizer/pkg/session/cdp"
	"github.com/devicelab-dev/recognizer/pkg/session/mock"
	"github.com/devicelab-dev/recognizer/pkg/session/rodpage"
)

// env is everything a browser-backed command needs.
type env struct {
	cfg      *config.Config
	session  core.BrowserSession
	resolver *resolver.Resolver
	closers  []func()
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// sessionFactory opens the browser session for cfg. Replaced in tests.
var sessionFactory = openSession

// loadConfig reads the config file and applies global flags over it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, core.ErrInvalidConfig.WithMessage("load config").WithCause(err)
	}

	if v := c.String("driver"); v != "" {
		cfg.Driver = v
	}
	if v := c.String("debugger-url"); v != "" {
		cfg.DebuggerURL = v
	}
	if v := c.String("app-map"); v != "" {
		cfg.AppMap = v
	}
	if v := c.String("strategy"); v != "" {
		cfg.Strategy = v
	}
	if v := c.String("log-file"); v != "" {
		cfg.LogFile = v
	}
	if c.Bool("verbose") {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogging routes the global logger according to cfg. An empty log file
// means <home>/logs/recognizer.log.
func initLogging(cfg *config.Config) func() {
	logger.SetVerbose(cfg.Verbose)
	path := cfg.LogFile
	if path == "" {
		path = config.DefaultLogFile()
	}
	switch path {
	case config.LogOff:
		return func() {}
	case "-":
		logger.InitWriter(os.Stderr)
	default:
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to create log directory: %v\n", err)
				return func() {}
			}
		}
		if err := logger.Init(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to initialize logger: %v\n", err)
			return func() {}
		}
	}
	return logger.Close
}

// setup loads config, logging, app map, and session, and wires a resolver.
// needMap requires an app map to be configured.
func setup(ctx context.Context, c *cli.Context, needMap bool) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg}
	e.closers = append(e.closers, initLogging(cfg))

	appMap := resolver.NewAppMap()
	if cfg.AppMap != "" {
		appMap, err = resolver.LoadAppMap(cfg.AppMap)
		if err != nil {
			e.close()
			return nil, err
		}
	} else if needMap {
		e.close()
		return nil, core.ErrInvalidConfig.WithMessage("no app map configured (use --app-map or appMap in config.yaml)")
	}

	sess, closeSession, err := sessionFactory(ctx, cfg, c.StringSlice("page"))
	if err != nil {
		e.close()
		return nil, err
	}
	e.session = sess
	e.closers = append(e.closers, closeSession)

	var fetcher dom.Fetcher = sess
	if cfg.FetchTimeout > 0 {
		fetcher = dom.FallbackFetcher{Primary: sess, Secondary: dom.NewHTTPFetcher(cfg.FetchTimeout)}
	}
	opts := resolver.Options{
		PollInterval:        cfg.PollInterval,
		WindowSwitchTimeout: cfg.WindowSwitchTimeout,
		Strategy:            cfg.MatchStrategy(),
	}
	if s, ok := sess.(*cdp.Session); ok {
		opts.Windows = cdp.WindowController{Session: s}
	}
	e.resolver = resolver.NewWithContext(sess, resolver.NewContext(fetcher), appMap, opts)
	logger.Info("driver=%s strategy=%s appMap=%s", cfg.Driver, cfg.Strategy, cfg.AppMap)
	return e, nil
}

func openSession(ctx context.Context, cfg *config.Config, pages []string) (core.BrowserSession, func(), error) {
	switch cfg.Driver {
	case config.DriverChromedp:
		s, err := cdp.New(ctx, cdp.Options{DebuggerURL: cfg.DebuggerURL, Headless: cfg.Headless, StartURL: cfg.StartURL})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverRod:
		s, err := rodpage.New(ctx, rodpage.Options{DebuggerURL: cfg.DebuggerURL, Headless: cfg.Headless, StartURL: cfg.StartURL})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.DriverMock:
		s, err := mockSession(pages)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return nil, nil, core.ErrInvalidConfig.WithMessage("unknown driver " + cfg.Driver)
	}
}

// mockSession serves HTML files from disk. Each listed page opens a window
// titled after its <title>; every .html file next to it is served too, so
// frames whose src names a sibling file can be entered.
func mockSession(pages []string) (*mock.Session, error) {
	if len(pages) == 0 {
		return nil, core.ErrInvalidConfig.WithMessage("the mock driver needs at least one --page")
	}

	s := mock.New(mock.Config{})
	loaded := make(map[string]string)
	load := func(path string) (string, error) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		u := "file://" + filepath.ToSlash(abs)
		if _, ok := loaded[u]; ok {
			return u, nil
		}
		raw, err := os.ReadFile(abs) //#nosec G304 -- user-provided page
		if err != nil {
			return "", err
		}
		markup, charset, err := dom.DecodeMarkup(raw)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", path, err)
		}
		logger.Debug("mock page %s (%s)", u, charset)
		s.SetPage(u, markup)
		loaded[u] = markup
		return u, nil
	}

	for i, p := range pages {
		u, err := load(p)
		if err != nil {
			return nil, core.ErrInvalidConfig.WithMessage("load page " + p).WithCause(err)
		}
		siblings, _ := filepath.Glob(filepath.Join(filepath.Dir(p), "*.htm*"))
		for _, sib := range siblings {
			if _, err := load(sib); err != nil {
				logger.Warn("skip %s: %v", sib, err)
			}
		}

		title := ""
		if doc, err := dom.Parse(u, loaded[u]); err == nil {
			title = doc.Title()
		}
		s.OpenWindow("w"+strconv.Itoa(i+1), strings.TrimSpace(title), u)
	}
	return s, nil
}
