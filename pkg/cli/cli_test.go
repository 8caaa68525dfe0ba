package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/recognizer/pkg/config"
	"github.com/devicelab-dev/recognizer/pkg/core"
	"github.com/devicelab-dev/recognizer/pkg/logger"
)

const shopHTML = `<html><head><title>Shop - Home</title></head><body>
<h1>Shop</h1>
<iframe name="content" src="content.html"></iframe>
<iframe name="empty"></iframe>
</body></html>`

const contentHTML = `<html><body><form>
<input type="text" name="user">
<input type="submit" value="Sign in">
</form></body></html>`

const appYAML = `
windows:
  Shop:
    recognition: "Type=Window;Caption={Shop*}"
    components:
      Submit: 'Type=HTMLFrame;name=content;\;Type=PushButton;text=Sign in'
      User: 'Type=HTMLFrame;name=content;\;Type=EditBox;name=user'
      Ghost: 'Type=HTMLFrame;name=content;\;Type=PushButton;text=Missing'
`

func TestMain(m *testing.M) {
	home, err := os.MkdirTemp("", "recognizer-home")
	if err != nil {
		panic(err)
	}
	os.Setenv("RECOGNIZER_HOME", home)
	config.ResetHome()

	code := m.Run()
	os.RemoveAll(home)
	os.Exit(code)
}

// workspace writes the pages and app map and returns the mock driver args.
func workspace(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"shop.html":    shopHTML,
		"content.html": contentHTML,
		"app.yaml":     appYAML,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return []string{
		"--driver", "mock",
		"--page", filepath.Join(dir, "shop.html"),
		"--app-map", filepath.Join(dir, "app.yaml"),
	}
}

// run executes the app and returns what the command printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	old := output
	output = &buf
	defer func() { output = old }()

	err := NewApp().Run(append([]string{"recognizer"}, args...))
	return buf.String(), err
}

func TestGlobalFlags(t *testing.T) {
	names := make(map[string]bool)
	for _, f := range GlobalFlags {
		for _, n := range f.Names() {
			names[n] = true
		}
	}
	for _, want := range []string{"config", "driver", "debugger-url", "app-map", "verbose", "log-file", "json"} {
		if !names[want] {
			t.Errorf("expected flag %q to be defined", want)
		}
	}
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "parse", `Type=HTMLFrame;name=content;\;Type=PushButton;text=Sign in`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "1. Type=HTMLFrame;name=content\n2. Type=PushButton;text=Sign in\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestParseCommand_JSON(t *testing.T) {
	out, err := run(t, "--json", "parse", `ISDYNAMIC;RECOGNITION=Type=HTMLLink;text=Help`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got struct {
		Dynamic  bool            `json:"dynamic"`
		Segments []parsedSegment `json:"segments"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if !got.Dynamic {
		t.Error("expected dynamic")
	}
	if len(got.Segments) != 1 || got.Segments[0].Type != "HTMLLink" || got.Segments[0].Criteria["text"] != "Help" {
		t.Errorf("unexpected segments %+v", got.Segments)
	}
}

func TestParseCommand_Malformed(t *testing.T) {
	_, err := run(t, "parse", "Type=PushButton;justtext")
	if !errors.Is(err, core.ErrMalformedRecognition) {
		t.Errorf("expected malformed recognition, got %v", err)
	}
}

func TestParseCommand_NoArgs(t *testing.T) {
	if _, err := run(t, "parse"); err == nil {
		t.Error("expected error when no recognition string is given")
	}
}

func TestResolveCommand(t *testing.T) {
	args := append(workspace(t), "resolve", "--timeout", "0", "Shop", "Submit")
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "//HTML/BODY/IFRAME[1]/HTML/BODY/FORM/INPUT[2]\n"
	if out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestResolveCommand_Window(t *testing.T) {
	args := append(workspace(t), "--json", "resolve", "--timeout", "0", "Shop")
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got struct {
		Locator core.ElementLocator `json:"locator"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.Locator.Path != "//HTML[1]" || got.Locator.WindowID != "w1" {
		t.Errorf("unexpected window locator %+v", got.Locator)
	}
}

func TestResolveCommand_NotFound(t *testing.T) {
	args := append(workspace(t), "resolve", "--timeout", "0", "Shop", "Ghost")
	_, err := run(t, args...)
	if !errors.Is(err, core.ErrObjectNotFound) {
		t.Errorf("expected object not found, got %v", err)
	}
}

func TestResolveCommand_NoAppMap(t *testing.T) {
	_, err := run(t, "--driver", "mock", "resolve", "Shop", "Submit")
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected invalid config, got %v", err)
	}
}

func TestAttrCommand(t *testing.T) {
	args := append(workspace(t), "attr", "--timeout", "0", "Shop", "User", "name")
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "user\n" {
		t.Errorf("expected user, got %q", out)
	}
}

func TestLocatorsCommand(t *testing.T) {
	args := append(workspace(t), "--json", "locators", "iframe")
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	want := []string{"//HTML/BODY/IFRAME[1]", "//HTML/BODY/IFRAME[2]"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestWindowsCommand(t *testing.T) {
	out, err := run(t, append(workspace(t), "windows")...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "w1\tShop - Home\tfile://") {
		t.Errorf("unexpected window listing %q", out)
	}
}

func TestMockDriver_NeedsPage(t *testing.T) {
	_, err := run(t, "--driver", "mock", "windows")
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected invalid config, got %v", err)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "driver: rod\nstrategy: exact\ntimeout: 3s\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	var got *config.Config
	app := &cli.App{
		Name:  "test-app",
		Flags: GlobalFlags,
		Action: func(c *cli.Context) error {
			var err error
			got, err = loadConfig(c)
			return err
		},
	}
	if err := app.Run([]string{"test-app", "--config", path, "--driver", "mock", "--verbose"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Driver != config.DriverMock {
		t.Errorf("expected flag to override driver, got %s", got.Driver)
	}
	if got.Strategy != "exact" || got.Timeout.String() != "3s" {
		t.Errorf("expected file values to survive, got %+v", got)
	}
	if !got.Verbose {
		t.Error("expected verbose from flag")
	}
}

func TestInitLogging_DefaultFile(t *testing.T) {
	cfg := config.Defaults()
	closeLog := initLogging(cfg)
	logger.Info("default destination")
	closeLog()

	data, err := os.ReadFile(config.DefaultLogFile())
	if err != nil {
		t.Fatalf("expected the default log file, got %v", err)
	}
	if !strings.Contains(string(data), "default destination") {
		t.Errorf("expected the message in %s, got %q", config.DefaultLogFile(), data)
	}
}

func TestInitLogging_Off(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RECOGNIZER_HOME", dir)
	config.ResetHome()
	defer config.ResetHome()

	cfg := config.Defaults()
	cfg.LogFile = config.LogOff
	initLogging(cfg)()

	if _, err := os.Stat(filepath.Join(dir, "logs")); !os.IsNotExist(err) {
		t.Errorf("expected no log directory when logging is off, got %v", err)
	}
}

func TestLoadConfig_InvalidDriver(t *testing.T) {
	app := &cli.App{
		Name:   "test-app",
		Flags:  GlobalFlags,
		Action: func(c *cli.Context) error { _, err := loadConfig(c); return err },
	}
	err := app.Run([]string{"test-app", "--driver", "selenium"})
	if !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected invalid config, got %v", err)
	}
}

func TestSessionFactory_Injected(t *testing.T) {
	old := sessionFactory
	defer func() { sessionFactory = old }()

	called := false
	sessionFactory = func(ctx context.Context, cfg *config.Config, pages []string) (core.BrowserSession, func(), error) {
		called = true
		return nil, nil, core.ErrSessionUnavailable.WithMessage("no browser here")
	}

	_, err := run(t, "windows")
	if !called {
		t.Error("expected the session factory to be used")
	}
	if !errors.Is(err, core.ErrSessionUnavailable) {
		t.Errorf("expected session unavailable, got %v", err)
	}
}
