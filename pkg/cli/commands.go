package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/recognizer/pkg/core"
	"github.com/devicelab-dev/recognizer/pkg/recognition"
)

// output is where commands print results. Replaced in tests.
var output io.Writer = os.Stdout

var timeoutFlag = &cli.DurationFlag{
	Name:    "timeout",
	Aliases: []string{"t"},
	Usage:   "Resolve timeout (0 = one attempt; default from config)",
	Value:   -1,
}

var parseCommand = &cli.Command{
	Name:      "parse",
	Usage:     "Print the segments of a recognition string",
	ArgsUsage: "<recognition-string>",
	Description: `Parse a recognition string without a browser.

Examples:
  recognizer parse 'Type=HTMLFrame;name=content;\;Type=PushButton;text=Sign in'
  recognizer --json parse 'ISDYNAMIC;RECOGNITION=Type=HTMLLink;text=Help'`,
	Action: runParse,
}

var resolveCommand = &cli.Command{
	Name:      "resolve",
	Usage:     "Resolve an app map component to a locator",
	ArgsUsage: "<window> <component>",
	Description: `Resolve a component of the app map on the live page. With only
<window>, the window itself is resolved.

Examples:
  recognizer --app-map app.yaml resolve Shop Submit
  recognizer --app-map app.yaml resolve --timeout 0 Shop Submit`,
	Flags:  []cli.Flag{timeoutFlag},
	Action: runResolve,
}

var attrCommand = &cli.Command{
	Name:      "attr",
	Usage:     "Resolve a component and print one of its attributes",
	ArgsUsage: "<window> <component> <attribute>",
	Flags:     []cli.Flag{timeoutFlag},
	Action:    runAttr,
}

var locatorsCommand = &cli.Command{
	Name:      "locators",
	Usage:     "Print the locator of every element with a tag on the current page",
	ArgsUsage: "<tag>",
	Action:    runLocators,
}

var windowsCommand = &cli.Command{
	Name:   "windows",
	Usage:  "List the open windows",
	Action: runWindows,
}

// parsedSegment is the printed form of one segment.
type parsedSegment struct {
	Type     string            `json:"type"`
	Criteria map[string]string `json:"criteria,omitempty"`
	Raw      string            `json:"raw"`
}

func runParse(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected one recognition string, got %d arguments", c.NArg())
	}
	rec, err := recognition.Parse(c.Args().First())
	if err != nil {
		return err
	}

	segments := make([]parsedSegment, 0, len(rec.Segments))
	for _, s := range rec.Segments {
		ps := parsedSegment{Type: s.Type, Raw: s.String()}
		if len(s.Criteria) > 0 {
			ps.Criteria = make(map[string]string, len(s.Criteria))
			for _, cr := range s.Criteria {
				ps.Criteria[cr.Name] = cr.Value
			}
		}
		segments = append(segments, ps)
	}

	if c.Bool("json") {
		return printJSON(map[string]interface{}{
			"dynamic":  rec.IsDynamic,
			"segments": segments,
		})
	}
	if rec.IsDynamic {
		fmt.Fprintln(output, "dynamic: true")
	}
	for i, s := range segments {
		fmt.Fprintf(output, "%d. %s\n", i+1, s.Raw)
	}
	return nil
}

func runResolve(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return fmt.Errorf("expected <window> [component], got %d arguments", c.NArg())
	}
	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx, c, true)
	if err != nil {
		return err
	}
	defer e.close()

	window, component := c.Args().Get(0), c.Args().Get(1)
	if component == "" {
		component = window
	}
	res, err := e.resolver.ResolveResult(ctx, window, component, timeout(c, e))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return printJSON(map[string]interface{}{
			"id":        res.ID,
			"window":    res.Window,
			"locator":   res.Locator,
			"attempts":  res.Attempts,
			"sleeps":    res.Sleeps,
			"fromCache": res.FromCache,
			"elapsed":   res.Elapsed.String(),
		})
	}
	fmt.Fprintln(output, res.Locator.Path)
	return nil
}

func runAttr(c *cli.Context) error {
	if c.NArg() != 3 {
		return fmt.Errorf("expected <window> <component> <attribute>, got %d arguments", c.NArg())
	}
	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx, c, true)
	if err != nil {
		return err
	}
	defer e.close()

	loc, err := e.resolver.Resolve(ctx, c.Args().Get(0), c.Args().Get(1), timeout(c, e))
	if err != nil {
		return err
	}
	name := c.Args().Get(2)
	value, ok, err := e.resolver.Attribute(ctx, loc, name)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrObjectNotFound.WithMessage(fmt.Sprintf("%s has no attribute %q", loc.Path, name))
	}

	if c.Bool("json") {
		return printJSON(map[string]string{"path": loc.Path, "name": name, "value": value})
	}
	fmt.Fprintln(output, value)
	return nil
}

func runLocators(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected one tag, got %d arguments", c.NArg())
	}
	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx, c, false)
	if err != nil {
		return err
	}
	defer e.close()

	paths, err := e.resolver.AllLocatorsForTag(ctx, c.Args().First())
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(paths)
	}
	for _, p := range paths {
		fmt.Fprintln(output, p)
	}
	return nil
}

func runWindows(c *cli.Context) error {
	ctx, stop := signalContext()
	defer stop()

	e, err := setup(ctx, c, false)
	if err != nil {
		return err
	}
	defer e.close()

	windows, err := e.session.AllWindows(ctx)
	if err != nil {
		return core.ErrSessionUnavailable.WithMessage("list windows").WithCause(err)
	}
	if c.Bool("json") {
		return printJSON(windows)
	}
	for _, w := range windows {
		fmt.Fprintf(output, "%s\t%s\t%s\n", w.ID, w.Title, w.URL)
	}
	return nil
}

// timeout returns the command's --timeout, or the configured default.
func timeout(c *cli.Context, e *env) time.Duration {
	if t := c.Duration("timeout"); t >= 0 {
		return t
	}
	return e.cfg.Timeout
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(output)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
