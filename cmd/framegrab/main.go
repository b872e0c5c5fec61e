package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/root4loot/framegrab/pkg/framegrab"
	"github.com/root4loot/goutils/log"
)

const (
	author = "@danielantonsen"
	usage  = `USAGE:
  framegrab [options] [-u <url>]

INPUT:
  -u,  --url          page to capture                            (Default: http://localhost:5173/glb)

CONFIGURATIONS:
  -b,  --backend      browser automation backend (chromedp, rod) (Default: chromedp)

OUTPUT:
  -q,  --quiet        quiet output                               (not yet supported)
  -v,  --verbose      verbose output                             (not yet supported)
       --debug        enable debug mode
  -h,  --help         display this help
       --version      display version

The page is considered rendered once an element matching #done appears.
The capture is written to ./screenshot.jpg (JPEG, quality 75, full page).
`
)

type cli struct {
	TargetURL string
	Options   framegrab.Options
	Quiet     bool
	Verbose   bool
	Debug     bool
	Help      bool
	Version   bool
}

func newCLI() *cli {
	return &cli{
		TargetURL: framegrab.DefaultTargetURL,
		Options:   framegrab.NewOptions(),
	}
}

// newGrabber is swapped out in tests.
var newGrabber = framegrab.NewGrabber

func init() {
	log.Init("framegrab")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	cli := newCLI()
	cli.parseArgs(args)

	if cli.Help {
		fmt.Fprint(stdout, usage)
		return 0
	}

	if cli.Version {
		fmt.Fprintln(stdout, "framegrab", framegrab.Version, "by", author)
		return 0
	}

	if cli.Debug {
		log.SetLevel(log.DebugLevel)
	}

	fmt.Fprintf(stdout, "Using URL: %s\n", cli.TargetURL)

	err := cli.capture(ctx)
	if err != nil {
		handleCaptureError(cli.TargetURL, err)
		fmt.Fprintln(stdout, "Screenshot capture failed.")
		return framegrab.ExitCode(err)
	}

	fmt.Fprintln(stdout, "Screenshots successfully created.")
	return 0
}

func (cli *cli) capture(ctx context.Context) error {
	grabber, err := newGrabber(cli.Options)
	if err != nil {
		return err
	}

	result, err := grabber.Capture(ctx, cli.TargetURL)
	if err != nil {
		return err
	}

	if err := result.Save(cli.Options.OutputPath); err != nil {
		return err
	}

	log.Resultf("Screenshot saved to %s", cli.Options.OutputPath)
	return nil
}

func handleCaptureError(target string, err error) {
	switch {
	case errors.Is(err, framegrab.ErrConfig):
		log.Errorf("Invalid configuration: %v", err)
	case errors.Is(err, framegrab.ErrLaunch):
		log.Errorf("Could not launch a browser: %v", framegrab.RootCause(err))
	case errors.Is(err, framegrab.ErrTimeout):
		log.Errorf("Timed out waiting for the page at %s to become ready", target)
	case errors.Is(err, framegrab.ErrIO):
		log.Errorf("Error saving screenshot: %v", framegrab.RootCause(err))
	default:
		log.Errorf("Error capturing screenshot for %s: %v", target, err)
	}
	log.Debugf("Capture error chain: %v", err)
}
