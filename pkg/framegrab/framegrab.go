package framegrab

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/root4loot/goutils/log"
)

const Version = "0.1.0"

const (
	DefaultTargetURL  = "http://localhost:5173/glb"
	DefaultMarker     = "#done"
	DefaultOutputPath = "screenshot.jpg"
)

// Options contains the options for a capture.
type Options struct {
	Backend        string           // Automation engine, see Backends()
	Headless       bool             // Run the browser without a window
	CaptureWidth   int              // Viewport width
	CaptureHeight  int              // Viewport height
	MarkerSelector string           // Element whose appearance marks the page as rendered
	MarkerTimeout  time.Duration    // Max wait for the marker
	Screenshot     ScreenshotParams // Encoding of the captured image
	OutputPath     string           // File the image is written to
}

// NewOptions returns an Options struct initialized with default values.
func NewOptions() Options {
	return Options{
		Backend:        BackendChromedp,
		Headless:       true,
		CaptureWidth:   800,
		CaptureHeight:  600,
		MarkerSelector: DefaultMarker,
		MarkerTimeout:  30 * time.Second,
		Screenshot: ScreenshotParams{
			Format:   FormatJPEG,
			Quality:  75,
			FullPage: true,
		},
		OutputPath: DefaultOutputPath,
	}
}

// Grabber runs the capture sequence against one Browser.
type Grabber struct {
	Options Options
	Browser Browser
}

// Result contains the result of a screenshot capture.
type Result struct {
	TargetURL string
	Image     []byte
}

// NewGrabber creates a Grabber using the backend named in options.
func NewGrabber(options Options) (*Grabber, error) {
	browser, err := NewBrowser(options)
	if err != nil {
		return nil, err
	}
	return NewGrabberWithBrowser(options, browser), nil
}

// NewGrabberWithBrowser creates a Grabber driving the given Browser.
func NewGrabberWithBrowser(options Options, browser Browser) *Grabber {
	return &Grabber{Options: options, Browser: browser}
}

// Capture launches the browser, loads targetURL, waits for the readiness marker and
// returns the encoded screenshot. The browser is closed before Capture returns.
func (g *Grabber) Capture(ctx context.Context, targetURL string) (*Result, error) {
	log.Debugf("Launching browser for %s", targetURL)
	if err := g.Browser.Launch(ctx); err != nil {
		g.closeBrowser()
		return nil, stepError(ErrLaunch, "launch browser", err)
	}
	defer g.closeBrowser()

	page, err := g.Browser.NewPage(ctx)
	if err != nil {
		return nil, stepError(ErrSession, "open page", err)
	}

	log.Debugf("Navigating to %s", targetURL)
	if err := page.Navigate(ctx, targetURL); err != nil {
		return nil, stepError(ErrNavigation, "navigate to "+targetURL, err)
	}

	if err := g.waitForMarker(ctx, page); err != nil {
		return nil, err
	}

	image, err := page.CaptureScreenshot(ctx, g.Options.Screenshot)
	if err != nil {
		return nil, stepError(ErrCapture, "capture screenshot", err)
	}
	if len(image) == 0 {
		return nil, stepError(ErrCapture, "capture screenshot", errors.New("empty image"))
	}

	return &Result{TargetURL: targetURL, Image: image}, nil
}

func (g *Grabber) waitForMarker(ctx context.Context, page Page) error {
	selector := g.Options.MarkerSelector
	if selector == "" {
		selector = DefaultMarker
	}

	waitCtx := ctx
	if g.Options.MarkerTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.Options.MarkerTimeout)
		defer cancel()
	}

	log.Debugf("Waiting for %s (timeout %v)", selector, g.Options.MarkerTimeout)
	err := page.WaitForMarker(waitCtx, selector)
	if err == nil {
		return nil
	}
	if !isTimeoutError(err) {
		log.Debugf("Wait for %s ended before the deadline: %v", selector, err)
	}
	return stepError(ErrTimeout, "wait for "+selector, err)
}

func (g *Grabber) closeBrowser() {
	if err := g.Browser.Close(); err != nil {
		log.Warnf("Could not close browser: %v", err)
	}
}

// Save writes the image to path, replacing any existing file. The parent
// directory must already exist.
func (result Result) Save(path string) error {
	if len(result.Image) == 0 {
		return stepError(ErrIO, "write "+path, errors.New("no image data"))
	}
	if err := os.WriteFile(path, result.Image, 0644); err != nil {
		return stepError(ErrIO, "write "+path, err)
	}
	return nil
}
