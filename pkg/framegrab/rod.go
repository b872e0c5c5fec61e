package framegrab

import (
	"context"
	"errors"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/root4loot/goutils/log"
	"github.com/ysmood/gson"
)

// RodBrowser drives Chrome through go-rod.
type RodBrowser struct {
	opts Options

	launcher    *launcher.Launcher
	controlURL  string
	userDataDir string
	browser     *rod.Browser
}

type rodPage struct {
	page *rod.Page
}

func NewRodBrowser(opts Options) *RodBrowser {
	return &RodBrowser{opts: opts}
}

// Launch starts the browser process. Connecting to it happens in NewPage.
func (b *RodBrowser) Launch(ctx context.Context) error {
	path, found := launcher.LookPath()
	if !found {
		return errNoBrowserBinary
	}
	log.Debugf("Using browser binary %s", path)

	b.launcher = launcher.New().
		Context(ctx).
		Bin(path).
		Headless(b.opts.Headless).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	controlURL, err := b.launcher.Launch()
	if err != nil {
		return err
	}
	b.controlURL = controlURL
	b.userDataDir = b.launcher.Get(flags.UserDataDir)
	return nil
}

// NewPage connects to the launched browser and opens a blank tab with the configured viewport.
func (b *RodBrowser) NewPage(ctx context.Context) (Page, error) {
	if b.controlURL == "" {
		return nil, errors.New("browser not launched")
	}

	if b.browser == nil {
		browser := rod.New().ControlURL(b.controlURL)
		if err := browser.Connect(); err != nil {
			return nil, err
		}
		b.browser = browser
	}

	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, err
	}
	// Detach from ctx so the page can be reused with per-call contexts.
	page = page.Context(context.Background())

	if b.opts.CaptureWidth > 0 && b.opts.CaptureHeight > 0 {
		viewport := &proto.EmulationSetDeviceMetricsOverride{
			Width:             b.opts.CaptureWidth,
			Height:            b.opts.CaptureHeight,
			DeviceScaleFactor: 1,
			Mobile:            false,
		}
		if err := page.Context(ctx).SetViewport(viewport); err != nil {
			return nil, err
		}
	}

	return &rodPage{page: page}, nil
}

// Close closes the browser connection, kills the launched process and removes its
// temporary profile. Safe to call more than once.
func (b *RodBrowser) Close() error {
	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.launcher != nil {
		b.launcher.Kill()
		// Cleanup waits for the process to exit, so only call it once one was started.
		if b.controlURL != "" {
			b.launcher.Cleanup()
		}
		b.launcher = nil
	}
	b.controlURL = ""
	b.userDataDir = ""
	return err
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	return p.page.Context(ctx).Navigate(url)
}

func (p *rodPage) WaitForMarker(ctx context.Context, selector string) error {
	_, err := p.page.Context(ctx).Element(selector)
	return err
}

func (p *rodPage) CaptureScreenshot(ctx context.Context, params ScreenshotParams) ([]byte, error) {
	req := &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
	if params.Format != FormatPNG {
		req = &proto.PageCaptureScreenshot{
			Format:  proto.PageCaptureScreenshotFormatJpeg,
			Quality: gson.Int(params.Quality),
		}
	}

	return p.page.Context(ctx).Screenshot(params.FullPage, req)
}
