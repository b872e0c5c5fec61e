package framegrab

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/root4loot/goutils/log"
)

var errNoBrowserBinary = errors.New("couldn't find appropriate Chrome binary")

// ChromedpBrowser drives Chrome through chromedp.
type ChromedpBrowser struct {
	opts Options

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	tabCancels    []context.CancelFunc
}

type chromedpPage struct {
	ctx context.Context
}

func NewChromedpBrowser(opts Options) *ChromedpBrowser {
	return &ChromedpBrowser{opts: opts}
}

// GetCustomFlags returns the exec allocator options derived from the browser's Options.
func (b *ChromedpBrowser) GetCustomFlags() []chromedp.ExecAllocatorOption {
	customFlags := []chromedp.ExecAllocatorOption{
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	}

	if b.opts.CaptureWidth > 0 && b.opts.CaptureHeight > 0 {
		customFlags = append(customFlags, chromedp.WindowSize(b.opts.CaptureWidth, b.opts.CaptureHeight))
	}

	return customFlags
}

// Launch starts the browser process and attaches to its first tab.
func (b *ChromedpBrowser) Launch(ctx context.Context) error {
	path, found := launcher.LookPath()
	if !found {
		return errNoBrowserBinary
	}
	log.Debugf("Using browser binary %s", path)

	opts := append(chromedp.DefaultExecAllocatorOptions[:], b.GetCustomFlags()...)
	opts = append(opts, chromedp.ExecPath(path))

	// The browser outlives the launch call, so its contexts hang off Background.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	b.allocCancel = allocCancel
	b.browserCtx, b.browserCancel = chromedp.NewContext(allocCtx)

	// The first Run allocates the browser and binds it to the context it is given,
	// so it must not carry the caller's deadline. Cancelling ctx while the browser
	// starts still tears it down.
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, b.browserCancel)
	defer stop()

	if err := chromedp.Run(b.browserCtx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return err
	}
	return nil
}

// NewPage opens a new tab in the launched browser and applies the viewport.
func (b *ChromedpBrowser) NewPage(ctx context.Context) (Page, error) {
	if b.browserCtx == nil {
		return nil, errors.New("browser not launched")
	}

	tabCtx, tabCancel := chromedp.NewContext(b.browserCtx)
	b.tabCancels = append(b.tabCancels, tabCancel)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Creates the target.
	if err := chromedp.Run(tabCtx); err != nil {
		return nil, err
	}

	if b.opts.CaptureWidth > 0 && b.opts.CaptureHeight > 0 {
		viewport := chromedp.EmulateViewport(int64(b.opts.CaptureWidth), int64(b.opts.CaptureHeight))
		if err := runWithCaller(ctx, tabCtx, viewport); err != nil {
			return nil, err
		}
	}

	return &chromedpPage{ctx: tabCtx}, nil
}

// Close closes every tab and the browser, then stops the process. Safe to call more than once.
func (b *ChromedpBrowser) Close() error {
	for _, cancel := range b.tabCancels {
		cancel()
	}
	b.tabCancels = nil

	var err error
	if b.browserCtx != nil {
		if cerr := chromedp.Cancel(b.browserCtx); cerr != nil && !errors.Is(cerr, context.Canceled) {
			err = cerr
		}
		b.browserCancel()
		b.browserCtx, b.browserCancel = nil, nil
	}
	if b.allocCancel != nil {
		b.allocCancel()
		b.allocCancel = nil
	}
	return err
}

func (p *chromedpPage) Navigate(ctx context.Context, url string) error {
	return runWithCaller(ctx, p.ctx, chromedp.Navigate(url))
}

func (p *chromedpPage) WaitForMarker(ctx context.Context, selector string) error {
	return runWithCaller(ctx, p.ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (p *chromedpPage) CaptureScreenshot(ctx context.Context, params ScreenshotParams) ([]byte, error) {
	var buf []byte

	if params.FullPage {
		// FullScreenshot encodes PNG for quality 100 and JPEG otherwise.
		quality := params.Quality
		switch {
		case params.Format == FormatPNG:
			quality = 100
		case quality <= 0 || quality >= 100:
			quality = 99
		}
		if err := runWithCaller(ctx, p.ctx, chromedp.FullScreenshot(&buf, quality)); err != nil {
			return nil, err
		}
		return buf, nil
	}

	capture := chromedp.ActionFunc(func(ctx context.Context) error {
		req := page.CaptureScreenshot().WithFromSurface(true)
		if params.Format == FormatPNG {
			req = req.WithFormat(page.CaptureScreenshotFormatPng)
		} else {
			req = req.WithFormat(page.CaptureScreenshotFormatJpeg).WithQuality(int64(params.Quality))
		}

		var err error
		buf, err = req.Do(ctx)
		return err
	})
	if err := runWithCaller(ctx, p.ctx, capture); err != nil {
		return nil, err
	}
	return buf, nil
}

// runWithCaller runs actions on the chromedp context target while honoring the
// deadline and cancellation of the caller's ctx. Cancelling the derived context
// aborts the actions without closing the tab.
func runWithCaller(ctx, target context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(target)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}
