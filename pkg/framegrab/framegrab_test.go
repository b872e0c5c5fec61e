package framegrab_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root4loot/framegrab/pkg/framegrab"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0xFF, 0xD9}

type fakeBrowser struct {
	launchErr  error
	pageErr    error
	navErr     error
	captureErr error
	image      []byte
	noMarker   bool

	launched   bool
	closed     int
	navigated  string
	waitedFor  string
	params     framegrab.ScreenshotParams
	hadTimeout bool
}

func (b *fakeBrowser) Launch(ctx context.Context) error {
	b.launched = true
	return b.launchErr
}

func (b *fakeBrowser) NewPage(ctx context.Context) (framegrab.Page, error) {
	if b.pageErr != nil {
		return nil, b.pageErr
	}
	return b, nil
}

func (b *fakeBrowser) Close() error {
	b.closed++
	return nil
}

func (b *fakeBrowser) Navigate(ctx context.Context, url string) error {
	b.navigated = url
	return b.navErr
}

func (b *fakeBrowser) WaitForMarker(ctx context.Context, selector string) error {
	b.waitedFor = selector
	_, b.hadTimeout = ctx.Deadline()
	if b.noMarker {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (b *fakeBrowser) CaptureScreenshot(ctx context.Context, params framegrab.ScreenshotParams) ([]byte, error) {
	b.params = params
	if b.captureErr != nil {
		return nil, b.captureErr
	}
	if b.image == nil {
		return jpegBytes, nil
	}
	return b.image, nil
}

func TestNewOptionsDefaults(t *testing.T) {
	opts := framegrab.NewOptions()

	assert.Equal(t, framegrab.BackendChromedp, opts.Backend)
	assert.Equal(t, "#done", opts.MarkerSelector)
	assert.Equal(t, "screenshot.jpg", opts.OutputPath)
	assert.Equal(t, framegrab.ScreenshotParams{Format: framegrab.FormatJPEG, Quality: 75, FullPage: true}, opts.Screenshot)
	assert.True(t, opts.Headless)
	assert.Positive(t, opts.MarkerTimeout)
}

func TestCaptureSuccess(t *testing.T) {
	browser := &fakeBrowser{}
	g := framegrab.NewGrabberWithBrowser(framegrab.NewOptions(), browser)

	result, err := g.Capture(context.Background(), "https://example.test")
	require.NoError(t, err)

	assert.Equal(t, "https://example.test", browser.navigated)
	assert.Equal(t, "#done", browser.waitedFor)
	assert.True(t, browser.hadTimeout, "marker wait should carry a deadline")
	assert.Equal(t, framegrab.FormatJPEG, browser.params.Format)
	assert.Equal(t, 75, browser.params.Quality)
	assert.True(t, browser.params.FullPage)
	assert.Equal(t, 1, browser.closed)

	assert.Equal(t, "https://example.test", result.TargetURL)
	assert.Equal(t, jpegBytes, result.Image)
}

func TestCaptureFailures(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name     string
		browser  *fakeBrowser
		kind     error
		exitCode int
	}{
		{"launch", &fakeBrowser{launchErr: boom}, framegrab.ErrLaunch, 3},
		{"session", &fakeBrowser{pageErr: boom}, framegrab.ErrSession, 4},
		{"navigation", &fakeBrowser{navErr: boom}, framegrab.ErrNavigation, 5},
		{"timeout", &fakeBrowser{noMarker: true}, framegrab.ErrTimeout, 6},
		{"capture", &fakeBrowser{captureErr: boom}, framegrab.ErrCapture, 7},
		{"empty image", &fakeBrowser{image: []byte{}}, framegrab.ErrCapture, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := framegrab.NewOptions()
			opts.MarkerTimeout = 20 * time.Millisecond
			g := framegrab.NewGrabberWithBrowser(opts, tt.browser)

			result, err := g.Capture(context.Background(), framegrab.DefaultTargetURL)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.exitCode, framegrab.ExitCode(err))
			assert.Equal(t, 1, tt.browser.closed, "browser must be closed on every path")

			var stepErr *framegrab.StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, tt.kind, stepErr.Kind)
		})
	}
}

func TestCaptureTimeoutWrapsDeadline(t *testing.T) {
	opts := framegrab.NewOptions()
	opts.MarkerTimeout = 10 * time.Millisecond
	g := framegrab.NewGrabberWithBrowser(opts, &fakeBrowser{noMarker: true})

	_, err := g.Capture(context.Background(), framegrab.DefaultTargetURL)

	assert.ErrorIs(t, err, framegrab.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, context.DeadlineExceeded, framegrab.RootCause(err))
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenshot.jpg")

	first := framegrab.Result{Image: []byte("first-longer-content")}
	require.NoError(t, first.Save(path))

	second := framegrab.Result{Image: jpegBytes}
	require.NoError(t, second.Save(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, jpegBytes, got)
}

func TestSaveMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	path := filepath.Join(dir, "screenshot.jpg")

	err := framegrab.Result{Image: jpegBytes}.Save(path)

	assert.ErrorIs(t, err, framegrab.ErrIO)
	assert.Equal(t, 8, framegrab.ExitCode(err))
	assert.NoDirExists(t, dir)
}

func TestSaveEmptyImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screenshot.jpg")

	err := framegrab.Result{}.Save(path)

	assert.ErrorIs(t, err, framegrab.ErrIO)
	assert.NoFileExists(t, path)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, framegrab.ExitCode(nil))
	assert.Equal(t, 1, framegrab.ExitCode(errors.New("other")))
	assert.Equal(t, 2, framegrab.ExitCode(&framegrab.StepError{Kind: framegrab.ErrConfig, Step: "parse", Err: errors.New("x")}))
}

func TestRootCause(t *testing.T) {
	cause := errors.New("net::ERR_CONNECTION_REFUSED")
	err := &framegrab.StepError{Kind: framegrab.ErrNavigation, Step: "navigate", Err: cause}

	assert.Equal(t, cause, framegrab.RootCause(err))
	assert.Nil(t, framegrab.RootCause(nil))
	assert.Equal(t, "navigation error: navigate: net::ERR_CONNECTION_REFUSED", err.Error())
}
