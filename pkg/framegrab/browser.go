package framegrab

import "context"

// Browser is the part of a browser-automation engine the capture flow needs.
// Close must be safe to call after a failed or partial Launch.
type Browser interface {
	Launch(ctx context.Context) error
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab inside a launched Browser.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// WaitForMarker blocks until an element matching selector exists in the DOM or ctx is done.
	WaitForMarker(ctx context.Context, selector string) error
	CaptureScreenshot(ctx context.Context, params ScreenshotParams) ([]byte, error)
}

type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
)

// ScreenshotParams describes how the rendered surface is encoded.
type ScreenshotParams struct {
	Format   ImageFormat
	Quality  int  // 0-100, ignored for PNG
	FullPage bool // capture the whole scrollable area instead of the viewport
}
