// Package display shows a rendered chart page in a browser window and waits
// for the viewer to close it.
package display

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// ErrNoDisplay indicates there is no screen to open a window on
var ErrNoDisplay = errors.New("no display available")

// Options controls the chart window
type Options struct {
	Width    int           // pixels
	Height   int           // pixels
	Timeout  time.Duration // 0 waits until the window is closed
	ExecPath string        // browser binary, empty for auto-detect
}

// Available reports whether a window can be opened. On X11/Wayland systems
// this requires DISPLAY or WAYLAND_DISPLAY.
func Available() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	}
	return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
}

// Show opens page in a browser window and blocks until the window is closed,
// the timeout passes, or ctx is cancelled.
func Show(ctx context.Context, page []byte, opts Options) error {
	if !Available() {
		return ErrNoDisplay
	}

	path, cleanup, err := writePage(page)
	if err != nil {
		return err
	}
	defer cleanup()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.Flag("no-first-run", true),
	)
	if opts.Width > 0 && opts.Height > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.Width, opts.Height))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if opts.Timeout > 0 {
		browserCtx, cancel = context.WithTimeout(browserCtx, opts.Timeout)
		defer cancel()
	}

	closed := make(chan struct{})
	signal := func() {
		select {
		case <-closed:
		default:
			close(closed)
		}
	}

	// The page target detaches when its tab or window goes away
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch ev.(type) {
		case *inspector.EventDetached, *inspector.EventTargetCrashed:
			signal()
		}
	})

	if err := chromedp.Run(browserCtx, chromedp.Navigate(fileURL(path))); err != nil {
		return fmt.Errorf("opening chart window: %w", err)
	}

	targetID := chromedp.FromContext(browserCtx).Target.TargetID
	chromedp.ListenBrowser(browserCtx, func(ev interface{}) {
		if ev, ok := ev.(*target.EventTargetDestroyed); ok && ev.TargetID == targetID {
			signal()
		}
	})

	select {
	case <-closed:
		return nil
	case <-browserCtx.Done():
		// timeout or the browser went away with the window; only a cancelled
		// caller is an error
		return ctx.Err()
	}
}

// writePage stores page in a temp file the browser can load
func writePage(page []byte) (string, func(), error) {
	dir, err := os.MkdirTemp("", "capplot-")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, "chart.html")
	if err := os.WriteFile(path, page, 0600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("writing chart page: %w", err)
	}

	return path, cleanup, nil
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}
