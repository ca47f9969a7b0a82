// Package render drives a page session and reads back the rendered text.
package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ticket-hunter/pkg/currency"
)

var (
	ErrNavigationTimeout = errors.New("navigation timed out")
	ErrRenderTimeout     = errors.New("render timed out")
	ErrUnsupported       = errors.New("not supported by this engine")
	ErrNoPage            = errors.New("no page loaded")
)

// Session is one browser-like page. It is bound to the context it was
// opened with and must be closed on every path.
type Session interface {
	// Navigate loads url and waits until the document content has loaded.
	Navigate(url string, timeout time.Duration) error
	// Settle blocks for a fixed delay so client-side rendering can finish.
	Settle(d time.Duration) error
	// Scroll evaluates window.scrollTo(0, target). Failures are not fatal.
	Scroll(target string) error
	// ReadText returns the visible body text, or the full markup when the
	// text shows no currency symbol at all.
	ReadText() (string, error)
	Title() (string, error)
	Screenshot(path string) error
	DumpMarkup(path string) error
	Close() error
}

// Opener starts sessions.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// Options are shared by both engines.
type Options struct {
	Headless  bool
	UserAgent string
	// Timeout bounds every single page operation.
	Timeout time.Duration
}

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

func hasCurrencySymbol(text string) bool {
	for _, s := range currency.Symbols() {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}

func writeArtifact(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
