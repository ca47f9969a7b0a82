package scrapers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ticket-hunter/pkg/render"
)

// fakeSession serves a fixed page text and records what was asked of it.
type fakeSession struct {
	text        string
	title       string
	navigateErr error
	scrollErr   error

	mu        sync.Mutex
	navigated []string
	settled   []time.Duration
	scrolled  []string
	closed    bool
}

func (f *fakeSession) Navigate(url string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	return f.navigateErr
}

func (f *fakeSession) Settle(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, d)
	return nil
}

func (f *fakeSession) Scroll(target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolled = append(f.scrolled, target)
	return f.scrollErr
}

func (f *fakeSession) ReadText() (string, error) { return f.text, nil }

func (f *fakeSession) Title() (string, error) { return f.title, nil }

func (f *fakeSession) Screenshot(path string) error {
	return writeFile(path, "png")
}

func (f *fakeSession) DumpMarkup(path string) error {
	return writeFile(path, "<html>"+f.text+"</html>")
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func writeFile(path, data string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(data), 0o644)
}

// fakeOpener hands out sessions built by next, one per Open call.
type fakeOpener struct {
	next    func(attempt int) *fakeSession
	openErr error
	// openFailsAt limits openErr to that attempt; zero fails every Open.
	openFailsAt int

	mu       sync.Mutex
	sessions []*fakeSession
}

func (o *fakeOpener) Open(context.Context) (render.Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil && (o.openFailsAt == 0 || o.openFailsAt == len(o.sessions)+1) {
		return nil, o.openErr
	}
	s := o.next(len(o.sessions) + 1)
	o.sessions = append(o.sessions, s)
	return s, nil
}

func (o *fakeOpener) allClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range o.sessions {
		if !s.closed {
			return false
		}
	}
	return true
}

var errNavigation = errors.New("navigation exploded")
