package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ticket-hunter/pkg/logger"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// hideWebdriver runs before any page script on every new document.
const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

const scrollSettle = 2 * time.Second

// Chrome opens headless Chrome sessions through chromedp.
type Chrome struct {
	opts Options
	log  logger.Logger
}

func NewChrome(opts Options, log logger.Logger) *Chrome {
	return &Chrome{opts: opts.withDefaults(), log: log}
}

func (c *Chrome) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(c.opts.UserAgent),
		chromedp.WindowSize(1920, 1080),
		chromedp.Flag("headless", c.opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
	)
	if !c.opts.Headless {
		opts = append(opts,
			chromedp.DisableGPU,
			chromedp.Flag("disable-software-rasterizer", true),
		)
	}
	return opts
}

func (c *Chrome) Open(ctx context.Context) (Session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	cancel := func() {
		cancelTab()
		cancelAlloc()
	}

	c.log.Debug("Starting browser", logger.Bool("headless", c.opts.Headless))

	// The first Run launches the browser.
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
		return err
	}))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &chromeSession{ctx: tabCtx, cancel: cancel, timeout: c.opts.Timeout, log: c.log}, nil
}

type chromeSession struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	log     logger.Logger
}

func (s *chromeSession) run(timeout time.Duration, timeoutErr error, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	err := chromedp.Run(ctx, actions...)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", timeoutErr, timeout, err)
	}
	return err
}

func (s *chromeSession) Navigate(url string, timeout time.Duration) error {
	s.log.Info("Navigating", logger.String("url", url))
	err := s.run(timeout, ErrNavigationTimeout, navigateUntilDOMReady(url))
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// navigateUntilDOMReady returns at DOMContentLoaded. chromedp.Navigate waits
// for the load event, which slow third-party assets can hold back well past
// the point where the listings are in the DOM.
func navigateUntilDOMReady(url string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		listenCtx, stop := context.WithCancel(ctx)
		defer stop()

		ready := make(chan struct{})
		var once sync.Once
		chromedp.ListenTarget(listenCtx, func(ev any) {
			if _, ok := ev.(*page.EventDomContentEventFired); ok {
				once.Do(func() { close(ready) })
			}
		})

		_, _, errorText, _, err := page.Navigate(url).Do(ctx)
		switch {
		case err != nil:
			return err
		case errorText != "":
			return fmt.Errorf("page load error %s", errorText)
		}

		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func (s *chromeSession) Settle(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	s.log.Debug("Waiting for page to render", logger.Duration("wait", d))
	return s.run(d+s.timeout, ErrRenderTimeout, chromedp.Sleep(d))
}

func (s *chromeSession) Scroll(target string) error {
	return s.run(s.timeout+scrollSettle, ErrRenderTimeout,
		chromedp.Evaluate(fmt.Sprintf("window.scrollTo(0, %s)", target), nil),
		chromedp.Sleep(scrollSettle),
	)
}

func (s *chromeSession) ReadText() (string, error) {
	var text string
	err := s.run(s.timeout, ErrRenderTimeout,
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text),
	)
	if err != nil {
		return "", fmt.Errorf("read body text: %w", err)
	}
	if hasCurrencySymbol(text) {
		return text, nil
	}

	s.log.Debug("No currency symbols in text, using page markup")
	return s.markup()
}

func (s *chromeSession) markup() (string, error) {
	var html string
	err := s.run(s.timeout, ErrRenderTimeout,
		chromedp.Evaluate(`document.documentElement.outerHTML`, &html),
	)
	if err != nil {
		return "", fmt.Errorf("read markup: %w", err)
	}
	return html, nil
}

func (s *chromeSession) Title() (string, error) {
	var title string
	if err := s.run(s.timeout, ErrRenderTimeout, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("read title: %w", err)
	}
	return title, nil
}

func (s *chromeSession) Screenshot(path string) error {
	var buf []byte
	if err := s.run(s.timeout, ErrRenderTimeout, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	return writeArtifact(path, buf)
}

func (s *chromeSession) DumpMarkup(path string) error {
	html, err := s.markup()
	if err != nil {
		return err
	}
	return writeArtifact(path, []byte(html))
}

func (s *chromeSession) Close() error {
	s.log.Debug("Stopping browser")
	s.cancel()
	return nil
}
