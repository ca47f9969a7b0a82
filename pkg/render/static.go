package render

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"ticket-hunter/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// Static fetches pages without executing JavaScript. It only suits sources
// that render their listings server-side.
type Static struct {
	opts Options
	log  logger.Logger
}

func NewStatic(opts Options, log logger.Logger) *Static {
	return &Static{opts: opts.withDefaults(), log: log}
}

func (s *Static) Open(ctx context.Context) (Session, error) {
	c := colly.NewCollector(
		colly.UserAgent(s.opts.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.SetRequestTimeout(s.opts.Timeout)

	sess := &staticSession{collector: c, log: s.log}

	c.OnResponse(func(r *colly.Response) {
		sess.markup = r.Body
	})
	c.OnHTML("html", func(e *colly.HTMLElement) {
		sess.title = strings.TrimSpace(e.DOM.Find("title").First().Text())
		sess.text = visibleText(e.DOM.Find("body"))
	})

	return sess, nil
}

// visibleText drops script and style content, which goquery's Text keeps.
func visibleText(sel *goquery.Selection) string {
	body := sel.Clone()
	body.Find("script, style, noscript, template").Remove()
	return strings.TrimSpace(body.Text())
}

type staticSession struct {
	collector *colly.Collector
	log       logger.Logger

	markup []byte
	title  string
	text   string
}

func (s *staticSession) Navigate(url string, timeout time.Duration) error {
	s.log.Info("Navigating", logger.String("url", url))
	s.markup, s.title, s.text = nil, "", ""
	s.collector.SetRequestTimeout(timeout)

	if err := s.collector.Visit(url); err != nil {
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			return fmt.Errorf("navigate to %s: %w after %s: %v", url, ErrNavigationTimeout, timeout, err)
		}
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Settle has nothing to wait for without a script engine.
func (s *staticSession) Settle(time.Duration) error {
	return nil
}

func (s *staticSession) Scroll(string) error {
	return ErrUnsupported
}

func (s *staticSession) ReadText() (string, error) {
	if s.markup == nil {
		return "", ErrNoPage
	}
	if hasCurrencySymbol(s.text) {
		return s.text, nil
	}
	return string(s.markup), nil
}

func (s *staticSession) Title() (string, error) {
	if s.markup == nil {
		return "", ErrNoPage
	}
	return s.title, nil
}

func (s *staticSession) Screenshot(string) error {
	return ErrUnsupported
}

func (s *staticSession) DumpMarkup(path string) error {
	if s.markup == nil {
		return ErrNoPage
	}
	return writeArtifact(path, s.markup)
}

func (s *staticSession) Close() error {
	s.collector.Wait()
	return nil
}
