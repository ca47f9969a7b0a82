package scrapers

import (
	"path/filepath"
	"time"

	"ticket-hunter/pkg/logger"
	"ticket-hunter/pkg/render"
)

const DefaultDiagnosticsDir = "data/errors"

// Diagnostics writes a screenshot and a markup dump of a failed page.
// Write failures are logged and never returned.
type Diagnostics struct {
	Dir string
	now func() time.Time
	log logger.Logger
}

func NewDiagnostics(dir string, log logger.Logger) *Diagnostics {
	if dir == "" {
		dir = DefaultDiagnosticsDir
	}
	return &Diagnostics{Dir: dir, now: time.Now, log: log}
}

// Capture returns the paths it managed to write.
func (d *Diagnostics) Capture(sess render.Session) []string {
	stamp := d.now().Format("20060102_150405")
	shot := filepath.Join(d.Dir, "screenshot_"+stamp+".png")
	page := filepath.Join(d.Dir, "page_"+stamp+".html")

	var written []string
	if err := sess.Screenshot(shot); err != nil {
		d.log.Warn("Failed to capture screenshot", logger.String("path", shot), logger.Error(err))
	} else {
		d.log.Info("Screenshot saved", logger.String("path", shot))
		written = append(written, shot)
	}

	if err := sess.DumpMarkup(page); err != nil {
		d.log.Warn("Failed to capture HTML", logger.String("path", page), logger.Error(err))
	} else {
		d.log.Info("HTML saved", logger.String("path", page))
		written = append(written, page)
	}
	return written
}
