package logger

import (
	"sync"
	"time"
)

// Dedup collapses identical consecutive warnings into one entry carrying a
// repeat count. Warnings are identical when both message and key match. A
// pending entry is written once flushDelay passes without it arriving
// again, or when a different warning arrives.
type Dedup struct {
	log        Logger
	flushDelay time.Duration

	mu      sync.Mutex
	lastMsg string
	lastKey string
	fields  []Field
	count   int
	timer   *time.Timer
}

func NewDedup(log Logger, flushDelay time.Duration) *Dedup {
	return &Dedup{log: log, flushDelay: flushDelay}
}

func (d *Dedup) Warn(msg string, fields ...Field) {
	d.WarnKey("", msg, fields...)
}

// WarnKey is Warn for messages shared by several subjects. Only repeats with
// the same key are collapsed, so each subject keeps its own entry.
func (d *Dedup) WarnKey(key, msg string, fields ...Field) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if msg == d.lastMsg && key == d.lastKey && d.count > 0 {
		d.count++
		d.fields = fields
		d.resetTimer()
		return
	}

	d.flush()
	d.lastMsg = msg
	d.lastKey = key
	d.fields = fields
	d.count = 1
	d.resetTimer()
}

// Flush writes any pending entry immediately.
func (d *Dedup) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.flush()
}

func (d *Dedup) resetTimer() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.flushDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.flush()
	})
}

func (d *Dedup) flush() {
	if d.count == 0 {
		return
	}
	if d.count == 1 {
		d.log.Warn(d.lastMsg, d.fields...)
	} else {
		d.log.Warn(d.lastMsg, append(d.fields, Int("repeats", d.count))...)
	}
	d.count = 0
	d.lastMsg = ""
	d.lastKey = ""
	d.fields = nil
}
