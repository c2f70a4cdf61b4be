package engine

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tgotic/xPDFSearch/internal/fields"
)

// ProgressFunc is called periodically during a comparison with the number of
// bytes processed since the previous call. Returning true requests an abort.
type ProgressFunc func(bytesProcessed int) bool

const (
	// compareTimeoutFactor stretches the consumer timeout for comparisons,
	// which may queue behind another in-flight extraction on the same file.
	compareTimeoutFactor = 10
	// progressInterval throttles progress callbacks by elapsed time.
	progressInterval = 100 * time.Millisecond
)

var errWaitFailed = errors.New("engine: handshake wait failed")

// comparableField reports whether a field's payload can be compared between
// two documents: streamed text and string-valued fields.
func comparableField(f fields.Field) bool {
	if f.Streaming() {
		return true
	}
	switch f {
	case fields.Title, fields.Subject, fields.Keywords, fields.Author,
		fields.Creator, fields.Producer, fields.DocStart, fields.FirstRow,
		fields.Extensions, fields.ID, fields.AttributesString,
		fields.Conformance, fields.CreationDateRaw, fields.ModifiedDateRaw,
		fields.MetadataDateRaw:
		return true
	}
	return false
}

// isCompareDelimiter matches the whitespace and control characters ignored
// by the textual comparison fallback.
func isCompareDelimiter(r rune) bool {
	switch r {
	case ' ', '\r', '\n', '\b', '\f', '\t', '\v',
		' ', ' ', ' ', ' ', '⁠':
		return true
	}
	return false
}

func stripDelimiters(s string) string {
	return strings.Map(func(r rune) rune {
		if isCompareDelimiter(r) {
			return -1
		}
		return r
	}, s)
}

// comparison drives two sessions in lockstep for one field.
type comparison struct {
	a, b     *Session
	collator *collate.Collator
	progress ProgressFunc

	textOnly   bool // some round matched only after stripping and folding
	processed  int
	reported   int
	lastReport time.Time
}

// compareFiles extracts the same field from two sessions and compares the
// streams incrementally: byte-for-byte first, then delimiter-stripped and
// case-folded when the bytes differ.
func compareFiles(a, b *Session, progress ProgressFunc, pathA, pathB string, field fields.Field) fields.CompareOutcome {
	if !field.Valid() || !comparableField(field) {
		return fields.CompareUnsupported
	}
	timeout := a.params.ConsumerTimeout * compareTimeoutFactor
	for _, arm := range []struct {
		s    *Session
		path string
	}{{a, pathA}, {b, pathB}} {
		if arm.s.req.status.transition(statusActive, statusCancelled) {
			arm.s.hs.signalProducerAndWaitForConsumer(arm.s.params.ProducerTimeout)
		}
		if !arm.s.startWorker() {
			return fields.CompareError
		}
		if !arm.s.arm(arm.path, field, 0, timeout) {
			return fields.CompareError
		}
	}

	c := &comparison{
		a:          a,
		b:          b,
		collator:   collate.New(language.Und, collate.IgnoreCase),
		progress:   progress,
		lastReport: time.Now(),
	}
	outcome := c.run(timeout)
	c.finish()
	return outcome
}

func (c *comparison) run(timeout time.Duration) fields.CompareOutcome {
	for {
		if !c.signalAndWaitBoth(timeout) {
			return fields.CompareError
		}
		verdict, done := c.compareRound()
		if done {
			return verdict
		}
		if c.reportProgress() {
			return fields.CompareAborted
		}
	}
}

// signalAndWaitBoth wakes both producers and blocks on both consumer-ready
// signals with one combined wait.
func (c *comparison) signalAndWaitBoth(timeout time.Duration) bool {
	c.a.hs.drainConsumer()
	c.b.hs.drainConsumer()
	c.a.hs.notifyProducer()
	c.b.hs.notifyProducer()
	g := new(errgroup.Group)
	for _, s := range []*Session{c.a, c.b} {
		s := s
		g.Go(func() error {
			if s.hs.waitForConsumer(timeout) != waitSignaled {
				s.hs.drainProducer()
				return errWaitFailed
			}
			return nil
		})
	}
	return g.Wait() == nil
}

// compareRound inspects both buffers under both session locks, taken in a
// fixed order, and either consumes matched data or delivers a verdict.
func (c *comparison) compareRound() (fields.CompareOutcome, bool) {
	c.a.mu.Lock()
	defer c.a.mu.Unlock()
	c.b.mu.Lock()
	defer c.b.mu.Unlock()

	if c.a.req.result == fields.ResultFileError || c.b.req.result == fields.ResultFileError {
		return fields.CompareError, true
	}
	bufA, bufB := c.a.req.buf, c.b.req.buf
	la, lb := bufA.Len(), bufB.Len()
	doneA := c.a.req.status.load() != statusActive
	doneB := c.b.req.status.load() != statusActive

	if la == 0 && lb == 0 {
		if doneA && doneB {
			return c.verdict(), true
		}
		return fields.CompareEqual, false
	}

	n := la
	if lb < n {
		n = lb
	}
	if n > 0 && bytes.Equal(bufA.Bytes()[:n], bufB.Bytes()[:n]) {
		bufA.Consume(n)
		bufB.Consume(n)
		c.processed += 2 * n
		if doneA && doneB && bufA.Len() == 0 && bufB.Len() == 0 {
			return c.verdict(), true
		}
		return fields.CompareEqual, false
	}

	// an empty side that is still streaming may yet produce the match
	if (la == 0 && !doneA) || (lb == 0 && !doneB) {
		return fields.CompareEqual, false
	}

	ra := []rune(stripDelimiters(bufA.String()))
	rb := []rune(stripDelimiters(bufB.String()))
	m := len(ra)
	if len(rb) < m {
		m = len(rb)
	}
	if m == 0 && doneA && doneB && len(ra) != len(rb) {
		return fields.CompareNotEqual, true
	}
	if m > 0 && c.collator.CompareString(string(ra[:m]), string(rb[:m])) != 0 {
		return fields.CompareNotEqual, true
	}
	// equal only as text; keep each unmatched stripped tail for the next
	// round instead of discarding it
	c.textOnly = true
	bufA.Rewind()
	bufA.AppendText(string(ra[m:]))
	bufB.Rewind()
	bufB.AppendText(string(rb[m:]))
	c.processed += (la - bufA.Len()) + (lb - bufB.Len())
	if doneA && doneB {
		if bufA.Len() != 0 || bufB.Len() != 0 {
			return fields.CompareNotEqual, true
		}
		return c.verdict(), true
	}
	return fields.CompareEqual, false
}

func (c *comparison) verdict() fields.CompareOutcome {
	if c.textOnly {
		return fields.CompareEqualText
	}
	return fields.CompareEqual
}

func (c *comparison) reportProgress() bool {
	if c.progress == nil {
		return false
	}
	if time.Since(c.lastReport) < progressInterval {
		return false
	}
	c.lastReport = time.Now()
	delta := c.processed - c.reported
	c.reported = c.processed
	return c.progress(delta)
}

// finish settles both sessions without closing their documents, so a
// subsequent extraction on the same files can reuse them. A session still
// streaming after an early verdict is cancelled instead.
func (c *comparison) finish() {
	for _, s := range []*Session{c.a, c.b} {
		if s.req.status.transition(statusComplete, statusClosed) {
			continue
		}
		if s.req.status.transition(statusActive, statusCancelled) {
			s.hs.notifyProducer()
		}
	}
}
