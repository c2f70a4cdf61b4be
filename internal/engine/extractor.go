package engine

import (
	"sync"

	"github.com/tgotic/xPDFSearch/internal/config"
	"github.com/tgotic/xPDFSearch/internal/docreader"
	"github.com/tgotic/xPDFSearch/internal/fields"
)

// Extractor is the host-facing handle: one primary session for field
// extraction plus a lazily created pair of sessions for comparisons.
type Extractor struct {
	cfg    *config.Config
	opener docreader.Opener
	params Params

	session *Session

	cmpMu sync.Mutex // serializes comparisons on this extractor

	// pairMu guards the lazily created session pair. Stop and Abort take it
	// instead of cmpMu, which stays held for a comparison's full duration.
	pairMu     sync.Mutex
	cmpA, cmpB *Session
}

// NewExtractor creates an extractor with one idle session.
func NewExtractor(cfg *config.Config, opener docreader.Opener, params Params) *Extractor {
	return &Extractor{
		cfg:     cfg,
		opener:  opener,
		params:  params.withDefaults(),
		session: NewSession(cfg, opener, params),
	}
}

// Extract serves one field request; see Session.Extract.
func (e *Extractor) Extract(path string, field fields.Field, unit int, dst []byte, flags ExtractFlags) (fields.Result, int) {
	return e.session.Extract(path, field, unit, dst, flags)
}

// Compare extracts field from both files and compares the results.
func (e *Extractor) Compare(progress ProgressFunc, pathA, pathB string, field fields.Field) fields.CompareOutcome {
	e.cmpMu.Lock()
	defer e.cmpMu.Unlock()
	e.pairMu.Lock()
	if e.cmpA == nil {
		// comparison always ends in a non-closing done, so these sessions
		// ignore the no-cache option
		cc := *e.cfg
		cc.NoCache = false
		e.cmpA = NewSession(&cc, e.opener, e.params)
		e.cmpB = NewSession(&cc, e.opener, e.params)
	}
	a, b := e.cmpA, e.cmpB
	e.pairMu.Unlock()
	return compareFiles(a, b, progress, pathA, pathB, field)
}

// Stop cancels any in-flight extraction on all sessions. Open documents are
// retained where possible.
func (e *Extractor) Stop() {
	e.session.Stop()
	e.pairMu.Lock()
	defer e.pairMu.Unlock()
	if e.cmpA != nil {
		e.cmpA.Stop()
		e.cmpB.Stop()
	}
}

// Abort tears down every session and waits for their workers to exit.
func (e *Extractor) Abort() {
	e.session.Abort()
	e.pairMu.Lock()
	defer e.pairMu.Unlock()
	if e.cmpA != nil {
		e.cmpA.Abort()
		e.cmpB.Abort()
	}
}
