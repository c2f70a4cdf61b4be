// Package engine implements the extraction concurrency engine: one worker
// goroutine per session keeps a document open across field requests from a
// synchronous, polling caller, exchanging results through a fixed-size
// buffer guarded by a two-signal handshake.
package engine

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tgotic/xPDFSearch/internal/config"
	"github.com/tgotic/xPDFSearch/internal/docreader"
	"github.com/tgotic/xPDFSearch/internal/fields"
)

const (
	// DefaultConsumerTimeout bounds how long a caller waits for the worker.
	DefaultConsumerTimeout = 10 * time.Second
	// DefaultProducerTimeout is the idle budget after which the worker
	// closes the document so the host can move, rename or delete the file.
	DefaultProducerTimeout = 100 * time.Millisecond
	// DefaultBufferSize is the capacity of the shared request buffer.
	DefaultBufferSize = 2048

	// workerStartProbe detects a worker that died before doing anything.
	workerStartProbe = 10 * time.Millisecond
)

// Params tunes a session. Zero values select the defaults.
type Params struct {
	ConsumerTimeout time.Duration
	ProducerTimeout time.Duration
	BufferSize      int
}

func (p Params) withDefaults() Params {
	if p.ConsumerTimeout <= 0 {
		p.ConsumerTimeout = DefaultConsumerTimeout
	}
	if p.ProducerTimeout <= 0 {
		p.ProducerTimeout = DefaultProducerTimeout
	}
	if p.BufferSize <= 0 {
		p.BufferSize = DefaultBufferSize
	}
	return p
}

// ExtractFlags modify a single Extract call.
type ExtractFlags uint32

const (
	// FlagDelayIfSlow asks for an immediate ResultDelayed instead of running
	// a slow extraction; the caller retries without the flag.
	FlagDelayIfSlow ExtractFlags = 1 << 0
)

// request is the unit of work in flight for one session.
type request struct {
	field    fields.Field
	unit     int
	timeout  time.Duration
	status   statusCell
	result   fields.Result
	buf      *requestBuffer
	streamed int // bytes emitted by the current streaming extraction
}

// Session pairs one open document, one worker goroutine and one shared
// request buffer. The document is opened lazily by the worker, reused across
// requests naming the same file, and closed when the path changes, when the
// session idles past the producer timeout, or on teardown.
type Session struct {
	cfg    *config.Config
	opener docreader.Opener
	params Params
	hs     *handshake
	req    *request

	mu            sync.Mutex
	doc           docreader.Document
	path          string // path served by the open document
	requestedPath string // path of the armed request
	workerRunning bool
}

// NewSession creates a session. The worker starts on first use.
func NewSession(cfg *config.Config, opener docreader.Opener, params Params) *Session {
	params = params.withDefaults()
	return &Session{
		cfg:    cfg,
		opener: opener,
		params: params,
		hs:     newHandshake(),
		req:    &request{buf: newRequestBuffer(params.BufferSize)},
	}
}

// Extract serves one field request. unit selects the size unit for the page
// dimension fields and the continuation index for streaming fields: 0 starts
// a fresh extraction, >0 continues the previous one, -1 abandons it. The
// returned count is the number of bytes copied into dst.
func (s *Session) Extract(path string, field fields.Field, unit int, dst []byte, flags ExtractFlags) (fields.Result, int) {
	if path == "" || !field.Valid() {
		return fields.ResultNoSuchField, 0
	}
	if field.Streaming() && len(dst) == 0 {
		return fields.ResultNoSuchField, 0
	}
	if (field == fields.PageWidth || field == fields.PageHeight) && fields.SizeUnit(unit).Ratio() == 0 {
		return fields.ResultNoSuchField, 0
	}
	if field.Streaming() && unit < 0 {
		// caller found what it needed mid-stream
		s.Stop()
		return fields.ResultFieldEmpty, 0
	}
	if flags&FlagDelayIfSlow != 0 && slowField(field) {
		return fields.ResultDelayed, 0
	}

	if field.Streaming() && unit > 0 && s.sameRequest(path, field) {
		switch s.req.status.load() {
		case statusActive:
			// the worker is parked mid-stream; pull the next chunk
			s.setUnit(unit)
			return s.exchange(field, dst)
		case statusComplete:
			s.mu.Lock()
			if s.req.buf.Len() > 0 {
				res := s.req.result
				n := s.req.buf.CopyOutText(dst)
				s.mu.Unlock()
				return res, n
			}
			s.mu.Unlock()
			s.req.status.transition(statusComplete, statusClosed)
			return fields.ResultFieldEmpty, 0
		}
		// state was discarded while idle; fall through and start over
	}

	// any still-active work belongs to an older request now
	if s.req.status.transition(statusActive, statusCancelled) {
		s.hs.signalProducerAndWaitForConsumer(s.params.ProducerTimeout)
	}
	if !s.startWorker() {
		return fields.ResultFileError, 0
	}
	if !s.arm(path, field, unit, s.params.ConsumerTimeout) {
		return fields.ResultTimeout, 0
	}
	return s.exchange(field, dst)
}

// Stop cooperatively cancels any in-flight extraction. The worker observes
// the cancellation at its next safe point and unwinds.
func (s *Session) Stop() {
	if s.req.status.transition(statusActive, statusCancelled) {
		s.hs.notifyProducer()
	}
}

// Abort tears the session down: cancel, wake, wait for the worker goroutine
// to actually exit, release the document. The session is unusable afterwards.
func (s *Session) Abort() {
	s.req.status.transition(statusActive, statusCancelled)
	s.mu.Lock()
	running := s.workerRunning
	s.mu.Unlock()
	if running {
		s.hs.signalQuitAndWaitForWorkerExit(s.params.ConsumerTimeout)
	} else {
		s.hs.signalQuit()
		s.closeDocument()
	}
	s.req.status.set(statusClosed)
}

func (s *Session) sameRequest(path string, field fields.Field) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestedPath == path && s.req.field == field
}

func (s *Session) setUnit(unit int) {
	s.mu.Lock()
	s.req.unit = unit
	s.mu.Unlock()
}

// startWorker launches the worker goroutine on first use. A worker that
// exits within the start probe counts as a failed start.
func (s *Session) startWorker() bool {
	if s.hs.quitting() {
		return false
	}
	s.mu.Lock()
	started := false
	if !s.workerRunning {
		s.workerRunning = true
		started = true
		go s.worker()
	}
	s.mu.Unlock()
	if started {
		select {
		case <-s.hs.workerDone:
			return false
		case <-time.After(workerStartProbe):
			return true
		}
	}
	select {
	case <-s.hs.workerDone:
		return false
	default:
		return true
	}
}

// arm stores the request parameters and moves the status to active. A
// cancelled request that has not settled yet gets one extra wake before the
// arm is abandoned.
func (s *Session) arm(path string, field fields.Field, unit int, timeout time.Duration) bool {
	s.req.status.transition(statusComplete, statusClosed)
	s.mu.Lock()
	s.requestedPath = path
	s.req.field = field
	s.req.unit = unit
	s.req.timeout = timeout
	s.req.result = fields.ResultFieldEmpty
	s.req.buf.Rewind()
	s.mu.Unlock()
	if s.req.status.transition(statusClosed, statusActive) {
		return true
	}
	s.hs.signalProducerAndWaitForConsumer(s.params.ProducerTimeout)
	return s.req.status.transition(statusClosed, statusActive)
}

// exchange wakes the worker and waits for data. A timeout cancels the
// request; the worker unwinds on its own and the session self-heals.
func (s *Session) exchange(field fields.Field, dst []byte) (fields.Result, int) {
	if s.hs.signalProducerAndWaitForConsumer(s.params.ConsumerTimeout) != waitSignaled {
		s.req.status.transition(statusActive, statusCancelled)
		return fields.ResultTimeout, 0
	}
	return s.collect(field, dst)
}

// collect copies the worker's result out of the shared buffer.
func (s *Session) collect(field fields.Field, dst []byte) (fields.Result, int) {
	s.mu.Lock()
	res := s.req.result
	n := 0
	if res.Payload() && len(dst) > 0 {
		if field.Streaming() {
			n = s.req.buf.CopyOutText(dst)
		} else {
			n = copy(dst, s.req.buf.Bytes())
		}
	}
	drained := s.req.buf.Len() == 0
	s.mu.Unlock()

	if field.Streaming() {
		// keep complete status while undelivered data remains; the next
		// unit call drains it and ends the enumeration
		if n == 0 && drained && s.req.status.transition(statusComplete, statusClosed) {
			if res.Payload() {
				res = fields.ResultFieldEmpty
			}
		}
		return res, n
	}
	s.req.status.transition(statusComplete, statusClosed)
	return res, n
}

// worker is the producer loop. It waits for an armed request, serves it, and
// closes the document once the session idles past the producer timeout.
func (s *Session) worker() {
	defer close(s.hs.workerDone)
	defer s.closeDocument()
	timeout := s.params.ProducerTimeout
	for {
		switch s.hs.waitForProducer(timeout) {
		case waitSignaled:
			if s.hs.quitting() {
				return
			}
			s.serve()
			timeout = s.params.ProducerTimeout
		case waitTimedOut:
			// idle: release the file lock, then sleep until the next wake
			s.closeDocument()
			timeout = -1
		default:
			return
		}
	}
}

// serve handles one producer wake: open the document if needed, run the
// field dispatch, settle the status and hand the result to the consumer.
func (s *Session) serve() {
	if s.req.status.load() != statusActive {
		// stale wake or a cancellation arriving while idle
		if s.req.status.transition(statusCancelled, statusClosed) {
			s.closeDocument()
		}
		s.hs.drainProducer()
		s.hs.notifyConsumer()
		return
	}

	s.mu.Lock()
	path := s.requestedPath
	if s.doc != nil && s.path != path {
		s.closeDocumentLocked()
	}
	if s.doc == nil {
		doc, err := s.opener.Open(path)
		if err != nil {
			s.req.result = fields.ResultFileError
		} else {
			s.doc = doc
			s.path = path
		}
	}
	doc := s.doc
	s.mu.Unlock()

	if doc != nil {
		s.dispatch(doc)
	}

	closeDoc := s.cfg.NoCache
	if !s.req.status.transition(statusActive, statusComplete) {
		if s.req.status.transition(statusCancelled, statusClosed) {
			closeDoc = true
		}
	}
	if closeDoc {
		s.closeDocument()
	}
	s.hs.drainProducer()
	s.hs.notifyConsumer()
}

func (s *Session) closeDocument() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeDocumentLocked()
}

func (s *Session) closeDocumentLocked() {
	if s.doc != nil {
		s.doc.Close()
		s.doc = nil
		s.path = ""
	}
}

// emit feeds one chunk of streamed text into the buffer, parking the worker
// whenever the buffer is full until the consumer pulls or the request dies.
func (s *Session) emit(chunk string) bool {
	for len(chunk) > 0 {
		s.mu.Lock()
		n := s.req.buf.AppendText(chunk)
		s.req.streamed += n
		timeout := s.req.timeout
		s.mu.Unlock()
		chunk = chunk[n:]
		if len(chunk) == 0 {
			break
		}
		// buffer full: hand it over and wait for the next pull
		s.hs.notifyConsumer()
		if s.hs.waitForProducer(timeout) != waitSignaled {
			s.req.status.transition(statusActive, statusCancelled)
			return false
		}
		if s.req.status.load() != statusActive {
			return false
		}
		s.mu.Lock()
		abandoned := s.req.unit < 0
		s.mu.Unlock()
		if abandoned {
			return false
		}
	}
	return true
}

// dispatch runs the field logic for the armed request, writing the result
// and its tag into the shared buffer.
func (s *Session) dispatch(doc docreader.Document) {
	s.mu.Lock()
	field := s.req.field
	s.mu.Unlock()

	switch field {
	case fields.Text:
		s.setStreamResult(fields.ResultFullText)
		streamText(doc, s.emit)
		s.finishStream()
		return
	case fields.Outlines:
		s.setStreamResult(fields.ResultOutlineText)
		streamOutline(doc.Outline(), s.emit)
		s.finishStream()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.req
	buf := req.buf
	req.result = fields.ResultFieldEmpty

	switch field {
	case fields.Title, fields.Subject, fields.Keywords, fields.Author, fields.Creator, fields.Producer:
		if v, ok := doc.InfoString(infoKey(field)); ok {
			buf.PutString(v)
			req.result = fields.ResultString
		}
	case fields.DocStart:
		if v := collectText(doc, buf.Capacity()); v != "" {
			buf.PutString(v)
			req.result = fields.ResultString
		}
	case fields.FirstRow:
		if v := firstRow(doc, buf.Capacity()); v != "" {
			buf.PutString(v)
			req.result = fields.ResultString
		}
	case fields.Extensions:
		if v, ok := doc.Extensions(); ok {
			buf.PutString(v)
			req.result = fields.ResultString
		}
	case fields.NumberOfPages:
		buf.PutInt32(int32(doc.NumPages()))
		req.result = fields.ResultInt32
	case fields.NumberOfFontlessPages:
		buf.PutInt32(int32(doc.NumFontlessPages(s.cfg.PageContentsLengthMin)))
		req.result = fields.ResultInt32
	case fields.NumberOfPagesWithImages:
		buf.PutInt32(int32(doc.NumPagesWithImages(s.cfg.PageContentsLengthMin)))
		req.result = fields.ResultInt32
	case fields.PDFVersion:
		v, lvl := doc.Version()
		if s.cfg.AppendExtensionLevel && lvl > 0 {
			v += float64(lvl) / 100
			buf.PutFloat64(v)
			buf.AppendText(strconv.FormatFloat(v, 'f', 2, 64))
		} else {
			buf.PutFloat64(v)
		}
		req.result = fields.ResultFloat
	case fields.PageWidth:
		if w := doc.PageWidth(1); w > 0 {
			buf.PutFloat64(w * fields.SizeUnit(req.unit).Ratio())
			req.result = fields.ResultFloat
		}
	case fields.PageHeight:
		if h := doc.PageHeight(1); h > 0 {
			buf.PutFloat64(h * fields.SizeUnit(req.unit).Ratio())
			req.result = fields.ResultFloat
		}
	case fields.Copyable:
		buf.PutBool(doc.Permissions().Copy)
		req.result = fields.ResultBool
	case fields.Printable:
		buf.PutBool(doc.Permissions().Print)
		req.result = fields.ResultBool
	case fields.Commentable:
		buf.PutBool(doc.Permissions().Comment)
		req.result = fields.ResultBool
	case fields.Changeable:
		buf.PutBool(doc.Permissions().Change)
		req.result = fields.ResultBool
	case fields.Encrypted:
		buf.PutBool(doc.IsEncrypted())
		req.result = fields.ResultBool
	case fields.Tagged:
		buf.PutBool(doc.IsTagged())
		req.result = fields.ResultBool
	case fields.Linearized:
		buf.PutBool(doc.IsLinearized())
		req.result = fields.ResultBool
	case fields.Incremental:
		buf.PutBool(doc.IsIncremental())
		req.result = fields.ResultBool
	case fields.Signed:
		buf.PutBool(doc.HasSignature())
		req.result = fields.ResultBool
	case fields.Outlined:
		buf.PutBool(doc.HasOutlines())
		req.result = fields.ResultBool
	case fields.EmbeddedFiles:
		buf.PutBool(doc.HasEmbeddedFiles())
		req.result = fields.ResultBool
	case fields.Protected:
		buf.PutBool(doc.IsProtected())
		req.result = fields.ResultBool
	case fields.CreationDate, fields.ModifiedDate, fields.MetadataDate:
		if raw, ok := doc.DateString(dateKey(field)); ok {
			if t, parsed := ParsePDFDate(raw); parsed {
				buf.PutTime(t)
				req.result = fields.ResultDateTime
			}
		}
	case fields.CreationDateRaw, fields.ModifiedDateRaw, fields.MetadataDateRaw:
		if raw, ok := doc.DateString(dateKey(field)); ok {
			if s.cfg.RemoveDateRawDColon {
				raw = strings.TrimPrefix(raw, "D:")
			}
			buf.PutString(raw)
			req.result = fields.ResultString
		}
	case fields.ID:
		if v, ok := doc.DocumentID(); ok {
			buf.PutString(v)
			req.result = fields.ResultString
		}
	case fields.AttributesString:
		buf.PutString(attributesString(doc, s.cfg.AttributeMarkers))
		req.result = fields.ResultString
	case fields.Conformance:
		if v, ok := doc.Conformance(); ok {
			buf.PutString(v)
			req.result = fields.ResultString
		}
	default:
		req.result = fields.ResultNoSuchField
	}
}

func (s *Session) setStreamResult(res fields.Result) {
	s.mu.Lock()
	s.req.result = res
	s.req.streamed = 0
	s.mu.Unlock()
}

// finishStream downgrades a streaming request that produced nothing to an
// empty-field result.
func (s *Session) finishStream() {
	s.mu.Lock()
	if s.req.streamed == 0 {
		s.req.result = fields.ResultFieldEmpty
	}
	s.mu.Unlock()
}

// slowField marks the fields a delay-if-slow caller should defer: anything
// that parses page content rather than dictionary entries.
func slowField(f fields.Field) bool {
	switch f {
	case fields.Text, fields.Outlines, fields.DocStart, fields.FirstRow,
		fields.NumberOfFontlessPages, fields.NumberOfPagesWithImages:
		return true
	}
	return false
}

func infoKey(f fields.Field) string {
	switch f {
	case fields.Title:
		return "Title"
	case fields.Subject:
		return "Subject"
	case fields.Keywords:
		return "Keywords"
	case fields.Author:
		return "Author"
	case fields.Creator:
		return "Creator"
	case fields.Producer:
		return "Producer"
	}
	return ""
}

func dateKey(f fields.Field) string {
	switch f {
	case fields.CreationDate, fields.CreationDateRaw:
		return "CreationDate"
	case fields.ModifiedDate, fields.ModifiedDateRaw:
		return "ModDate"
	}
	return "MetadataDate"
}

// attributesString renders one marker character per document attribute, in a
// fixed order, with a dash for each attribute the document lacks. Markers
// come from the configuration; missing positions use the defaults.
func attributesString(doc docreader.Document, markers string) string {
	perm := doc.Permissions()
	attrs := []bool{
		perm.Print,
		perm.Copy,
		perm.Change,
		perm.Comment,
		doc.IsIncremental(),
		doc.IsTagged(),
		doc.IsLinearized(),
		doc.IsEncrypted(),
		doc.IsProtected(),
		doc.HasSignature(),
		doc.HasOutlines(),
		doc.HasEmbeddedFiles(),
	}
	out := make([]byte, len(attrs))
	for i, set := range attrs {
		if !set {
			out[i] = '-'
			continue
		}
		if i < len(markers) {
			out[i] = markers[i]
		} else {
			out[i] = config.DefaultAttributeMarkers[i]
		}
	}
	return string(out)
}
