package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tgotic/xPDFSearch/internal/docreader"
)

// fakeDoc is an in-memory Document for engine tests.
type fakeDoc struct {
	pages       []string
	info        map[string]string
	dates       map[string]string
	outline     []docreader.OutlineItem
	perms       docreader.Permissions
	encrypted   bool
	tagged      bool
	linearized  bool
	incremental bool
	signed      bool
	outlined    bool
	embedded    bool
	protected   bool
	version     float64
	extLevel    int
	width       float64
	height      float64
	id          string
	conformance string
	extensions  string
	fontless    int
	withImages  int
	pageDelay   time.Duration

	closed bool
}

func (d *fakeDoc) NumPages() int { return len(d.pages) }

func (d *fakeDoc) InfoString(key string) (string, bool) {
	v, ok := d.info[key]
	return v, ok && v != ""
}

func (d *fakeDoc) DateString(key string) (string, bool) {
	v, ok := d.dates[key]
	return v, ok && v != ""
}

func (d *fakeDoc) Version() (float64, int) { return d.version, d.extLevel }

func (d *fakeDoc) PageWidth(page int) float64 {
	if page < 1 || page > len(d.pages) {
		return 0
	}
	return d.width
}

func (d *fakeDoc) PageHeight(page int) float64 {
	if page < 1 || page > len(d.pages) {
		return 0
	}
	return d.height
}

func (d *fakeDoc) Permissions() docreader.Permissions { return d.perms }

func (d *fakeDoc) IsEncrypted() bool     { return d.encrypted }
func (d *fakeDoc) IsProtected() bool     { return d.protected }
func (d *fakeDoc) IsTagged() bool        { return d.tagged }
func (d *fakeDoc) IsLinearized() bool    { return d.linearized }
func (d *fakeDoc) IsIncremental() bool   { return d.incremental }
func (d *fakeDoc) HasSignature() bool    { return d.signed }
func (d *fakeDoc) HasOutlines() bool     { return d.outlined }
func (d *fakeDoc) HasEmbeddedFiles() bool { return d.embedded }

func (d *fakeDoc) NumFontlessPages(minContents int) int   { return d.fontless }
func (d *fakeDoc) NumPagesWithImages(minContents int) int { return d.withImages }

func (d *fakeDoc) DocumentID() (string, bool)  { return d.id, d.id != "" }
func (d *fakeDoc) Conformance() (string, bool) { return d.conformance, d.conformance != "" }
func (d *fakeDoc) Extensions() (string, bool)  { return d.extensions, d.extensions != "" }

func (d *fakeDoc) PageText(page int) (string, error) {
	if page < 1 || page > len(d.pages) {
		return "", fmt.Errorf("no page %d", page)
	}
	if d.pageDelay > 0 {
		time.Sleep(d.pageDelay)
	}
	return d.pages[page-1], nil
}

func (d *fakeDoc) Outline() []docreader.OutlineItem { return d.outline }

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

// fakeOpener serves fakeDoc templates by path, returning a fresh handle per
// open and counting opens.
type fakeOpener struct {
	mu    sync.Mutex
	docs  map[string]*fakeDoc
	opens int
}

func newFakeOpener() *fakeOpener {
	return &fakeOpener{docs: make(map[string]*fakeDoc)}
}

func (o *fakeOpener) add(path string, doc *fakeDoc) {
	o.mu.Lock()
	o.docs[path] = doc
	o.mu.Unlock()
}

func (o *fakeOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

func (o *fakeOpener) Open(path string) (docreader.Document, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opens++
	tpl, ok := o.docs[path]
	if !ok {
		return nil, errors.New("open failed")
	}
	doc := *tpl
	doc.closed = false
	return &doc, nil
}
