// Package docreader opens PDF documents and exposes the lookups the
// extraction engine needs: page attributes, info dictionary entries,
// permission bits, structural flags and per-page plain text.
//
// Two libraries back the implementation: pdfcpu validates the file and
// provides the structural view (page count, header version, encryption),
// ledongthuc/pdf provides the object model (trailer, info dictionary,
// outline tree, page content).
package docreader

import (
	"errors"
)

// ErrNoObjectModel is returned by lookups that need the PDF object model when
// only the structural reader could open the document (e.g. an encrypted file
// the object-model reader rejects).
var ErrNoObjectModel = errors.New("docreader: object model unavailable")

// Permissions are the usage rights granted by the document's encryption
// dictionary. An unencrypted document grants everything.
type Permissions struct {
	Print   bool
	Copy    bool
	Change  bool
	Comment bool
}

// OutlineItem is one entry of the document outline tree.
type OutlineItem struct {
	Title    string
	Children []OutlineItem
}

// Document is an open PDF. All lookups are cheap except PageText, which
// parses the page's content streams. A Document is not safe for concurrent
// use; the engine confines each one to its session worker.
type Document interface {
	// NumPages returns the page count.
	NumPages() int

	// InfoString looks up a text entry of the document info dictionary
	// (Title, Subject, Keywords, Author, Creator, Producer).
	InfoString(key string) (string, bool)

	// DateString looks up a raw date entry (CreationDate, ModDate from the
	// info dictionary, MetadataDate from the XMP packet).
	DateString(key string) (string, bool)

	// Version returns the PDF version from the header and the Adobe
	// developer extension level, 0 when absent.
	Version() (float64, int)

	// PageWidth and PageHeight return the crop box dimensions of a page in
	// points, 0 for an invalid page number.
	PageWidth(page int) float64
	PageHeight(page int) float64

	// Permissions returns the usage rights of the document.
	Permissions() Permissions

	// Structural flags.
	IsEncrypted() bool
	IsProtected() bool
	IsTagged() bool
	IsLinearized() bool
	IsIncremental() bool
	HasSignature() bool
	HasOutlines() bool
	HasEmbeddedFiles() bool

	// NumFontlessPages counts non-empty pages without font resources,
	// NumPagesWithImages counts non-empty pages referencing image XObjects.
	// A page is non-empty when its content streams hold at least minContents
	// bytes.
	NumFontlessPages(minContents int) int
	NumPagesWithImages(minContents int) int

	// DocumentID returns the file identifier rendered as hex.
	DocumentID() (string, bool)

	// Conformance returns the PDF/A or PDF/X conformance from the XMP
	// packet, e.g. "PDF/A-2B".
	Conformance() (string, bool)

	// Extensions returns the developer extensions of the catalog in
	// "PREFIX BaseVersion.Level" form, ";"-joined.
	Extensions() (string, bool)

	// PageText extracts the plain text of one page.
	PageText(page int) (string, error)

	// Outline returns the top-level outline entries.
	Outline() []OutlineItem

	// Close releases the underlying file.
	Close() error
}

// Opener opens documents by path. The engine takes an Opener so tests can
// substitute in-memory documents.
type Opener interface {
	Open(path string) (Document, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(path string) (Document, error)

// Open implements Opener.
func (f OpenerFunc) Open(path string) (Document, error) { return f(path) }
