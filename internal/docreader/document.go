package docreader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	// headProbeSize bounds the header scan for the linearization dictionary.
	headProbeSize = 1024
	// maxXMPSize bounds how much of the XMP packet is read.
	maxXMPSize = 1 << 20
	// scanChunkSize is the read granularity of the trailer scan.
	scanChunkSize = 64 * 1024
)

// FileOpener opens documents from the filesystem.
type FileOpener struct {
	// MaxFileSize rejects larger files before parsing; 0 disables the check.
	MaxFileSize int64
}

// Open validates and opens the PDF at path.
func (o FileOpener) Open(path string) (Document, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if o.MaxFileSize > 0 && fi.Size() > o.MaxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", fi.Size(), o.MaxFileSize)
	}

	doc := &fileDocument{path: path}

	// Structural pass with pdfcpu: validates the cross-reference structure
	// and yields page count, header version and encryption state.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}
	doc.pageCount = ctx.PageCount
	doc.encrypted = ctx.Encrypt != nil
	if ctx.HeaderVersion != nil {
		if v, perr := strconv.ParseFloat(ctx.HeaderVersion.String(), 64); perr == nil {
			doc.headerVersion = v
		}
	}
	doc.linearized, doc.incremental = scanStructure(f)
	f.Close()

	// Object-model pass with ledongthuc/pdf. An open failure here is not
	// fatal: an encrypted document keeps its structural view and reports
	// itself as protected.
	mf, lr, err := pdf.Open(path)
	if err == nil {
		doc.file = mf
		doc.reader = lr
	}

	return doc, nil
}

// fileDocument implements Document over a pdfcpu structural view and a
// ledongthuc/pdf object model.
type fileDocument struct {
	path          string
	file          *os.File    // backing file of the object-model reader
	reader        *pdf.Reader // nil when the object model is unavailable
	pageCount     int
	headerVersion float64
	encrypted     bool
	linearized    bool
	incremental   bool

	xmp        []byte
	xmpChecked bool
}

// Close releases the backing file.
func (d *fileDocument) Close() error {
	d.reader = nil
	if d.file != nil {
		err := d.file.Close()
		d.file = nil
		return err
	}
	return nil
}

// NumPages returns the page count from the structural view.
func (d *fileDocument) NumPages() int { return d.pageCount }

func (d *fileDocument) trailer() (pdf.Value, bool) {
	if d.reader == nil {
		return pdf.Value{}, false
	}
	return d.reader.Trailer(), true
}

func (d *fileDocument) catalog() (pdf.Value, bool) {
	t, ok := d.trailer()
	if !ok {
		return pdf.Value{}, false
	}
	root := t.Key("Root")
	return root, !root.IsNull()
}

// InfoString looks up a text entry of the info dictionary.
func (d *fileDocument) InfoString(key string) (value string, ok bool) {
	defer recoverLookup(&value, &ok)
	t, found := d.trailer()
	if !found {
		return "", false
	}
	v := t.Key("Info").Key(key)
	if v.IsNull() || v.Kind() != pdf.String {
		return "", false
	}
	s := v.Text()
	if s == "" {
		return "", false
	}
	return s, true
}

// xmpFallbackKeys maps info dictionary date keys to their XMP equivalents.
var xmpFallbackKeys = map[string]string{
	"CreationDate": "xmp:CreateDate",
	"ModDate":      "xmp:ModifyDate",
	"MetadataDate": "xmp:MetadataDate",
}

// DateString looks up a raw date, consulting the info dictionary first and
// the XMP packet second.
func (d *fileDocument) DateString(key string) (string, bool) {
	if s, ok := d.InfoString(key); ok {
		return s, true
	}
	xmpKey, ok := xmpFallbackKeys[key]
	if !ok {
		return "", false
	}
	return d.xmpValue(xmpKey)
}

// Version returns the header version and the ADBE extension level.
func (d *fileDocument) Version() (version float64, extensionLevel int) {
	version = d.headerVersion
	if root, ok := d.catalog(); ok {
		func() {
			defer func() { _ = recover() }()
			lvl := root.Key("Extensions").Key("ADBE").Key("ExtensionLevel")
			if !lvl.IsNull() {
				extensionLevel = int(lvl.Int64())
			}
		}()
	}
	return version, extensionLevel
}

func (d *fileDocument) pageBox(page int) (w, h float64) {
	if d.reader == nil || page < 1 || page > d.pageCount {
		return 0, 0
	}
	defer func() { _ = recover() }()
	p := d.reader.Page(page)
	if p.V.IsNull() {
		return 0, 0
	}
	box := p.V.Key("CropBox")
	if box.IsNull() || box.Len() != 4 {
		box = p.V.Key("MediaBox")
	}
	if box.IsNull() || box.Len() != 4 {
		return 0, 0
	}
	x0, y0 := box.Index(0).Float64(), box.Index(1).Float64()
	x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return x1 - x0, y1 - y0
}

// PageWidth returns the crop box width of a page in points.
func (d *fileDocument) PageWidth(page int) float64 {
	w, _ := d.pageBox(page)
	return w
}

// PageHeight returns the crop box height of a page in points.
func (d *fileDocument) PageHeight(page int) float64 {
	_, h := d.pageBox(page)
	return h
}

// Permission bit positions of the encryption dictionary's P entry.
const (
	permPrint   = 1 << 2
	permChange  = 1 << 3
	permCopy    = 1 << 4
	permComment = 1 << 5
)

// Permissions derives usage rights from the encryption dictionary.
func (d *fileDocument) Permissions() Permissions {
	if !d.encrypted {
		return Permissions{Print: true, Copy: true, Change: true, Comment: true}
	}
	t, ok := d.trailer()
	if !ok {
		return Permissions{}
	}
	enc := t.Key("Encrypt")
	if enc.IsNull() {
		return Permissions{}
	}
	p := uint32(enc.Key("P").Int64())
	return Permissions{
		Print:   p&permPrint != 0,
		Change:  p&permChange != 0,
		Copy:    p&permCopy != 0,
		Comment: p&permComment != 0,
	}
}

func (d *fileDocument) IsEncrypted() bool { return d.encrypted }

// IsProtected reports an encrypted document whose object model could not be
// opened without a password.
func (d *fileDocument) IsProtected() bool { return d.encrypted && d.reader == nil }

func (d *fileDocument) IsLinearized() bool { return d.linearized }

func (d *fileDocument) IsIncremental() bool { return d.incremental }

func (d *fileDocument) IsTagged() bool {
	root, ok := d.catalog()
	if !ok {
		return false
	}
	return root.Key("MarkInfo").Key("Marked").Bool()
}

func (d *fileDocument) HasSignature() bool {
	root, ok := d.catalog()
	if !ok {
		return false
	}
	return root.Key("AcroForm").Key("SigFlags").Int64()&1 != 0
}

func (d *fileDocument) HasOutlines() bool {
	root, ok := d.catalog()
	if !ok {
		return false
	}
	return !root.Key("Outlines").Key("First").IsNull()
}

func (d *fileDocument) HasEmbeddedFiles() bool {
	root, ok := d.catalog()
	if !ok {
		return false
	}
	return !root.Key("Names").Key("EmbeddedFiles").IsNull()
}

// contentsLength sums the declared lengths of a page's content streams.
func contentsLength(page pdf.Page) int64 {
	contents := page.V.Key("Contents")
	switch contents.Kind() {
	case pdf.Stream:
		return contents.Key("Length").Int64()
	case pdf.Array:
		var total int64
		for i := 0; i < contents.Len(); i++ {
			total += contents.Index(i).Key("Length").Int64()
		}
		return total
	default:
		return 0
	}
}

// pageHasFonts reports whether the page declares any font resources.
func pageHasFonts(page pdf.Page) bool {
	fonts := page.V.Key("Resources").Key("Font")
	return fonts.Kind() == pdf.Dict && len(fonts.Keys()) > 0
}

// pageImageCount counts image XObjects referenced by the page's resources.
func pageImageCount(page pdf.Page) (n int) {
	defer func() { _ = recover() }()
	xObjects := page.V.Key("Resources").Key("XObject")
	if xObjects.Kind() != pdf.Dict {
		return 0
	}
	for _, key := range xObjects.Keys() {
		obj := xObjects.Key(key)
		if obj.IsNull() {
			continue
		}
		if obj.Key("Subtype").Name() == "Image" {
			n++
		}
	}
	return n
}

func (d *fileDocument) countPages(minContents int, match func(pdf.Page) bool) int {
	if d.reader == nil {
		return 0
	}
	count := 0
	for i := 1; i <= d.pageCount; i++ {
		func() {
			defer func() { _ = recover() }()
			page := d.reader.Page(i)
			if page.V.IsNull() {
				return
			}
			if contentsLength(page) < int64(minContents) {
				return
			}
			if match(page) {
				count++
			}
		}()
	}
	return count
}

// NumFontlessPages counts non-empty pages without font resources.
func (d *fileDocument) NumFontlessPages(minContents int) int {
	return d.countPages(minContents, func(p pdf.Page) bool { return !pageHasFonts(p) })
}

// NumPagesWithImages counts non-empty pages referencing image XObjects.
func (d *fileDocument) NumPagesWithImages(minContents int) int {
	return d.countPages(minContents, func(p pdf.Page) bool { return pageImageCount(p) > 0 })
}

// DocumentID renders the file identifier pair as hex.
func (d *fileDocument) DocumentID() (id string, ok bool) {
	defer recoverLookup(&id, &ok)
	t, found := d.trailer()
	if !found {
		return "", false
	}
	ids := t.Key("ID")
	if ids.Kind() != pdf.Array || ids.Len() == 0 {
		return "", false
	}
	parts := make([]string, 0, ids.Len())
	for i := 0; i < ids.Len(); i++ {
		v := ids.Index(i)
		if v.Kind() != pdf.String {
			continue
		}
		parts = append(parts, fmt.Sprintf("%X", v.RawString()))
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// Conformance reports the PDF/A, PDF/X or PDF/E conformance from XMP.
func (d *fileDocument) Conformance() (string, bool) {
	if part, ok := d.xmpValue("pdfaid:part"); ok {
		conf, _ := d.xmpValue("pdfaid:conformance")
		return "PDF/A-" + part + strings.ToUpper(conf), true
	}
	if v, ok := d.xmpValue("pdfxid:GTS_PDFXVersion"); ok {
		return v, true
	}
	if v, ok := d.xmpValue("pdfe:ISO_PDFEVersion"); ok {
		return "PDF/E-" + v, true
	}
	return "", false
}

// Extensions formats the catalog's developer extensions.
func (d *fileDocument) Extensions() (ext string, ok bool) {
	defer recoverLookup(&ext, &ok)
	root, found := d.catalog()
	if !found {
		return "", false
	}
	exts := root.Key("Extensions")
	if exts.Kind() != pdf.Dict {
		return "", false
	}
	var parts []string
	for _, prefix := range exts.Keys() {
		e := exts.Key(prefix)
		if e.Kind() != pdf.Dict {
			continue
		}
		base := e.Key("BaseVersion").Name()
		level := e.Key("ExtensionLevel").Int64()
		parts = append(parts, fmt.Sprintf("%s %s.%d", prefix, base, level))
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ";"), true
}

// PageText extracts the plain text of one page.
func (d *fileDocument) PageText(page int) (text string, err error) {
	if d.reader == nil {
		return "", ErrNoObjectModel
	}
	if page < 1 || page > d.pageCount {
		return "", fmt.Errorf("invalid page number %d (document has %d pages)", page, d.pageCount)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", page, r)
		}
	}()
	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// Outline returns the document outline tree.
func (d *fileDocument) Outline() []OutlineItem {
	if d.reader == nil {
		return nil
	}
	var items []OutlineItem
	func() {
		defer func() { _ = recover() }()
		items = convertOutline(d.reader.Outline().Child)
	}()
	return items
}

func convertOutline(src []pdf.Outline) []OutlineItem {
	if len(src) == 0 {
		return nil
	}
	items := make([]OutlineItem, 0, len(src))
	for _, o := range src {
		items = append(items, OutlineItem{
			Title:    o.Title,
			Children: convertOutline(o.Child),
		})
	}
	return items
}

// xmpValue scans the XMP packet for a property in element or attribute form.
func (d *fileDocument) xmpValue(name string) (value string, ok bool) {
	defer recoverLookup(&value, &ok)
	if !d.xmpChecked {
		d.xmpChecked = true
		if root, found := d.catalog(); found {
			meta := root.Key("Metadata")
			if meta.Kind() == pdf.Stream {
				rc := meta.Reader()
				data, _ := io.ReadAll(io.LimitReader(rc, maxXMPSize))
				rc.Close()
				d.xmp = data
			}
		}
	}
	if len(d.xmp) == 0 {
		return "", false
	}
	return scanXMPProperty(d.xmp, name)
}

// scanXMPProperty finds <name>value</name> or name="value" in raw XMP data.
func scanXMPProperty(data []byte, name string) (string, bool) {
	// element form
	open := []byte("<" + name)
	if i := bytes.Index(data, open); i >= 0 {
		rest := data[i+len(open):]
		if j := bytes.IndexByte(rest, '>'); j > 0 && j < len(rest)-1 {
			if rest[j-1] != '/' {
				body := rest[j+1:]
				if k := bytes.IndexByte(body, '<'); k >= 0 {
					v := strings.TrimSpace(string(body[:k]))
					if v != "" {
						return v, true
					}
				}
			}
		}
	}
	// attribute form
	attr := []byte(name + `="`)
	if i := bytes.Index(data, attr); i >= 0 {
		rest := data[i+len(attr):]
		if j := bytes.IndexByte(rest, '"'); j >= 0 {
			v := strings.TrimSpace(string(rest[:j]))
			if v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// scanStructure probes the raw file for the linearization dictionary and for
// incremental updates (more than one startxref marker).
func scanStructure(r io.ReadSeeker) (linearized, incremental bool) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return false, false
	}
	head := make([]byte, headProbeSize)
	n, _ := io.ReadFull(r, head)
	linearized = bytes.Contains(head[:n], []byte("/Linearized"))

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return linearized, false
	}
	marker := []byte("startxref")
	count := 0
	carry := make([]byte, 0, len(marker)-1)
	buf := make([]byte, scanChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append(carry, buf[:n]...)
			count += bytes.Count(chunk, marker)
			if len(chunk) >= len(marker)-1 {
				carry = append(carry[:0], chunk[len(chunk)-(len(marker)-1):]...)
			} else {
				carry = append(carry[:0], chunk...)
			}
		}
		if err != nil {
			break
		}
	}
	return linearized, count > 1
}

// recoverLookup converts a panic inside a malformed-object lookup into a
// "not present" result.
func recoverLookup(value *string, ok *bool) {
	if r := recover(); r != nil {
		*value = ""
		*ok = false
	}
}
