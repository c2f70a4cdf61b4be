// Package fields enumerates the extractable PDF attributes and the result
// codes exchanged between the extraction engine and its caller.
package fields

// Field identifies one extractable attribute of a PDF document.
type Field int

// Field indexes. The order is stable; it is part of the caller-visible
// contract and is also used to address the comparison variants of each field.
const (
	Title Field = iota
	Subject
	Keywords
	Author
	Creator
	Producer
	DocStart
	FirstRow
	Extensions
	NumberOfPages
	NumberOfFontlessPages
	NumberOfPagesWithImages
	PDFVersion
	PageWidth
	PageHeight
	Copyable
	Printable
	Commentable
	Changeable
	Encrypted
	Tagged
	Linearized
	Incremental
	Signed
	Outlined
	EmbeddedFiles
	Protected
	CreationDate
	ModifiedDate
	MetadataDate
	ID
	AttributesString
	Conformance
	CreationDateRaw
	ModifiedDateRaw
	MetadataDateRaw
	Outlines
	Text
)

// Count is the number of supported fields.
const Count = int(Text) + 1

var fieldNames = [Count]string{
	"Title", "Subject", "Keywords", "Author", "Application", "PDF Producer",
	"Document Start", "First Row", "Extensions",
	"Number Of Pages", "Number Of Fontless Pages", "Number Of Pages With Images",
	"PDF Version", "Page Width", "Page Height",
	"Copying Allowed", "Printing Allowed", "Adding Comments Allowed", "Changing Allowed",
	"Encrypted", "Tagged", "Linearized", "Incremental", "Signature Field",
	"Outlined", "Embedded Files", "Protected",
	"Created", "Modified", "Metadata Date",
	"ID", "PDF Attributes", "Conformance",
	"Created Raw", "Modified Raw", "Metadata Date Raw",
	"Outlines", "Text",
}

// String returns the caller-visible field name.
func (f Field) String() string {
	if f.Valid() {
		return fieldNames[f]
	}
	return "unknown"
}

// Valid reports whether f is a supported field index.
func (f Field) Valid() bool {
	return f >= Title && f <= Text
}

// Streaming reports whether the field's output may exceed one buffer load and
// is delivered across multiple unit calls.
func (f Field) Streaming() bool {
	return f == Text || f == Outlines
}

// Result tags the payload currently held in a request buffer, or reports why
// no payload is available. Negative values are error codes, non-negative
// values describe a payload.
type Result int

const (
	// ResultNoSuchField reports an unsupported field index or a missing
	// destination buffer for a streaming field.
	ResultNoSuchField Result = -1
	// ResultFileError reports a document that could not be opened.
	ResultFileError Result = -2
	// ResultFieldEmpty reports a field with no value in this document.
	ResultFieldEmpty Result = -3
	// ResultDelayed asks the caller to retry without the slow-call flag.
	ResultDelayed Result = -4
	// ResultTimeout reports that the worker did not produce data in time;
	// the caller may re-poll.
	ResultTimeout Result = -5

	// ResultSuccess reports a completed exchange with no typed payload.
	ResultSuccess Result = 0
	// ResultInt32 tags a 32-bit integer payload.
	ResultInt32 Result = 1
	// ResultFloat tags a 64-bit floating point payload, optionally followed
	// by a formatted string representation.
	ResultFloat Result = 2
	// ResultBool tags a boolean payload.
	ResultBool Result = 3
	// ResultDateTime tags a Unix-nanosecond timestamp payload.
	ResultDateTime Result = 4
	// ResultString tags a short UTF-8 string payload.
	ResultString Result = 5
	// ResultFullText tags one chunk of streamed document text.
	ResultFullText Result = 6
	// ResultOutlineText tags one chunk of streamed outline titles.
	ResultOutlineText Result = 7
)

// Payload reports whether r tags data the caller can copy out.
func (r Result) Payload() bool {
	return r > ResultSuccess
}

// CompareOutcome is the verdict of a two-document comparison.
type CompareOutcome int

const (
	// CompareEqual means every round matched byte for byte.
	CompareEqual CompareOutcome = iota
	// CompareEqualText means the documents matched only after delimiter
	// stripping and case folding in at least one round.
	CompareEqualText
	// CompareNotEqual means a round failed both comparisons.
	CompareNotEqual
	// CompareError means extraction failed on either side.
	CompareError
	// CompareAborted means the caller or a timeout cancelled the comparison.
	CompareAborted
	// CompareUnsupported means the field cannot be compared.
	CompareUnsupported
)

// String returns a short verdict label.
func (c CompareOutcome) String() string {
	switch c {
	case CompareEqual:
		return "equal"
	case CompareEqualText:
		return "equal as text"
	case CompareNotEqual:
		return "not equal"
	case CompareError:
		return "error"
	case CompareAborted:
		return "aborted"
	case CompareUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// SizeUnit selects the unit for the page dimension fields.
type SizeUnit int

const (
	UnitMillimeters SizeUnit = iota
	UnitCentimeters
	UnitInches
	UnitPoints
)

// Ratio returns the points-to-unit conversion ratio, 0 for unknown units.
func (u SizeUnit) Ratio() float64 {
	switch u {
	case UnitMillimeters:
		return 0.3528
	case UnitCentimeters:
		return 0.03528
	case UnitInches:
		return 0.0139
	case UnitPoints:
		return 1.0
	default:
		return 0.0
	}
}

// ParseField resolves a caller-visible field name, case-sensitively.
func ParseField(name string) (Field, bool) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), true
		}
	}
	return Field(-1), false
}

// Names returns the caller-visible names of all supported fields in index
// order.
func Names() []string {
	names := make([]string, Count)
	copy(names, fieldNames[:])
	return names
}
