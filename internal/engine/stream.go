package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/tgotic/xPDFSearch/internal/docreader"
)

// emitFunc receives one chunk of normalized text and reports whether
// streaming may continue. Returning false aborts the page walk.
type emitFunc func(chunk string) bool

// filterText normalizes extracted page text for the request buffer: NUL,
// backspace and form-feed characters are dropped, CRLF collapses to LF.
func filterText(s string) string {
	if !strings.ContainsAny(s, "\x00\b\f\r") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case 0, '\b', '\f':
		case '\r':
			if i+1 >= len(s) || s[i+1] != '\n' {
				b.WriteByte('\n')
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// streamText walks every page, feeding normalized text to emit. Pages that
// fail to parse are skipped. Each page's text ends with a newline so page
// boundaries stay visible in the stream.
func streamText(doc docreader.Document, emit emitFunc) {
	for page := 1; page <= doc.NumPages(); page++ {
		text, err := doc.PageText(page)
		if err != nil {
			continue
		}
		text = filterText(text)
		if text == "" {
			continue
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		if !emit(text) {
			return
		}
	}
}

// streamOutline emits outline titles depth-first, one per line.
func streamOutline(items []docreader.OutlineItem, emit emitFunc) bool {
	for _, item := range items {
		title := filterText(item.Title)
		if title != "" {
			if !emit(title + "\n") {
				return false
			}
		}
		if !streamOutline(item.Children, emit) {
			return false
		}
	}
	return true
}

// collectText gathers normalized page text into a bounded prefix of the
// document, at most limit bytes.
func collectText(doc docreader.Document, limit int) string {
	var b strings.Builder
	for page := 1; page <= doc.NumPages() && b.Len() < limit; page++ {
		text, err := doc.PageText(page)
		if err != nil {
			continue
		}
		b.WriteString(filterText(text))
	}
	s := b.String()
	if len(s) > limit {
		n := limit
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	return s
}

// firstRow returns the first non-empty line of the document's text, reading
// at most limit bytes.
func firstRow(doc docreader.Document, limit int) string {
	text := collectText(doc, limit)
	for text != "" {
		line := text
		if i := strings.IndexAny(text, "\r\n"); i >= 0 {
			line, text = text[:i], text[i+1:]
		} else {
			text = ""
		}
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}
