package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgotic/xPDFSearch/internal/config"
	"github.com/tgotic/xPDFSearch/internal/fields"
)

func newTestRegistry(opener *fakeOpener) *Registry {
	return NewRegistry(config.DefaultConfig(), opener, testParams)
}

func TestRegistryGet(t *testing.T) {
	opener := newFakeOpener()
	r := newTestRegistry(opener)
	defer r.CloseAll()

	a := r.Get("caller-1")
	b := r.Get("caller-2")
	assert.NotSame(t, a, b, "each caller context owns its extractor")
	assert.Same(t, a, r.Get("caller-1"), "same context reuses the extractor")
}

func TestRegistryCloseAll(t *testing.T) {
	opener := newFakeOpener()
	opener.add("a.pdf", tenPages())
	r := newTestRegistry(opener)

	e := r.Get("caller")
	dst := make([]byte, 64)
	res, _ := e.Extract("a.pdf", fields.NumberOfPages, 0, dst, 0)
	require.Equal(t, fields.ResultInt32, res)

	r.CloseAll()

	res, _ = e.Extract("a.pdf", fields.NumberOfPages, 0, dst, 0)
	assert.Equal(t, fields.ResultFileError, res, "aborted extractor refuses new work")

	// the registry hands out a fresh extractor afterwards
	e2 := r.Get("caller")
	assert.NotSame(t, e, e2)
	res, _ = e2.Extract("a.pdf", fields.NumberOfPages, 0, dst, 0)
	assert.Equal(t, fields.ResultInt32, res)
	r.CloseAll()
}

func TestExtractorCompare(t *testing.T) {
	opener := newFakeOpener()
	opener.add("a.pdf", &fakeDoc{pages: []string{"identical text"}})
	opener.add("b.pdf", &fakeDoc{pages: []string{"identical text"}})
	r := newTestRegistry(opener)
	defer r.CloseAll()

	e := r.Get("caller")
	assert.Equal(t, fields.CompareEqual, e.Compare(nil, "a.pdf", "b.pdf", fields.Text))

	// comparison sessions are reused
	assert.Equal(t, fields.CompareEqual, e.Compare(nil, "a.pdf", "b.pdf", fields.Text))
}

func TestExtractorCompareIgnoresNoCache(t *testing.T) {
	opener := newFakeOpener()
	opener.add("a.pdf", &fakeDoc{pages: []string{"same"}})
	opener.add("b.pdf", &fakeDoc{pages: []string{"same"}})
	cfg := config.DefaultConfig()
	cfg.NoCache = true
	params := testParams
	params.ProducerTimeout = 5 * time.Second
	e := NewExtractor(cfg, opener, params)
	defer e.Abort()

	require.Equal(t, fields.CompareEqual, e.Compare(nil, "a.pdf", "b.pdf", fields.Text))

	// comparison always ends in a non-closing done, even with no-cache
	assert.True(t, docIsOpen(e.cmpA))
	assert.True(t, docIsOpen(e.cmpB))
}

func TestExtractorStopDuringCompare(t *testing.T) {
	// a directory-reset stop can land while the comparison pair is still
	// being created; both must be safe to run concurrently
	pages := make([]string, 40)
	for i := range pages {
		pages[i] = "page text under comparison"
	}
	opener := newFakeOpener()
	opener.add("a.pdf", &fakeDoc{pages: pages, pageDelay: time.Millisecond})
	opener.add("b.pdf", &fakeDoc{pages: pages, pageDelay: time.Millisecond})
	e := NewExtractor(config.DefaultConfig(), opener, testParams)
	defer e.Abort()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for i := 0; i < 20; i++ {
			e.Stop()
			time.Sleep(time.Millisecond)
		}
	}()
	e.Compare(nil, "a.pdf", "b.pdf", fields.Text)
	<-stopped
}

func TestRegistryStopAll(t *testing.T) {
	opener := newFakeOpener()
	opener.add("a.pdf", &fakeDoc{pages: []string{strings.Repeat("long text ", 50)}})
	r := newTestRegistry(opener)
	defer r.CloseAll()

	e := r.Get("caller")
	dst := make([]byte, 16)
	res, _ := e.Extract("a.pdf", fields.Text, 0, dst, 0)
	require.Equal(t, fields.ResultFullText, res)

	r.StopAll()

	require.Eventually(t, func() bool {
		return e.session.req.status.load() == statusClosed
	}, time.Second, 10*time.Millisecond)
}
