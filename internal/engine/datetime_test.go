package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePDFDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{
			name: "full date with positive offset",
			in:   "D:20240131120000+01'00'",
			want: time.Date(2024, 1, 31, 12, 0, 0, 0, time.FixedZone("", 3600)),
		},
		{
			name: "full date with negative offset",
			in:   "D:20240601120000-0500",
			want: time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("", -5*3600)),
		},
		{
			name: "utc suffix",
			in:   "D:20240131120000Z",
			want: time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "date only",
			in:   "D:20240131",
			want: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "year only",
			in:   "D:2024",
			want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "no prefix",
			in:   "20240131123456",
			want: time.Date(2024, 1, 31, 12, 34, 56, 0, time.UTC),
		},
		{
			name: "iso variant",
			in:   "2024-01-31T12:00:05+01:00",
			want: time.Date(2024, 1, 31, 12, 0, 5, 0, time.FixedZone("", 3600)),
		},
		{
			name: "invalid month keeps parsed prefix",
			in:   "D:20241350",
			want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "invalid day keeps parsed month",
			in:   "D:20240299",
			want: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "distiller century bug",
			in:   "D:191000101122233",
			want: time.Date(2000, 1, 1, 12, 22, 33, 0, time.UTC),
		},
		{
			name: "distiller bug with offset",
			in:   "D:191010101122233+01'00'",
			want: time.Date(2001, 1, 1, 12, 22, 33, 0, time.FixedZone("", 3600)),
		},
		{
			name: "plausible 1910 date stays 1910",
			in:   "D:19100101",
			want: time.Date(1910, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePDFDate(tt.in)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestParsePDFDateInvalid(t *testing.T) {
	for _, in := range []string{"", "D:", "abc", "D:12", "D:12x4", "   "} {
		t.Run(in, func(t *testing.T) {
			_, ok := ParsePDFDate(in)
			assert.False(t, ok)
		})
	}
}
