package main

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/tgotic/xPDFSearch/internal/fields"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	originalStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = originalStdout }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
		w.Close()
	}()

	var buf bytes.Buffer
	io.Copy(&buf, r)
	<-done
	return buf.String()
}

func TestPrintVersion(t *testing.T) {
	oldVersion := version
	version = "1.2.3"
	defer func() { version = oldVersion }()

	out := captureStdout(t, printVersion)
	if !strings.Contains(out, "xPDFSearch") {
		t.Errorf("Expected version output to contain the program name, got '%s'", out)
	}
	if !strings.Contains(out, "1.2.3") {
		t.Errorf("Expected version output to contain the version, got '%s'", out)
	}
}

func TestParseSizeUnit(t *testing.T) {
	tests := []struct {
		name string
		want fields.SizeUnit
	}{
		{"mm", fields.UnitMillimeters},
		{"cm", fields.UnitCentimeters},
		{"in", fields.UnitInches},
		{"pt", fields.UnitPoints},
	}
	for _, tt := range tests {
		if got := parseSizeUnit(tt.name); got != int(tt.want) {
			t.Errorf("parseSizeUnit(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestPrintValue(t *testing.T) {
	intPayload := make([]byte, 4)
	binary.LittleEndian.PutUint32(intPayload, 42)

	floatPayload := make([]byte, 8)
	binary.LittleEndian.PutUint64(floatPayload, math.Float64bits(1.7))

	tests := []struct {
		name    string
		res     fields.Result
		payload []byte
		want    string
	}{
		{"int32", fields.ResultInt32, intPayload, "42"},
		{"float", fields.ResultFloat, floatPayload, "1.7"},
		{"bool true", fields.ResultBool, []byte{1}, "true"},
		{"bool false", fields.ResultBool, []byte{0}, "false"},
		{"string", fields.ResultString, []byte("My Title"), "My Title"},
		{"float with text", fields.ResultFloat, append(floatPayload, []byte("1.73")...), "1.73"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureStdout(t, func() { printValue(tt.res, tt.payload) })
			if strings.TrimSpace(out) != tt.want {
				t.Errorf("printValue(%v) = '%s', want '%s'", tt.res, strings.TrimSpace(out), tt.want)
			}
		})
	}
}
