package monitoring

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestOrNop(t *testing.T) {
	// Nil logger must become a callable no-op
	f := OrNop(nil)
	if f == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	f("test message %d", 1)

	called := false
	custom := Logger(func(format string, v ...interface{}) { called = true })
	OrNop(custom)("test")
	if !called {
		t.Error("custom logger was not called")
	}
}

func TestTo(t *testing.T) {
	var buf bytes.Buffer
	l := log.New(&buf, "", 0)

	To(l)("round %d: %s", 2, "accepted")
	if got := strings.TrimSpace(buf.String()); got != "round 2: accepted" {
		t.Errorf("unexpected output %q", got)
	}

	// nil *log.Logger must not panic
	To(nil)("ignored")
}

func TestStdPrefix(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	origFlags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	defer func() {
		log.SetOutput(orig)
		log.SetFlags(origFlags)
	}()

	Std("[picker] ")("iteration %d", 1)
	if got := strings.TrimSpace(buf.String()); got != "[picker] iteration 1" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var f Logger = r.Logf
	f("a=%d", 1)
	f("b")
	if len(r.Lines) != 2 || r.Lines[0] != "a=1" || r.Lines[1] != "b" {
		t.Errorf("Lines = %q", r.Lines)
	}
}
