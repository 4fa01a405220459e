package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestLogger(format logFormat) (*slog.Logger, *asyncWriter, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:  slog.LevelInfo,
		writer: aw,
		format: format,
	})
	return slog.New(h), aw, buf
}

func closeWriter(t *testing.T, aw *asyncWriter) {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	log, aw, buf := newTestLogger(formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", "fsm"), slog.LevelInfo, "flow.advance",
		slog.String("status", "ok"),
		slog.String("state", "tour.phone"),
	)
	closeWriter(t, aw)

	tokens := strings.Split(strings.TrimSpace(buf.String()), " ")
	expected := []string{"ts=", "level=INFO", "component=fsm", "event=flow.advance", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9", "state=tour.phone"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%v)", len(tokens), tokens)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	log, aw, buf := newTestLogger(formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	LogEvent(ctx, log.With("component", "api"), slog.LevelError, "api.request",
		slog.String("status", "fail"),
		slog.Int("http_code", 502),
		slog.String("err", "bad gateway"),
	)
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"api"`, `"event":"api.request"`, `"status":"fail"`, `"rid":"rid-json"`, `"http_code":502`, `"err":"bad gateway"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	for _, tc := range []struct {
		format   logFormat
		wantFull bool
	}{
		{formatKV, false},
		{formatJSON, true},
	} {
		log, aw, buf := newTestLogger(tc.format)
		raw := "123:456:789"
		LogEvent(WithRID(context.Background(), raw), log, slog.LevelInfo, "rid.test")
		closeWriter(t, aw)

		line := buf.String()
		if !strings.Contains(line, CompactRID(raw)) {
			t.Fatalf("%s: expected compact rid, got %s", tc.format, line)
		}
		if got := strings.Contains(line, "rid_full"); got != tc.wantFull {
			t.Fatalf("%s: rid_full present = %v, want %v (%s)", tc.format, got, tc.wantFull, line)
		}
	}
}

func TestStructuredHandlerDurationAndOutcome(t *testing.T) {
	log, aw, buf := newTestLogger(formatKV)
	LogEvent(context.Background(), log, slog.LevelInfo, "handler.summary",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.String("outcome", "exploded"),
	)
	closeWriter(t, aw)

	line := buf.String()
	if !strings.Contains(line, "duration_ms=2") {
		t.Fatalf("expected duration_ms=2, got %s", line)
	}
	if strings.Contains(line, "outcome=") {
		t.Fatalf("unknown outcome should be dropped, got %s", line)
	}
	if !strings.Contains(line, "component=app") {
		t.Fatalf("expected default component, got %s", line)
	}
}

func TestCompactRIDPassThrough(t *testing.T) {
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID changed foreign id: %s", got)
	}
	if got := CompactRID(BuildRID(35, 36, 1)); got != "z.10.1" {
		t.Fatalf("CompactRID = %s", got)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(parseRatioSpec("2/5"))
	allowed := 0
	for i := 0; i < 10; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 4 {
		t.Fatalf("allowed = %d, want 4", allowed)
	}
	s.Set(parseRatioSpec("off"))
	if !s.Allow() {
		t.Fatal("disabled sampler must allow")
	}
}
