package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": Debug, "": Info, "WARNING": Warn, "error": Error, "nope": Info,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWith_MergesFieldsAndSkipsBlankKeys(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).With(map[string]any{"request_id": "r-1", " ": "ignored"})

	l.Warn("storage cleanup failed", map[string]any{"err": errors.New("timeout"), "key": "c/d/1_a.pdf"})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["request_id"] != "r-1" || ctx["key"] != "c/d/1_a.pdf" || ctx["err"] != "timeout" {
		t.Fatalf("unexpected fields %v", ctx)
	}
	if _, ok := ctx[" "]; ok {
		t.Fatalf("blank key should be skipped")
	}
}

func TestLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := FromZap(zap.New(core))
	l.Debug("hidden", nil)
	l.Info("shown", nil)
	if logs.Len() != 1 {
		t.Fatalf("expected only info entry, got %d", logs.Len())
	}
}
