package rpclog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/op/go-logging"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]logging.Level{
		"fatal":    logging.CRITICAL,
		"CRITICAL": logging.CRITICAL,
		"error":    logging.ERROR,
		"warn":     logging.WARNING,
		"Notice":   logging.NOTICE,
		"info":     logging.INFO,
		"trace":    logging.DEBUG,
		"DEBUG":    logging.DEBUG,
		"":         logging.NOTICE,
		"verbose":  logging.NOTICE,
	}
	for name, want := range cases {
		if got := ParseLevel(name, logging.NOTICE); got != want {
			t.Errorf("ParseLevel(%q): expect %v, got %v", name, want, got)
		}
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("test", &buf, logging.WARNING)

	log.Info("hidden")
	log.Warning("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expect INFO record to be filtered, got %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "test") {
		t.Fatalf("expect WARNING record with module name, got %q", out)
	}
}

func TestMemoryRecords(t *testing.T) {
	log, mem := NewMemory("test", 16)

	log.Debug("debug line")
	log.Error("error line")
	log.Critical("critical line")

	all := Records(mem, logging.DEBUG)
	if len(all) != 3 {
		t.Fatalf("expect 3 records, got %d: %v", len(all), all)
	}
	severe := Records(mem, logging.ERROR)
	if len(severe) != 2 || severe[0] != "error line" || severe[1] != "critical line" {
		t.Fatalf("expect error and critical records in order, got %v", severe)
	}
}

func TestDiscard(t *testing.T) {
	log := Discard("test")
	log.Critical("nothing to see")
	log.Debug("nor here")
}
