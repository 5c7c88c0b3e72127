package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/meenmo/wopricer/logging"
)

func TestWarnFuncEmitsWarnLevelEvent(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, zerolog.WarnLevel)
	warn := logging.WarnFunc(log)

	warn("correlation: diagonal was not all ones, overwritten")

	out := buf.String()
	if !strings.Contains(out, "WRN") {
		t.Fatalf("expected a warn-level entry, got: %s", out)
	}
	if !strings.Contains(out, "diagonal was not all ones") {
		t.Fatalf("expected message to be carried through, got: %s", out)
	}
}

func TestNewDebugLowersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, zerolog.DebugLevel)
	log.Debug().Msg("visible at debug")

	if !strings.Contains(buf.String(), "visible at debug") {
		t.Fatal("expected debug-level message to be emitted")
	}
}
