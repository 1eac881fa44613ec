package logger

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitOnlyFirstCallWins(t *testing.T) {
	var buf bytes.Buffer
	log := Init(Options{Level: "debug", Output: &buf})
	log.Debug().Str("component", "api").Msg("ready")

	out := buf.String()
	if !strings.Contains(out, `"message":"ready"`) {
		t.Fatalf("expected JSON output with the message, got %q", out)
	}
	if !strings.Contains(out, `"component":"api"`) {
		t.Fatalf("expected the structured field, got %q", out)
	}

	again := Init(Options{Level: "error", Output: io.Discard})
	again.Info().Msg("second")
	if !strings.Contains(buf.String(), `"message":"second"`) {
		t.Fatal("expected the first initialisation to keep its sink and level")
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
