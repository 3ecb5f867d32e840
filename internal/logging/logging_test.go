package logging

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInitSetsRecognizedLevel(t *testing.T) {
	Init("debug", "console")
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Fatalf("global level = %v, want debug", zerolog.GlobalLevel())
	}
}

func TestInitDefaultsToInfoOnUnrecognizedLevel(t *testing.T) {
	Init("not-a-level", "console")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("global level = %v, want info (fallback)", zerolog.GlobalLevel())
	}
}

func TestInitIsCaseInsensitiveForLevelAndFormat(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	stderr := os.Stderr
	os.Stderr = w
	Init("WARN", "JSON")
	os.Stderr = stderr

	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("global level = %v, want warn", zerolog.GlobalLevel())
	}
	log.Warn().Msg("probe")
	w.Close()
	out, _ := io.ReadAll(r)
	if !strings.HasPrefix(string(out), "{") {
		t.Fatalf("output %q is not JSON, want format %q treated as json", out, "JSON")
	}
}
