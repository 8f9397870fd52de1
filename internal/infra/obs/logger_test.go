package obs

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerToPicksHandlerByEnv(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, "production", "").Info("started")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("production output is not JSON: %s", buf.String())
	}

	buf.Reset()
	NewLoggerTo(&buf, "dev", "").Info("started")
	if strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("dev output should be text: %s", buf.String())
	}
}

func TestNewLoggerToHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, "dev", "").Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug logged at default level: %s", buf.String())
	}

	NewLoggerTo(&buf, "dev", "debug").Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("debug suppressed at debug level: %s", buf.String())
	}

	buf.Reset()
	NewLoggerTo(&buf, "dev", "warn").Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}
}
