package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("LOG_TO_FILE", "false")
	t.Setenv("LOG_DEVELOPMENT", "true")

	opts := OptionsFromEnv()
	if opts.Level != zapcore.DebugLevel || opts.Format != "legacy" || opts.File != "" || !opts.Development {
		t.Fatalf("opts = %+v", opts)
	}

	t.Setenv("LOG_TO_FILE", "")
	t.Setenv("LOG_FILE", "")
	if opts := OptionsFromEnv(); opts.File != filepath.Join("logs", "tsc-client.log") {
		t.Fatalf("default file = %q", opts.File)
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.log")
	logger, err := New(Options{Level: zapcore.InfoLevel, Format: "json", File: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("realtime_connect", zap.String("url", "ws://x"))
	logger.Debug("hidden")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(raw)
	if !strings.Contains(out, `"msg":"realtime_connect"`) || !strings.Contains(out, `"url":"ws://x"`) {
		t.Fatalf("log output = %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line must be filtered at info level")
	}
}

func TestDevelopmentDPanicPanics(t *testing.T) {
	logger, err := New(Options{Level: zapcore.ErrorLevel, Format: "json", File: filepath.Join(t.TempDir(), "x.log"), Development: true})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected DPanic to panic in development mode")
		}
	}()
	logger.DPanic("snapshot_malformed")
}
