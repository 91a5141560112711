package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_FileOutputFiltersByLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiercost.log")
	l, err := New(Config{Level: "warn", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info("dropped")
	l.Warn("kept", zap.Int("months", 60))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"kept"`) || !strings.Contains(out, `"months":60`) {
		t.Fatalf("warn line missing: %s", out)
	}
}

func TestNew_NoneIsNop(t *testing.T) {
	l, err := New(Config{Output: "none"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Core().Enabled(zap.ErrorLevel) {
		t.Fatal("none output should disable every level")
	}
}

func TestSet_NilFallsBackToNop(t *testing.T) {
	prev := L()
	t.Cleanup(func() { Set(prev) })

	Set(nil)
	if L() == nil {
		t.Fatal("L() returned nil")
	}
}

func TestNew_DevelopmentPanicsOnDPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiercost.log")
	l, err := New(Config{Level: "debug", Output: path, Development: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("DPanic did not panic in development mode")
		}
	}()
	l.DPanic("unreachable state")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" || cfg.Output != "stderr" || cfg.Development {
		t.Fatalf("DefaultConfig = %+v", cfg)
	}
}
