package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerWritesFile(t *testing.T) {
	var stdout bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	logger, closeLog, err := newLogger(&stdout, slog.LevelInfo, path)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("detail", "k", 1)
	logger.With("session", "abc").Info("started")
	closeLog()

	out := stdout.String()
	if strings.Contains(out, "detail") {
		t.Errorf("debug record reached stdout: %s", out)
	}
	if !strings.Contains(out, `"session":"abc"`) {
		t.Errorf("stdout = %s", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"detail"`) || !strings.Contains(string(data), `"msg":"started"`) {
		t.Errorf("log file = %s", data)
	}
}

func TestNewLoggerStdoutOnly(t *testing.T) {
	var stdout bytes.Buffer
	logger, closeLog, err := newLogger(&stdout, slog.LevelWarn, "")
	if err != nil {
		t.Fatal(err)
	}
	defer closeLog()

	logger.Info("quiet")
	logger.Warn("loud")
	if out := stdout.String(); strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Errorf("stdout = %s", out)
	}
}
