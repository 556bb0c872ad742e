package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestNewLogger(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	logger := NewLogger("test-component")
	if logger == nil {
		t.Fatal("Expected logger to be created")
	}

	if logger.Data["component"] != "test-component" {
		t.Errorf("Expected component to be 'test-component', got %v", logger.Data["component"])
	}

	if again := NewLogger("test-component"); again != logger {
		t.Error("Expected the same logger instance for the same component")
	}
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer

	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&TextFormatter{Config: FormatConfig{}})

	entry := logger.WithField("component", "test")
	entry.Info("Test message")

	output := buf.String()
	for _, want := range []string{"[INFO]", "test", "Test message"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, output)
		}
	}
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "frame submitted",
				Data: logrus.Fields{
					"component": "coaching",
					"session":   "demo-1",
				},
			},
			want: []string{"[INFO]", "coaching", "frame submitted", "session=demo-1"},
		},
		{
			name: "simple format",
			config: FormatConfig{
				DisableTimestamp: true,
				DisableComponent: true,
			},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "switched to demo",
				Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
				Data:    logrus.Fields{"component": "coaching"},
			},
			want:    []string{"[WARN]", "switched to demo"},
			notWant: []string{"coaching", "2024-01-02"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &TextFormatter{Config: tt.config}
			out, err := f.Format(tt.entry)
			if err != nil {
				t.Fatalf("Format returned error: %v", err)
			}
			s := string(out)
			for _, w := range tt.want {
				if !strings.Contains(s, w) {
					t.Errorf("Expected output to contain %q, got: %s", w, s)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(s, nw) {
					t.Errorf("Expected output not to contain %q, got: %s", nw, s)
				}
			}
		})
	}
}

func TestTextFormatterStableFieldOrder(t *testing.T) {
	f := &TextFormatter{Config: FormatConfig{DisableTimestamp: true}}
	entry := &logrus.Entry{
		Level:   logrus.InfoLevel,
		Message: "m",
		Data:    logrus.Fields{"b": 2, "a": 1, "c": 3},
	}
	out, _ := f.Format(entry)
	if !strings.Contains(string(out), "a=1 b=2 c=3") {
		t.Errorf("Expected sorted fields, got: %s", out)
	}
}

func TestEnvironmentLevelOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LUMIN_LOG_LEVEL", "debug")

	entry := newFromConfig("env-test", Config{Level: "error", File: FileSinkConfig{Disabled: true}})
	if entry.Logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level from env, got %v", entry.Logger.GetLevel())
	}
}

func TestConfigLevelAndPreset(t *testing.T) {
	t.Setenv("LUMIN_LOG_LEVEL", "")

	entry := newFromConfig("cfg-test", Config{
		Level:  "warn",
		File:   FileSinkConfig{Disabled: true},
		Format: FormatConfig{Preset: "json"},
	})
	if entry.Logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("Expected warn level, got %v", entry.Logger.GetLevel())
	}
	if _, ok := entry.Logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("Expected JSON formatter, got %T", entry.Logger.Formatter)
	}
}

func TestFileSink(t *testing.T) {
	t.Setenv("LUMIN_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "nested", "lumin.log")

	entry := newFromConfig("file-test", Config{
		File:   FileSinkConfig{Path: path},
		Format: FormatConfig{StructuredToStderr: "never"},
	})
	entry.Info("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file to exist: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"written to file"`) {
		t.Errorf("Expected a JSON line in log file, got: %s", data)
	}
	if !strings.Contains(string(data), `"component":"file-test"`) {
		t.Errorf("Expected component field in log file, got: %s", data)
	}
}

func TestFileSinkText(t *testing.T) {
	t.Setenv("LUMIN_LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "lumin.log")

	entry := newFromConfig("file-test", Config{
		File:   FileSinkConfig{Path: path, Format: "text"},
		Format: FormatConfig{StructuredToStderr: "never"},
	})
	entry.Info("plain line")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file to exist: %v", err)
	}
	if strings.HasPrefix(string(data), "{") || !strings.Contains(string(data), "plain line") {
		t.Errorf("Expected a text line in log file, got: %s", data)
	}
}

func TestDefaultLogFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	day := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	want := filepath.Join(dir, "lumin", "logs", "lumin-2024-05-06.log")
	if got := DefaultLogFile(day); got != want {
		t.Errorf("DefaultLogFile() = %s, want %s", got, want)
	}
}

func TestPrettyLogger(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrettyLogger().WithWriter(&buf)

	p.Success("poster written")
	p.Notice("server is offline, running in demo mode")
	p.Field("session", "demo-1")

	out := buf.String()
	for _, want := range []string{"poster written", "demo mode", "session", "demo-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, out)
		}
	}
}

func TestSetGlobalOutputRestores(t *testing.T) {
	var buf bytes.Buffer
	prev := SetGlobalOutput(&buf)
	defer SetGlobalOutput(prev)

	if _, err := GetGlobalOutput().Write([]byte("redirected")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "redirected" {
		t.Errorf("Expected write to reach the redirected writer, got %q", buf.String())
	}

	if back := SetGlobalOutput(prev); back != &buf {
		t.Error("Expected SetGlobalOutput to return the writer it replaced")
	}
	SetGlobalOutput(&buf)
}
