package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"xpulse/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid config with info level",
			cfg:     &config.LoggingConfig{Level: "info"},
			wantErr: false,
		},
		{
			name:    "valid config with debug level",
			cfg:     &config.LoggingConfig{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "warn alias",
			cfg:     &config.LoggingConfig{Level: "warning"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			cfg:     &config.LoggingConfig{Level: "invalid"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNewWithFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "xpulse.log")
	logger, err := New(&config.LoggingConfig{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("written to file")

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected log file to exist: %v", err)
	}
}

func TestLoggerChaining(t *testing.T) {
	logger, err := New(&config.LoggingConfig{Level: "debug"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	// Chained contexts must not panic and must return usable loggers.
	chained := logger.
		WithField("keyword", "comarb").
		WithFields(map[string]interface{}{"attempt": 2}).
		WithError(errors.New("boom"))

	if chained == nil {
		t.Fatal("Chained logger is nil")
	}
	chained.Warn("still works")
	chained.ErrorWithFields("with extra", map[string]interface{}{"code": 429})
}

func TestInitializeAndGetLogger(t *testing.T) {
	if err := Initialize(&config.LoggingConfig{Level: "error"}); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if GetLogger() == nil {
		t.Error("GetLogger() returned nil after Initialize")
	}
}

func TestTestLoggerCapturesMessages(t *testing.T) {
	tl := NewTestLogger()
	tl.Info("plain message")
	tl.WithField("k", "v").Warn("field message")

	if !tl.HasMessage("plain message") {
		t.Error("Expected plain message to be captured")
	}

	msgs := tl.Messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Level != "WARN" || msgs[1].Fields["k"] != "v" {
		t.Errorf("Unexpected captured message: %+v", msgs[1])
	}
}
