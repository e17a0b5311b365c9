package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "debug", want: zapcore.DebugLevel},
		{in: "info", want: zapcore.InfoLevel},
		{in: "warn", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInit(t *testing.T) {
	if err := Init("debug", "text"); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if Log == nil || GetZapLogger() == nil {
		t.Fatal("global logger not set")
	}
	if !GetZapLogger().Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level should be enabled")
	}

	if err := Init("nope", "json"); err == nil {
		t.Error("Init() with an invalid level should fail")
	}
}
