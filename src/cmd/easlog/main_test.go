package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"easlog/src/actions"
	"easlog/src/provider"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestActionSource(t *testing.T) {
	logs := actions.Action{Kind: actions.KindLogs, Fragments: 4}
	if got := actionSource(logs); got != "4 fragments" {
		t.Errorf("actionSource(logs) = %q", got)
	}
	app := actions.Action{Kind: actions.KindApp, URL: "https://files.example/app.aab"}
	if got := actionSource(app); got != app.URL {
		t.Errorf("actionSource(app) = %q, want %q", got, app.URL)
	}
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		want     string
		wantHint bool
	}{
		{"invalid url", fmt.Errorf("parse: %w", provider.ErrInvalidURL), "Error: Invalid build URL", true},
		{"plain error", errors.New("disk full"), "Error: disk full", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printError(&buf, tt.err)
			out := buf.String()
			if !strings.HasPrefix(out, tt.want) {
				t.Errorf("printError() = %q, want prefix %q", out, tt.want)
			}
			if strings.Contains(out, "Hint:") != tt.wantHint {
				t.Errorf("printError() = %q, want hint: %v", out, tt.wantHint)
			}
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"logs", "download", "export", "actions", "view", "watch", "agent", "serve", "mcp", "history", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
