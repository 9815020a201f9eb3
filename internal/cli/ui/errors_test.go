package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestFormatError(t *testing.T) {
	out := FormatError(ErrorOptions{
		Level:        ErrorLevelError,
		Context:      "route not found",
		Problem:      "no resource /usrs",
		Suggestions:  []string{"/users"},
		HelpCommands: []string{"See all routes: docapi routes"},
		NoColor:      true,
	})

	for _, want := range []string{
		"✗ ROUTE NOT FOUND: no resource /usrs",
		"Did you mean: /users?",
		"→ See all routes: docapi routes",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestFormatErrorLevels(t *testing.T) {
	warn := FormatError(ErrorOptions{Level: ErrorLevelWarning, Problem: "careful", NoColor: true})
	if !strings.HasPrefix(warn, "! careful") {
		t.Errorf("unexpected warning: %q", warn)
	}

	info := FormatError(ErrorOptions{Level: ErrorLevelInfo, Problem: "note", NoColor: true})
	if !strings.HasPrefix(info, "i note") {
		t.Errorf("unexpected info: %q", info)
	}
}

func TestResourceNotFoundError(t *testing.T) {
	out := ResourceNotFoundError("/usrs", []string{"/users"}, true)
	if !strings.Contains(out, "RESOURCE NOT FOUND") || !strings.Contains(out, "/users?") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestConfigError(t *testing.T) {
	out := ConfigError(errors.New("store.uri is required"), true)
	if !strings.Contains(out, "store.uri is required") || !strings.Contains(out, "docapi init") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestWriteSuccess(t *testing.T) {
	var buf bytes.Buffer
	WriteSuccess(&buf, "wrote docapi.yaml", true)
	if buf.String() != "✓ wrote docapi.yaml\n" {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
