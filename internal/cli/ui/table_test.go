package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"METHOD", "PATTERN", "VERB"}, true)

	table.AddRow("GET", "/users/{id}", "fetch")
	table.AddRow("POST", "/users/bulk", "bulkpost")
	table.AddRow("DELETE")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), buf.String())
	}

	if lines[0] != "METHOD  PATTERN      VERB" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "──────  ───────────") {
		t.Errorf("unexpected separator %q", lines[1])
	}
	if lines[2] != "GET     /users/{id}  fetch" {
		t.Errorf("unexpected row %q", lines[2])
	}
	if lines[4] != "DELETE" {
		t.Errorf("expected missing cells to render empty, got %q", lines[4])
	}
	if table.Len() != 3 {
		t.Errorf("expected 3 rows, got %d", table.Len())
	}
}

func TestTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, nil, true).Render()

	if buf.Len() != 0 {
		t.Errorf("expected no output for a table without headers, got %q", buf.String())
	}
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewKeyValueTable(&buf, true)
	table.AddRow("Store", "memory")
	table.AddRow("Address", "localhost:3000")
	table.Render()

	want := "Store:   memory\nAddress: localhost:3000\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

func TestHeader(t *testing.T) {
	var buf bytes.Buffer
	Header(&buf, "Routes", true)

	if buf.String() != "Routes\n──────\n" {
		t.Errorf("unexpected header %q", buf.String())
	}
}
