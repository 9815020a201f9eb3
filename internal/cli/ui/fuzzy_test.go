package ui

import (
	"reflect"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"/users", "/users", 0},
		{"naïve", "naive", 1},
	}

	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	candidates := []string{"/users", "/posts", "/comments", "/Users2"}

	got := Suggest("/usrs", candidates, 3)
	want := []string{"/users", "/Users2", "/posts"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Suggest = %v, want %v", got, want)
	}

	if got := Suggest("/usrs", candidates, 1); len(got) != 1 || got[0] != "/users" {
		t.Errorf("expected a single suggestion, got %v", got)
	}

	if got := Suggest("/invoices", candidates, 3); len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}
