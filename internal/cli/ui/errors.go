package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the formatting of a message
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError formats a message with its suggestions and follow-up commands
//
// Example output:
//
//	✗ ROUTE NOT FOUND: no resource /usrs
//
//	   Did you mean: /users?
//
//	   → See all routes: docapi routes
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	var header *color.Color
	var symbol string
	switch opts.Level {
	case ErrorLevelWarning:
		header, symbol = newColor(opts.NoColor, color.FgYellow, color.Bold), "!"
	case ErrorLevelInfo:
		header, symbol = newColor(opts.NoColor, color.FgCyan, color.Bold), "i"
	default:
		header, symbol = newColor(opts.NoColor, color.FgRed, color.Bold), "✗"
	}

	if opts.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		newColor(opts.NoColor, color.FgYellow).
			Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := newColor(opts.NoColor, color.FgCyan)
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted message to w
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// WriteSuccess writes a green check line to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	newColor(noColor, color.FgGreen, color.Bold).Fprintf(w, "✓ %s\n", message)
}

// ResourceNotFoundError reports an unknown resource path with the closest
// declared ones
func ResourceNotFoundError(path string, suggestions []string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:        ErrorLevelError,
		Context:      "resource not found",
		Problem:      fmt.Sprintf("no resource %s", path),
		Suggestions:  suggestions,
		HelpCommands: []string{"See all routes: docapi routes"},
		NoColor:      noColor,
	})
}

// ConfigError reports an invalid configuration
func ConfigError(err error, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelError,
		Context: "configuration error",
		Problem: err.Error(),
		HelpCommands: []string{
			"Create a config file: docapi init",
			"Get help: docapi --help",
		},
		NoColor: noColor,
	})
}
