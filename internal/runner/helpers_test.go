package runner

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kaban-cli/kaban/internal/guard"
	"github.com/kaban-cli/kaban/internal/models"
)

func TestSuggestCommands(t *testing.T) {
	t.Parallel()

	known := []string{"add", "bag", "done", "estimate", "init", "list", "log", "pull", "push", "remote", "rm", "show"}
	cases := []struct {
		raw      string
		expected []string
	}{
		{raw: "ad", expected: []string{"add", "bag", "rm"}},
		{raw: "pus", expected: []string{"push", "pull"}},
		{raw: "lst", expected: []string{"list", "log"}},
		{raw: "", expected: nil},
		{raw: "zzzzzzzz", expected: []string{}},
	}
	for _, tc := range cases {
		got := suggestCommands(tc.raw, known, 4)
		if tc.expected == nil {
			if got != nil {
				t.Fatalf("suggestCommands(%q) = %v, expected nil", tc.raw, got)
			}
			continue
		}
		if !reflect.DeepEqual(got, tc.expected) {
			t.Fatalf("suggestCommands(%q) = %v, expected %v", tc.raw, got, tc.expected)
		}
	}
}

func TestCommandDistance(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b     string
		expected int
	}{
		{a: "push", b: "push", expected: 0},
		{a: "", b: "log", expected: 3},
		{a: "pull", b: "push", expected: 2},
		{a: "list", b: "lst", expected: 1},
		{a: "done", b: "dnoe", expected: 2},
	}
	for _, tc := range cases {
		if got := commandDistance(tc.a, tc.b); got != tc.expected {
			t.Fatalf("commandDistance(%q, %q) = %d, expected %d", tc.a, tc.b, got, tc.expected)
		}
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	valid := map[string]time.Duration{
		"45":    45 * time.Minute,
		"30m":   30 * time.Minute,
		"1h30m": 90 * time.Minute,
		" 2h ":  2 * time.Hour,
	}
	for raw, expected := range valid {
		got, err := parseDuration(raw)
		if err != nil || got != expected {
			t.Fatalf("parseDuration(%q) = %v, %v, expected %v", raw, got, err, expected)
		}
	}
	for _, raw := range []string{"", "0", "-5", "-1h", "soon", "3 hours"} {
		if _, err := parseDuration(raw); !errors.Is(err, models.ErrInvalidDuration) {
			t.Fatalf("parseDuration(%q) = %v, expected ErrInvalidDuration", raw, err)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	cases := map[time.Duration]string{
		0:                            "0m",
		45 * time.Minute:             "45m",
		2 * time.Hour:                "2h",
		2*time.Hour + 45*time.Minute: "2h45m",
		90 * time.Second:             "1m30s",
		26*time.Hour + 5*time.Second: "26h0m5s",
	}
	for d, expected := range cases {
		if got := formatDuration(d); got != expected {
			t.Fatalf("formatDuration(%v) = %q, expected %q", d, got, expected)
		}
	}
}

func TestParseCommandColorFlags(t *testing.T) {
	t.Parallel()

	args, mode, err := parseCommandColorFlags([]string{"list", "--color", "--bag", "Work", "--no-color"})
	if err != nil {
		t.Fatalf("parseCommandColorFlags() error = %v", err)
	}
	if mode != colorModeOff {
		t.Fatalf("mode = %v, expected last flag to win", mode)
	}
	if !reflect.DeepEqual(args, []string{"list", "--bag", "Work"}) {
		t.Fatalf("args = %v", args)
	}

	_, mode, err = parseCommandColorFlags([]string{"--color=yes"})
	if err != nil || mode != colorModeOn {
		t.Fatalf("--color=yes = %v, %v", mode, err)
	}
	if _, _, err := parseCommandColorFlags([]string{"--color=maybe"}); err == nil {
		t.Fatalf("expected error for --color=maybe")
	}
}

func TestStylesWithoutColorArePlain(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	s := newStyles(&out, colorModeOff)
	if got := s.Error("boom"); got != "boom" {
		t.Fatalf("Error() = %q, expected plain text", got)
	}
	if shouldUseColor(colorModeOff, &out) {
		t.Fatalf("shouldUseColor(off) = true")
	}
	if !shouldUseColor(colorModeOn, &out) {
		t.Fatalf("shouldUseColor(on) = false")
	}
}

func TestParseInvocation(t *testing.T) {
	t.Parallel()

	inv, err := parseInvocation(commandTable["log"], []string{"Work/2", "30m", "-q", "extra", "--bag", "x", "--wat"})
	if err != nil {
		t.Fatalf("parseInvocation() error = %v", err)
	}
	if inv.object != "Work/2" || !reflect.DeepEqual(inv.values, []string{"30m"}) {
		t.Fatalf("object = %q values = %v", inv.object, inv.values)
	}
	if !inv.flags.quiet {
		t.Fatalf("expected -q to set quiet")
	}
	if !reflect.DeepEqual(inv.trailing, []string{"extra", "--wat", "--bag"}) {
		t.Fatalf("trailing = %v", inv.trailing)
	}

	inv, err = parseInvocation(commandTable["add"], []string{"Buy milk", "--estimate=45m", "--every", "daily"})
	if err != nil {
		t.Fatalf("parseInvocation() error = %v", err)
	}
	if inv.flags.estimate != "45m" || inv.flags.every != "daily" || len(inv.trailing) != 0 {
		t.Fatalf("flags = %+v trailing = %v", inv.flags, inv.trailing)
	}

	if _, err := parseInvocation(commandTable["add"], []string{"Milk", "--notes"}); !errors.Is(err, guard.ErrUnknownOptions) {
		t.Fatalf("missing flag value = %v, expected ErrUnknownOptions", err)
	}
}
