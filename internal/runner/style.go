package runner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"

	"github.com/kaban-cli/kaban/internal/models"
)

type colorMode int

const (
	colorModeAuto colorMode = iota
	colorModeOn
	colorModeOff
)

// parseCommandColorFlags strips --color/--no-color from rawArgs and
// returns the requested mode. The last flag wins.
func parseCommandColorFlags(rawArgs []string) ([]string, colorMode, error) {
	mode := colorModeAuto
	filtered := make([]string, 0, len(rawArgs))
	for _, arg := range rawArgs {
		hasMode, parsedMode, parseErr := parseCommandColorFlag(arg)
		if parseErr != nil {
			return nil, colorModeAuto, parseErr
		}
		if hasMode {
			mode = parsedMode
			continue
		}
		filtered = append(filtered, arg)
	}
	return filtered, mode, nil
}

func parseCommandColorFlag(arg string) (bool, colorMode, error) {
	if arg == "--color" {
		return true, colorModeOn, nil
	}
	if arg == "--no-color" {
		return true, colorModeOff, nil
	}
	if strings.HasPrefix(arg, "--color=") {
		value, err := parseBooleanFlag(strings.TrimPrefix(arg, "--color="), "--color")
		if err != nil {
			return false, colorModeAuto, err
		}
		if value {
			return true, colorModeOn, nil
		}
		return true, colorModeOff, nil
	}
	if strings.HasPrefix(arg, "--no-color=") {
		value, err := parseBooleanFlag(strings.TrimPrefix(arg, "--no-color="), "--no-color")
		if err != nil {
			return false, colorModeAuto, err
		}
		if value {
			return true, colorModeOff, nil
		}
		return true, colorModeOn, nil
	}
	return false, colorModeAuto, nil
}

func parseBooleanFlag(value, flag string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "t", "yes", "on":
		return true, nil
	case "0", "false", "f", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid value for %s: %s", flag, value)
	}
}

func shouldUseColor(mode colorMode, out io.Writer) bool {
	switch mode {
	case colorModeOn:
		return true
	case colorModeOff:
		return false
	}
	return autoColorAllowed(out)
}

func autoColorAllowed(out io.Writer) bool {
	if parseBoolEnv("NO_COLOR") {
		return false
	}
	if value, ok := os.LookupEnv("FORCE_COLOR"); ok && strings.TrimSpace(value) != "0" {
		return true
	}
	if value, ok := os.LookupEnv("CLICOLOR_FORCE"); ok && strings.TrimSpace(value) != "0" {
		return true
	}
	if !parseBoolEnv("CLICOLOR") {
		return false
	}
	term := strings.TrimSpace(strings.ToUpper(os.Getenv("TERM")))
	if term == "DUMB" {
		return false
	}
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	info, err := file.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func parseBoolEnv(name string) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	if value == "" {
		return name == "CLICOLOR"
	}
	switch value {
	case "1", "true", "yes", "on", "always":
		return true
	default:
		return false
	}
}

// styles renders text for one output stream.
type styles struct {
	header    lipgloss.Style
	subHeader lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	err       lipgloss.Style
	muted     lipgloss.Style
}

func newStyles(out io.Writer, mode colorMode) styles {
	renderer := lipgloss.NewRenderer(out)
	if shouldUseColor(mode, out) {
		renderer.SetColorProfile(termenv.ANSI)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}
	bold := renderer.NewStyle().Bold(true)
	return styles{
		header:    bold.Foreground(lipgloss.Color("6")),
		subHeader: bold.Foreground(lipgloss.Color("4")),
		success:   bold.Foreground(lipgloss.Color("2")),
		warning:   bold.Foreground(lipgloss.Color("3")),
		err:       bold.Foreground(lipgloss.Color("1")),
		muted:     renderer.NewStyle().Faint(true),
	}
}

func (s styles) Header(text string) string    { return s.header.Render(text) }
func (s styles) SubHeader(text string) string { return s.subHeader.Render(text) }
func (s styles) Success(text string) string   { return s.success.Render(text) }
func (s styles) Warning(text string) string   { return s.warning.Render(text) }
func (s styles) Error(text string) string     { return s.err.Render(text) }
func (s styles) Muted(text string) string     { return s.muted.Render(text) }

func (s styles) taskIcon(task *models.Task) string {
	switch {
	case task.IsComplete():
		return s.Success("✓")
	case task.Recurring != models.RecurNone:
		return s.SubHeader("↻")
	case task.Done > 0:
		return s.Warning("→")
	default:
		return s.Muted("[ ]")
	}
}

func (s styles) progressBar(done, total time.Duration) string {
	const width = 20
	if total <= 0 {
		return s.Muted(strings.Repeat("░", width))
	}
	filled := int((float64(done) / float64(total)) * width)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return s.Success(strings.Repeat("█", filled)) + s.Muted(strings.Repeat("░", width-filled))
}

func relativeTime(ts time.Time, now time.Time) string {
	return humanize.RelTime(ts, now, "ago", "from now")
}
