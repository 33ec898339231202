package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/tanq16/qurandl/internal/utils"
	"golang.org/x/term"
)

// FormatSpeed formats a transfer rate from a byte count and elapsed seconds.
func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	return utils.FormatBytes(uint64(float64(bytes)/elapsed)) + "/s"
}

// PrintProgressBar renders a bar for current out of total. A non-positive
// total renders the byte count alone since the size is unknown.
func PrintProgressBar(current, total int64, width int) string {
	if total <= 0 {
		return debugStyle.Render(fmt.Sprintf("%s %s %s ", StyleSymbols["bullet"], utils.FormatBytes(uint64(max(0, current))), StyleSymbols["bullet"]))
	}
	if width <= 0 {
		width = 30
	}
	current = max(0, min(current, total))
	percent := float64(current) / float64(total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	if filled < width {
		bar += strings.Repeat(" ", width-filled)
	}
	bar += StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %.1f%% %s ", bar, percent*100, StyleSymbols["bullet"]))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalSize(w io.Writer) (int, int) {
	if f, ok := w.(*os.File); ok {
		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil && width > 0 && height > 0 {
			return width, height
		}
	}
	return 80, 24
}

func wrapText(text string, width, indent int) []string {
	maxWidth := width - indent - 2
	if maxWidth <= 10 {
		maxWidth = 80
	}
	if utf8.RuneCountInString(text) <= maxWidth {
		return []string{text}
	}
	var lines []string
	var current strings.Builder
	count := 0
	for _, r := range text {
		if count == maxWidth {
			lines = append(lines, current.String())
			current.Reset()
			count = 0
		}
		current.WriteRune(r)
		count++
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
