package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
)

// OK writes a green check line.
func OK(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", okColor.Sprint("✓"), fmt.Sprintf(format, args...))
}

// Fail writes a red cross line.
func Fail(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", failColor.Sprint("✗"), fmt.Sprintf(format, args...))
}

// Warn writes a yellow notice line.
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", warnColor.Sprint("!"), fmt.Sprintf(format, args...))
}

// SetColor forces color on or off, overriding terminal detection.
func SetColor(enabled bool) {
	color.NoColor = !enabled
}
