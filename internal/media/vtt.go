package media

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
)

var bracketed = regexp.MustCompile(`\[.*?\]`)

// ExtractText flattens a WebVTT document into prose. Bracketed annotations,
// cue timings, <c> styled lines, headers, blank lines and immediate repeats
// are dropped; lines ending a sentence get a newline, the rest a space.
func ExtractText(r io.Reader) (string, error) {
	var (
		out      strings.Builder
		lastLine string
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bracketed.ReplaceAllString(scanner.Text(), "")
		if skipCaptionLine(line) || line == lastLine {
			continue
		}
		lastLine = line

		trimmed := strings.TrimSpace(line)
		out.WriteString(trimmed)
		if strings.HasSuffix(trimmed, ".") {
			out.WriteString("\n")
		} else {
			out.WriteString(" ")
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read subtitles: %w", err)
	}
	return out.String(), nil
}

func skipCaptionLine(line string) bool {
	return strings.Contains(line, "-->") ||
		strings.Contains(line, "<c>") ||
		strings.TrimSpace(line) == "" ||
		strings.HasPrefix(line, "WEBVTT") ||
		strings.HasPrefix(line, "Kind:") ||
		strings.HasPrefix(line, "Language:")
}
