package store

import (
	"fmt"
	"regexp"
	"strings"
)

const maxTitleLength = 80

var (
	invalidFilenameChars = regexp.MustCompile(`[<>"/\\|?*]`)
	multiSpace           = regexp.MustCompile(`\s+`)
)

// SanitizeTitle makes a document title safe for use in filenames.
func SanitizeTitle(title string) string {
	t := strings.ReplaceAll(title, ":", " -")
	t = invalidFilenameChars.ReplaceAllString(t, "")
	t = strings.TrimSpace(multiSpace.ReplaceAllString(t, " "))
	if runes := []rune(t); len(runes) > maxTitleLength {
		t = string(runes[:maxTitleLength])
		if idx := strings.LastIndex(t, " "); idx > 0 {
			t = t[:idx]
		}
		t = strings.TrimRight(t, " -")
	}
	return t
}

// SummaryFilename is the standard summary name, e.g.
// "[Doc][2503.10291] VisualPRM - An Effective Process Reward Model.md".
func SummaryFilename(id, title string) string {
	return fmt.Sprintf("[Doc][%s] %s.md", id, SanitizeTitle(title))
}

func AudioFilename(id string) string {
	return id + ".mp3"
}

func SourceFilename(id string) string {
	return id + ".pdf"
}
