package attempt

import (
	"regexp"
	"strings"
)

// File name suffixes for the two encoded export flavors.
const (
	OfflineAnswersSuffix = "_answers_offline.txt"
	EncodedPaperSuffix   = "_encrypted.txt"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExportFileName derives a download file name from a quiz title: whitespace
// runs collapse to underscores and the given suffix is appended.
func ExportFileName(title, suffix string) string {
	name := whitespaceRun.ReplaceAllString(strings.TrimSpace(title), "_")
	if name == "" {
		name = "quiz"
	}
	return name + suffix
}
