package attempt

import "testing"

func TestExportFileName(t *testing.T) {
	tests := []struct {
		title  string
		suffix string
		want   string
	}{
		{"Weekly Science Quiz", OfflineAnswersSuffix, "Weekly_Science_Quiz_answers_offline.txt"},
		{"Weekly Science Quiz", EncodedPaperSuffix, "Weekly_Science_Quiz_encrypted.txt"},
		{"  padded   title ", OfflineAnswersSuffix, "padded_title_answers_offline.txt"},
		{"Single", EncodedPaperSuffix, "Single_encrypted.txt"},
		{"tabs\tand\nnewlines", OfflineAnswersSuffix, "tabs_and_newlines_answers_offline.txt"},
		{"", OfflineAnswersSuffix, "quiz_answers_offline.txt"},
		{"   ", EncodedPaperSuffix, "quiz_encrypted.txt"},
	}

	for _, tt := range tests {
		if got := ExportFileName(tt.title, tt.suffix); got != tt.want {
			t.Errorf("ExportFileName(%q, %q) = %q, want %q", tt.title, tt.suffix, got, tt.want)
		}
	}
}
