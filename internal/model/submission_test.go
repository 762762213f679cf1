package model

import (
	"errors"
	"testing"
)

func TestParseFinalAnswerSet(t *testing.T) {
	raw := []byte(`{
		"quiz_id": "9f2c7a1e-0000-4000-8000-000000000001",
		"roll_no": "R-42",
		"student_name": "Asha",
		"answers": [
			{"question": 1, "answer": "A"},
			{"question": 2, "answer": ""},
			{"question": 3, "answer": "E"}
		]
	}`)

	set, err := ParseFinalAnswerSet(raw)
	if err != nil {
		t.Fatalf("ParseFinalAnswerSet: %v", err)
	}
	if set.RollNo != "R-42" || len(set.Answers) != 3 {
		t.Fatalf("unexpected set: %+v", set)
	}
	if set.Answers[1].Answer != "" {
		t.Fatalf("unanswered entry should stay empty, got %q", set.Answers[1].Answer)
	}
}

func TestParseFinalAnswerSetRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `question one was tricky`},
		{"json but wrong shape", `[1, 2, 3]`},
		{"missing quiz id", `{"roll_no": "R-1", "answers": [{"question": 1, "answer": "A"}]}`},
		{"missing roll no", `{"quiz_id": "q", "answers": [{"question": 1, "answer": "A"}]}`},
		{"empty answers", `{"quiz_id": "q", "roll_no": "R-1", "answers": []}`},
		{"sparse numbering", `{"quiz_id": "q", "roll_no": "R-1", "answers": [{"question": 1, "answer": "A"}, {"question": 3, "answer": "B"}]}`},
		{"zero-based numbering", `{"quiz_id": "q", "roll_no": "R-1", "answers": [{"question": 0, "answer": "A"}]}`},
		{"option outside alphabet", `{"quiz_id": "q", "roll_no": "R-1", "answers": [{"question": 1, "answer": "F"}]}`},
		{"multi-letter option", `{"quiz_id": "q", "roll_no": "R-1", "answers": [{"question": 1, "answer": "AB"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFinalAnswerSet([]byte(tt.raw)); !errors.Is(err, ErrMalformedAnswerSet) {
				t.Fatalf("expected ErrMalformedAnswerSet, got %v", err)
			}
		})
	}
}

func TestValidOption(t *testing.T) {
	for _, ok := range []string{"", "A", "B", "C", "D", "E"} {
		if !ValidOption(ok) {
			t.Errorf("ValidOption(%q) = false, want true", ok)
		}
	}
	for _, bad := range []string{"a", "F", "AB", " ", "1"} {
		if ValidOption(bad) {
			t.Errorf("ValidOption(%q) = true, want false", bad)
		}
	}
}
