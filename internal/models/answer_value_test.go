package models

import (
	"encoding/json"
	"testing"
)

func TestAnswerValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind AnswerKind
		wantStr  string
		wantLen  int
		wantErr  bool
	}{
		{name: "null", input: `null`, wantKind: AnswerNone},
		{name: "text", input: `"Paris"`, wantKind: AnswerText, wantStr: "Paris"},
		{name: "numeric string stays text", input: `"2"`, wantKind: AnswerText, wantStr: "2"},
		{name: "number", input: `2`, wantKind: AnswerNumber, wantStr: "2"},
		{name: "float", input: `1.5`, wantKind: AnswerNumber, wantStr: "1.5"},
		{name: "bool true", input: `true`, wantKind: AnswerText, wantStr: "true"},
		{name: "bool false", input: `false`, wantKind: AnswerText, wantStr: "false"},
		{name: "list", input: `["a", 1, true]`, wantKind: AnswerList, wantLen: 3},
		{name: "empty list", input: `[]`, wantKind: AnswerList, wantLen: 0},
		{name: "nested list", input: `[["a"]]`, wantErr: true},
		{name: "null element", input: `["a", null]`, wantErr: true},
		{name: "object", input: `{"a": 1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v AnswerValue
			err := json.Unmarshal([]byte(tt.input), &v)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Kind() != tt.wantKind {
				t.Errorf("kind = %v, want %v", v.Kind(), tt.wantKind)
			}
			if tt.wantKind == AnswerList {
				if len(v.Items()) != tt.wantLen {
					t.Errorf("len = %d, want %d", len(v.Items()), tt.wantLen)
				}
				return
			}
			if v.String() != tt.wantStr {
				t.Errorf("string = %q, want %q", v.String(), tt.wantStr)
			}
		})
	}
}

func TestAnswerValue_AnswerMapDecoding(t *testing.T) {
	var answers map[string]AnswerValue
	body := `{"10": 1, "11": ["A", "C"], "12": null, "13": "  42 "}`
	if err := json.Unmarshal([]byte(body), &answers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if answers["10"].Kind() != AnswerNumber {
		t.Errorf("expected number for 10")
	}
	if answers["11"].Kind() != AnswerList || len(answers["11"].Items()) != 2 {
		t.Errorf("expected two-item list for 11")
	}
	if !answers["12"].IsNone() {
		t.Errorf("expected none for 12")
	}
	if answers["13"].Text() != "  42 " {
		t.Errorf("text must be preserved before normalization, got %q", answers["13"].Text())
	}

	out, err := json.Marshal(answers["11"])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `["A","C"]` {
		t.Errorf("marshal = %s", out)
	}
}

func TestParseAnswerValue_Empty(t *testing.T) {
	v, err := ParseAnswerValue(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.IsNone() {
		t.Errorf("expected none for empty column")
	}
}

func TestAttemptSession_LockedQuestionIDs(t *testing.T) {
	s := &AttemptSession{}
	if _, err := s.LockedQuestionIDs(); err == nil {
		t.Error("expected error for empty locked set")
	}

	if err := s.SetLockedQuestionIDs([]uint{3, 1, 2}); err != nil {
		t.Fatalf("set: %v", err)
	}
	ids, err := s.LockedQuestionIDs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 3 || ids[0] != 3 || ids[2] != 2 {
		t.Errorf("order not preserved: %v", ids)
	}

	s.QuestionIDs = []byte(`[1, 1]`)
	if _, err := s.LockedQuestionIDs(); err == nil {
		t.Error("expected error for duplicate ids")
	}

	s.QuestionIDs = []byte(`{"bad": true}`)
	if _, err := s.LockedQuestionIDs(); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestAttemptSession_OptionOrderMap(t *testing.T) {
	s := &AttemptSession{}
	if err := s.SetOptionOrderMap(map[uint][]int{7: {2, 0, 1}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	orders, err := s.OptionOrderMap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := orders[7]; len(got) != 3 || got[0] != 2 {
		t.Errorf("unexpected order: %v", got)
	}
}
