package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type AnswerKind int

const (
	AnswerNone AnswerKind = iota
	AnswerText
	AnswerNumber
	AnswerList
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerText:
		return "text"
	case AnswerNumber:
		return "number"
	case AnswerList:
		return "list"
	default:
		return "none"
	}
}

// AnswerValue is a submitted or authored answer: nothing, a string, a number,
// or a flat list of strings and numbers. Booleans decode as the text "true"/"false".
type AnswerValue struct {
	kind   AnswerKind
	text   string
	number float64
	items  []AnswerValue
}

func TextAnswer(s string) AnswerValue { return AnswerValue{kind: AnswerText, text: s} }

func NumberAnswer(n float64) AnswerValue { return AnswerValue{kind: AnswerNumber, number: n} }

// ListAnswer builds a list answer; nested lists are flattened away as they are not valid answers
func ListAnswer(items ...AnswerValue) AnswerValue {
	out := make([]AnswerValue, 0, len(items))
	for _, item := range items {
		if item.kind == AnswerText || item.kind == AnswerNumber {
			out = append(out, item)
		}
	}
	return AnswerValue{kind: AnswerList, items: out}
}

func (v AnswerValue) Kind() AnswerKind { return v.kind }

func (v AnswerValue) IsNone() bool { return v.kind == AnswerNone }

func (v AnswerValue) Text() string { return v.text }

func (v AnswerValue) Number() float64 { return v.number }

// Items returns the list elements; nil for scalar kinds
func (v AnswerValue) Items() []AnswerValue { return v.items }

// String renders a scalar the way a user would have typed it
func (v AnswerValue) String() string {
	switch v.kind {
	case AnswerText:
		return v.text
	case AnswerNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case AnswerList:
		data, _ := json.Marshal(v)
		return string(data)
	default:
		return ""
	}
}

// ParseAnswerValue decodes an authored answer column; empty input is AnswerNone
func ParseAnswerValue(raw []byte) (AnswerValue, error) {
	var v AnswerValue
	if len(bytes.TrimSpace(raw)) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return AnswerValue{}, err
	}
	return v, nil
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	decoded, err := decodeAnswer(data, true)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

func decodeAnswer(data []byte, allowList bool) (AnswerValue, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return AnswerValue{}, fmt.Errorf("empty answer value")
	}

	switch data[0] {
	case 'n':
		if string(data) == "null" && allowList {
			return AnswerValue{}, nil
		}
		return AnswerValue{}, fmt.Errorf("null is not a valid list element")
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return AnswerValue{}, err
		}
		return TextAnswer(strconv.FormatBool(b)), nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return AnswerValue{}, err
		}
		return TextAnswer(s), nil
	case '[':
		if !allowList {
			return AnswerValue{}, fmt.Errorf("nested lists are not valid answers")
		}
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return AnswerValue{}, err
		}
		items := make([]AnswerValue, 0, len(raw))
		for _, elem := range raw {
			item, err := decodeAnswer(elem, false)
			if err != nil {
				return AnswerValue{}, err
			}
			items = append(items, item)
		}
		return AnswerValue{kind: AnswerList, items: items}, nil
	case '{':
		return AnswerValue{}, fmt.Errorf("objects are not valid answers")
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return AnswerValue{}, err
		}
		return NumberAnswer(n), nil
	}
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case AnswerText:
		return json.Marshal(v.text)
	case AnswerNumber:
		return json.Marshal(v.number)
	case AnswerList:
		if v.items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.items)
	default:
		return []byte("null"), nil
	}
}
