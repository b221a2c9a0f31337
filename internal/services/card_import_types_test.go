package services

import (
	"encoding/json"
	"testing"
)

func TestParseHP(t *testing.T) {
	tests := []struct {
		input FlexString
		want  int
		ok    bool
	}{
		{"60", 60, true},
		{"HP 60", 60, true},
		{"HP60", 60, true},
		{"１２０", 120, true},
		{"340+", 340, true},
		{"", 0, false},
		{"--", 0, false},
	}
	for _, tt := range tests {
		got := parseHP(tt.input)
		switch {
		case !tt.ok && got != nil:
			t.Errorf("parseHP(%q) = %d, want nil", tt.input, *got)
		case tt.ok && (got == nil || *got != tt.want):
			t.Errorf("parseHP(%q) = %v, want %d", tt.input, got, tt.want)
		}
	}
}

func TestFlexStringAcceptsNumbers(t *testing.T) {
	var in struct {
		HP FlexString `json:"hp"`
	}
	for raw, want := range map[string]FlexString{
		`{"hp":"70"}`: "70",
		`{"hp":70}`:   "70",
		`{"hp":null}`: "",
	} {
		in.HP = "stale"
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			t.Fatalf("Unmarshal(%s) returned error: %v", raw, err)
		}
		if in.HP != want {
			t.Errorf("Unmarshal(%s) HP = %q, want %q", raw, in.HP, want)
		}
	}
	if err := json.Unmarshal([]byte(`{"hp":true}`), &in); err == nil {
		t.Errorf("Unmarshal of boolean hp succeeded, want error")
	}
}

func TestNameListForms(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"ライチュウ"`, "ライチュウ"},
		{`"ライチュウ, アローラライチュウ"`, "ライチュウ,アローラライチュウ"},
		{`["ライチュウ", " アローラライチュウ ", ""]`, "ライチュウ,アローラライチュウ"},
	}
	for _, tt := range tests {
		var l NameList
		if err := json.Unmarshal([]byte(tt.raw), &l); err != nil {
			t.Fatalf("Unmarshal(%s) returned error: %v", tt.raw, err)
		}
		got := l.Joined()
		if got == nil || *got != tt.want {
			t.Errorf("Unmarshal(%s).Joined() = %v, want %q", tt.raw, got, tt.want)
		}
	}

	var empty NameList
	if err := json.Unmarshal([]byte(`" , "`), &empty); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if got := empty.Joined(); got != nil {
		t.Errorf("Joined() of blank list = %q, want nil", *got)
	}
}

func TestCardNumberFrom(t *testing.T) {
	s := func(v string) *string { return &v }

	tests := []struct {
		collector, number *string
		want              string
	}{
		{s("025/078"), nil, "025"},
		{s(" 025 / 078 "), s("999"), "025"},
		{nil, s("101"), "101"},
		{s(""), s("7"), "7"},
	}
	for _, tt := range tests {
		got := cardNumberFrom(tt.collector, tt.number)
		if got == nil || *got != tt.want {
			t.Errorf("cardNumberFrom(%v, %v) = %v, want %q", tt.collector, tt.number, got, tt.want)
		}
	}
	if got := cardNumberFrom(nil, nil); got != nil {
		t.Errorf("cardNumberFrom(nil, nil) = %q, want nil", *got)
	}
}
