package irc

import "testing"

func TestParseModeStringChannelCategories(t *testing.T) {
	categories := ParseChanModes("b,k,l,smntiI")
	changes := ParseModeString("+sk-l", []string{"secret", "10"}, categories)
	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 3: %+v", len(changes), changes)
	}
	if changes[0].Mode.Letter != 's' || !changes[0].Enable || changes[0].Mode.Param != "" {
		t.Errorf("change[0] = %+v", changes[0])
	}
	if changes[1].Mode.Letter != 'k' || !changes[1].Enable || changes[1].Mode.Param != "secret" {
		t.Errorf("change[1] = %+v", changes[1])
	}
	if changes[2].Mode.Letter != 'l' || changes[2].Enable || changes[2].Mode.Param != "" {
		t.Errorf("change[2] (type C unset, no param) = %+v", changes[2])
	}
}

func TestParseModeStringMalformedReturnsNil(t *testing.T) {
	categories := ParseChanModes("b,k,l,smntiI")
	changes := ParseModeString("+k", nil, categories)
	if changes != nil {
		t.Errorf("expected nil for malformed mode line, got %+v", changes)
	}
}

func TestParseModeStringListMode(t *testing.T) {
	categories := ParseChanModes("b,k,l,smntiI")
	changes := ParseModeString("+b", []string{"*!*@example.com"}, categories)
	if len(changes) != 1 || changes[0].Mode.Category != ModeA || changes[0].Mode.Param != "*!*@example.com" {
		t.Errorf("got %+v", changes)
	}
}

func TestParseModeStringUserModeNoCategories(t *testing.T) {
	changes := ParseModeString("+iw-o", nil, nil)
	if len(changes) != 3 {
		t.Fatalf("got %d changes: %+v", len(changes), changes)
	}
	for _, c := range changes {
		if c.Mode.Category != ModeD {
			t.Errorf("user mode %c should default to category D, got %v", c.Mode.Letter, c.Mode.Category)
		}
	}
	if changes[2].Enable {
		t.Errorf("last change should be a '-' toggle: %+v", changes[2])
	}
}

func TestFormatModeStringGroupsSigns(t *testing.T) {
	changes := []ModeChange{
		{Mode: Mode{Letter: 's', Category: ModeD}, Enable: true},
		{Mode: Mode{Letter: 'k', Category: ModeB, Param: "secret"}, Enable: true},
		{Mode: Mode{Letter: 'l', Category: ModeC}, Enable: false},
	}
	modes, args := FormatModeString(changes)
	if modes != "+sk-l" {
		t.Errorf("modes = %q, want +sk-l", modes)
	}
	if len(args) != 1 || args[0] != "secret" {
		t.Errorf("args = %#v", args)
	}
}
