package answer

import "testing"

func TestCheck_Integer(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"42", true},
		{" 42 ", true},
		{"042", true},
		{"43", false},
		{"", false},
		{"abc", false},
	}

	for _, tc := range tests {
		got := Check(Payload{Expected: "42", Given: tc.input, Type: TypeInteger})
		if got != tc.want {
			t.Errorf("Check(%q, 42/integer) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestCheck_Decimal(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"3.5", true},
		{"3.50", true},
		{" 3.5 ", true},
		{"3.6", false},
	}

	for _, tc := range tests {
		got := Check(Payload{Expected: "3.5", Given: tc.input, Type: TypeDecimal})
		if got != tc.want {
			t.Errorf("Check(%q, 3.5/decimal) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestCheck_Fraction(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1/2", true},
		{"2/4", true},
		{"-1/-2", true},
		{"1/3", false},
		{"1/0", false},
		{"half", false},
	}

	for _, tc := range tests {
		got := Check(Payload{Expected: "1/2", Given: tc.input, Type: TypeFraction})
		if got != tc.want {
			t.Errorf("Check(%q, 1/2/fraction) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestCheck_Choice(t *testing.T) {
	choices := []string{"3", "4", "5", "6"}

	if !Check(Payload{Expected: "5", Given: "3", Type: TypeChoice, Choices: choices}) {
		t.Error("index 3 should select choice \"5\"")
	}
	if Check(Payload{Expected: "5", Given: "2", Type: TypeChoice, Choices: choices}) {
		t.Error("index 2 selects \"4\", want incorrect")
	}
	if !Check(Payload{Expected: "Paris", Given: "paris", Type: TypeChoice, Choices: []string{"London", "Paris"}}) {
		t.Error("text match should be case-insensitive")
	}
}

func TestCheck_TextContainment(t *testing.T) {
	tests := []struct {
		expected, given string
		want            bool
	}{
		{"x = 4", "X = 4", true},
		{"4", "the answer is 4", true},
		{"hypotenuse", "Hypotenuse squared", true},
		{"cosine", "sine", false},
		{"", "anything", false},
	}

	for _, tc := range tests {
		got := Check(Payload{Expected: tc.expected, Given: tc.given, Type: TypeText})
		if got != tc.want {
			t.Errorf("Check(%q, %q/text) = %v, want %v", tc.given, tc.expected, got, tc.want)
		}
	}
}

func TestNumeric(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"12", 12, true},
		{"-3.25", -3.25, true},
		{"3,5", 3.5, true},
		{"3/4", 0.75, true},
		{"1/0", 0, false},
		{"x=4", 0, false},
		{"", 0, false},
	}

	for _, tc := range tests {
		got, ok := Numeric(tc.in)
		if ok != tc.wantOK || (ok && got != tc.want) {
			t.Errorf("Numeric(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestType_Valid(t *testing.T) {
	for _, ty := range []Type{TypeInteger, TypeDecimal, TypeFraction, TypeChoice, TypeText, ""} {
		if !ty.Valid() {
			t.Errorf("%q should be valid", ty)
		}
	}
	if Type("matrix").Valid() {
		t.Error("unknown type reported valid")
	}
}
