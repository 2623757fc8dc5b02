package seat

import (
	"reflect"
	"testing"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "single", raw: "[34]", want: []string{"34"}},
		{name: "pair", raw: "[1,2]", want: []string{"1", "2"}},
		{name: "empty", raw: "", want: []string{}},
		{name: "empty brackets", raw: "[]", want: []string{}},
		{name: "whitespace", raw: "[ 10 , 14 ]", want: []string{"10", "14"}},
		{name: "missing close bracket", raw: "[10,14", want: []string{"10", "14"}},
		{name: "quoted tokens", raw: `["A1","A2"]`, want: []string{"A1", "A2"}},
		{name: "empty pieces", raw: "[1,,2, ]", want: []string{"1", "2"}},
		{name: "no brackets", raw: "7,8", want: []string{"7", "8"}},
		{name: "duplicates kept", raw: "[3,3]", want: []string{"3", "3"}},
		{name: "leading zero is distinct", raw: "[01,1]", want: []string{"01", "1"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Decode(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	if got := Encode([]string{"10", "14"}); got != "[10,14]" {
		t.Errorf("expected [10,14], got %s", got)
	}
	if got := Encode(nil); got != "[]" {
		t.Errorf("expected [], got %s", got)
	}
	if got := Encode([]string{" 5 ", "", "6"}); got != "[5,6]" {
		t.Errorf("expected [5,6], got %s", got)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{"[34]", "[1,2]", "", "[ 10 , 14 ]", "[10,14", `["B2", "B3"]`, "[,]"}
	for _, raw := range inputs {
		decoded := Decode(raw)
		again := Decode(Encode(decoded))
		if !reflect.DeepEqual(decoded, again) {
			t.Errorf("round trip of %q: %#v != %#v", raw, decoded, again)
		}
	}
}

func TestDuplicates(t *testing.T) {
	t.Parallel()

	if got := Duplicates([]string{"1", "2", "1", "3", "2", "1"}); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Errorf("unexpected duplicates %#v", got)
	}
	if got := Duplicates([]string{"1", "2"}); len(got) != 0 {
		t.Errorf("expected no duplicates, got %#v", got)
	}
}

func TestIntersect(t *testing.T) {
	t.Parallel()

	got := Intersect([]string{"5", "6", "7"}, []string{"7", "1", "5"})
	if !reflect.DeepEqual(got, []string{"5", "7"}) {
		t.Errorf("unexpected intersection %#v", got)
	}
	if got := Intersect([]string{"1"}, nil); got != nil {
		t.Errorf("expected nil, got %#v", got)
	}
}
