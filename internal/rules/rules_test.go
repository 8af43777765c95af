package rules

import "testing"

func TestRuleMatches(t *testing.T) {
	var exclude Rule
	exclude.AddPattern("artist", "tours")

	tests := []struct {
		name string
		tags map[string]string
		want bool
	}{
		{
			name: "exact value",
			tags: map[string]string{"artist": "tours"},
			want: true,
		},
		{
			name: "case insensitive",
			tags: map[string]string{"artist": "Tours"},
			want: true,
		},
		{
			name: "substring",
			tags: map[string]string{"artist": "Detours Ahead"},
			want: true,
		},
		{
			name: "different artist",
			tags: map[string]string{"artist": "jahzzar"},
			want: false,
		},
		{
			name: "missing tag never matches",
			tags: map[string]string{"album": "tours"},
			want: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := exclude.Matches(test.tags); got != test.want {
				t.Errorf("Matches(%v) = %v, want %v", test.tags, got, test.want)
			}
		})
	}
}

func TestRulePatternsAreConjunctive(t *testing.T) {
	var exclude Rule
	exclude.AddPattern("artist", "jahzzar")
	exclude.AddPattern("album", "traveller")

	if !exclude.Matches(map[string]string{"artist": "Jahzzar", "album": "Traveller's Guide"}) {
		t.Error("expected match when every pattern matches")
	}
	if exclude.Matches(map[string]string{"artist": "Jahzzar", "album": "Siesta"}) {
		t.Error("expected no match when one pattern fails")
	}
}

func TestEmptyRuleMatchesNothing(t *testing.T) {
	var empty Rule
	if empty.Matches(map[string]string{"artist": "anything"}) {
		t.Error("empty rule must not match")
	}
}

func TestAccepted(t *testing.T) {
	rs, err := ParseAll([]string{"artist=tours", "artist=jahzzar,album=traveller"})
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}

	tests := []struct {
		name string
		tags map[string]string
		want bool
	}{
		{
			name: "first rule excludes",
			tags: map[string]string{"artist": "Tours"},
			want: false,
		},
		{
			name: "second rule excludes",
			tags: map[string]string{"artist": "Jahzzar", "album": "Traveller's Guide"},
			want: false,
		},
		{
			name: "partial second rule accepts",
			tags: map[string]string{"artist": "Jahzzar", "album": "Siesta"},
			want: true,
		},
		{
			name: "unrelated track accepts",
			tags: map[string]string{"artist": "BoxCat Games"},
			want: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Accepted(rs, test.tags); got != test.want {
				t.Errorf("Accepted(%v) = %v, want %v", test.tags, got, test.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{"", "artist", "artist=", "=tours", "artist=ok,broken"}
	for _, spec := range bad {
		if _, err := Parse(spec); err == nil {
			t.Errorf("Parse(%q) succeeded, expected error", spec)
		}
	}
}

func TestParseTagCaseInsensitive(t *testing.T) {
	r, err := Parse("Artist=tours")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !r.Matches(map[string]string{"artist": "tours"}) {
		t.Error("expected tag names to be case-insensitive")
	}
}
