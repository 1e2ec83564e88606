package logo

import "testing"

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Alpha", "A"},
		{"alpha wolves", "AW"},
		{"Team Liquid Esports", "TL"},
		{"  fnatic  ", "F"},
		{"cloud-9", "C9"},
		{"", "?"},
		{"!!! ???", "?"},
		{"équipe rouge", "ÉR"},
	}
	for _, tt := range tests {
		if got := Initials(tt.name); got != tt.want {
			t.Errorf("Initials(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestDisplay_NilResultGoesStraightToInitials(t *testing.T) {
	d := NewDisplay(nil, "Bravo")
	if src, ok := d.Source(); ok {
		t.Fatalf("Source() = %q, want none", src)
	}
	if got := d.Initials(); got != "B" {
		t.Fatalf("Initials() = %q, want %q", got, "B")
	}
}

func TestDisplay_SkipsDuplicateAndEmptyFallback(t *testing.T) {
	tests := []struct {
		name string
		res  Result
	}{
		{name: "same locator", res: Result{URL: "/logos/a.png", FallbackURL: "/logos/a.png"}},
		{name: "no fallback", res: Result{URL: "/logos/a.png"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDisplay(&tt.res, "Alpha")
			if src, ok := d.Source(); !ok || src != "/logos/a.png" {
				t.Fatalf("Source() = %q, %v", src, ok)
			}
			d.Failed()
			if src, ok := d.Source(); ok {
				t.Fatalf("Source() after failure = %q, want initials", src)
			}
			d.Failed()
			if got := d.Initials(); got != "A" {
				t.Fatalf("Initials() = %q, want %q", got, "A")
			}
		})
	}
}

func TestDisplay_PrefersResultTeamName(t *testing.T) {
	d := NewDisplay(&Result{URL: "/x.png", TeamName: "Zeta Division"}, "ignored")
	if got := d.Initials(); got != "ZD" {
		t.Fatalf("Initials() = %q, want %q", got, "ZD")
	}
}
