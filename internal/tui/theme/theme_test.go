package theme

import "testing"

func TestByNameFallsBackToDefault(t *testing.T) {
	if got := ByName("no-such-theme").Name; got != FlexokiDark.Name {
		t.Fatalf("ByName(unknown) = %q, want %q", got, FlexokiDark.Name)
	}
	if got := ByName("neon").Accent; got != "#00F2FF" {
		t.Fatalf("neon accent = %q", got)
	}
}

func TestNamesMatchValid(t *testing.T) {
	names := Names()
	if len(names) != len(All) {
		t.Fatalf("Names() = %d entries, want %d", len(names), len(All))
	}
	for _, n := range names {
		if !Valid(n) {
			t.Errorf("Valid(%q) = false", n)
		}
	}
	if Valid("") {
		t.Error("Valid(\"\") = true")
	}
}

func TestStatusColorFollowsActive(t *testing.T) {
	defer SetActive(FlexokiDark.Name)

	SetActive("terminal")
	if StatusColor(true) != Terminal.Green || StatusColor(false) != Terminal.Red {
		t.Fatal("StatusColor does not follow the active theme")
	}
}

func TestEveryThemeFillsItsRoles(t *testing.T) {
	for _, th := range All {
		roles := map[string]string{
			"Background":  string(th.Background),
			"Surface":     string(th.Surface),
			"Border":      string(th.Border),
			"TextPrimary": string(th.TextPrimary),
			"TextMuted":   string(th.TextMuted),
			"Accent":      string(th.Accent),
			"Green":       string(th.Green),
			"Orange":      string(th.Orange),
			"Red":         string(th.Red),
		}
		for role, c := range roles {
			if c == "" {
				t.Errorf("theme %s: %s is empty", th.Name, role)
			}
		}
	}
}
