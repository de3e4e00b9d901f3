package ui

import "testing"

func TestThemeNames(t *testing.T) {
	names := ThemeNames()
	want := []string{"Nightfox", "Kanagawa", "Slate"}
	if len(names) != len(want) {
		t.Fatalf("ThemeNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("ThemeNames() = %v, want %v", names, want)
		}
	}
}

func TestNextTheme(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Nightfox", "Kanagawa"},
		{"Kanagawa", "Slate"},
		{"Slate", "Nightfox"},
		{"Unknown", "Nightfox"},
	}
	for _, tc := range cases {
		if got := NextTheme(tc.in); got != tc.want {
			t.Fatalf("NextTheme(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestGetTheme_FallsBackToNightfox(t *testing.T) {
	if got := GetTheme("Slate").Name; got != "Slate" {
		t.Fatalf("GetTheme(Slate).Name = %q, want Slate", got)
	}
	if got := GetTheme("Unknown").Name; got != "Nightfox" {
		t.Fatalf("GetTheme(Unknown).Name = %q, want Nightfox (fallback)", got)
	}
}

func TestStateColor(t *testing.T) {
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		styles := th.Styles()
		for _, state := range []string{"online", "offline", "clear", "detected", "cooldown", "error", "warning", "info"} {
			if got := styles.StateColor(state); got != th.StateColors[state] || got == "" {
				t.Fatalf("%s StateColor(%s) = %q, want %q", name, state, got, th.StateColors[state])
			}
		}
		if got := styles.StateColor("other"); got != th.Muted {
			t.Fatalf("%s StateColor(other) = %q, want muted %q", name, got, th.Muted)
		}
	}
}
