package recognition

import "testing"

func TestTitleMatches(t *testing.T) {
	tests := []struct {
		title   string
		pattern string
		want    bool
	}{
		{"Login Page", "Login*", true},
		{"login page", "LOGIN*", true},
		{"Login Page", "Login", false},
		{"Login", "login", true},
		{"Cart (3)", "Cart (?)", true},
		{"Cart (33)", "Cart (?)", false},
		{"a.b", "a.b", true},
		{"axb", "a.b", false},
		{"Price $5", "Price $*", true},
		{"", "*", true},
	}
	for _, tt := range tests {
		if got := TitleMatches(tt.title, tt.pattern); got != tt.want {
			t.Errorf("TitleMatches(%q, %q) = %v, want %v", tt.title, tt.pattern, got, tt.want)
		}
	}
}

func TestWildcardToRegexp(t *testing.T) {
	if got := WildcardToRegexp("a*b?.c"); got != `(?i)^a.*b.\.c$` {
		t.Errorf("unexpected regexp %q", got)
	}
}

func TestWindowTitlePattern(t *testing.T) {
	tests := map[string]string{
		`Type=Window;Caption={Login*}`:                    "Login*",
		`Type=Window;Caption=Home`:                       "Home",
		`ISDYNAMIC;RECOGNITION=Type=Window;Caption={A*}`: "A*",
		`"Type=Window;Caption={Shop}"`:                   "Shop",
		`Main`:                                           "Main",
	}
	for in, want := range tests {
		if got := WindowTitlePattern(in); got != want {
			t.Errorf("WindowTitlePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
