package recognition

import (
	"regexp"
	"strings"
)

// WildcardToRegexp converts a * and ? wildcard pattern into an anchored,
// case-insensitive regular expression. Other characters match literally.
func WildcardToRegexp(pattern string) string {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// TitleMatches reports whether a window title matches a wildcard pattern.
// Patterns without wildcards compare case-insensitively.
func TitleMatches(title, pattern string) bool {
	if !strings.ContainsAny(pattern, "*?") {
		return strings.EqualFold(title, pattern)
	}
	re, err := regexp.Compile(WildcardToRegexp(pattern))
	if err != nil {
		return false
	}
	return re.MatchString(title)
}

// WindowTitlePattern extracts the title pattern from a window recognition
// string: the text after the last '=', without surrounding braces.
//
//	Type=Window;Caption={Login*}  ->  Login*
func WindowTitlePattern(raw string) string {
	rs := strings.TrimSpace(stripQuotes(StripTags(raw)))
	if i := strings.LastIndex(rs, AssignSeparator); i >= 0 {
		rs = rs[i+1:]
	}
	rs = strings.TrimSpace(rs)
	if strings.HasPrefix(rs, "{") && strings.HasSuffix(rs, "}") {
		rs = rs[1 : len(rs)-1]
	}
	return rs
}
