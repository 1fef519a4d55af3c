package sanitizer

import (
	"net/url"
	"regexp"
	"strings"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reIdentifier     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	reAccountSeps    = regexp.MustCompile(`[\s\-.]+`)
	reAccountNumber  = regexp.MustCompile(`^[A-Z0-9]+$`)
	reDigitsOnly     = regexp.MustCompile(`^[0-9]+$`)
	maxIdentifierLen = 64
)

func trim(s string) string {
	return strings.TrimSpace(s)
}

func upper(s string) string {
	return strings.ToUpper(s)
}

func onlyIf(re *regexp.Regexp) Strategy {
	return func(s string) string {
		if !re.MatchString(s) {
			return ""
		}
		return s
	}
}

func SanitizeIdentifier(input string) string {
	p := Pipeline{
		trim,
		onlyIf(reIdentifier),
		func(s string) string {
			if len(s) > maxIdentifierLen {
				return ""
			}
			return s
		},
	}
	return p.Apply(input)
}

// SanitizeAccountNumber strips grouping separators, so "pl61 1090-1014" and
// "PL6110901014" compare equal.
func SanitizeAccountNumber(input string) string {
	p := Pipeline{
		trim,
		func(s string) string { return reAccountSeps.ReplaceAllString(s, "") },
		upper,
		onlyIf(reAccountNumber),
	}
	return p.Apply(input)
}

func SanitizePin(input string) string {
	p := Pipeline{
		trim,
		onlyIf(reDigitsOnly),
	}
	return p.Apply(input)
}

func SanitizeBaseURL(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
