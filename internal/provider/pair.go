package provider

import (
	"strings"
)

// Pair is a base/quote instrument combination such as USD against BRL.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair accepts "USD-BRL", "usd-brl" or "USDBRL".
func ParsePair(s string) (Pair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	var base, quote string
	switch {
	case len(s) == 7 && s[3] == '-':
		base, quote = s[:3], s[4:]
	case len(s) == 6:
		base, quote = s[:3], s[3:]
	default:
		return Pair{}, Invalid("pair", "%q is not of the form AAA-BBB", s)
	}
	if !isCode(base) || !isCode(quote) {
		return Pair{}, Invalid("pair", "%q is not of the form AAA-BBB", s)
	}
	return Pair{Base: base, Quote: quote}, nil
}

// MustPair is ParsePair for static tables.
func MustPair(s string) Pair {
	p, err := ParsePair(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pair) String() string { return p.Base + "-" + p.Quote }

// Compact is the concatenated form used as a response key, e.g. USDBRL.
func (p Pair) Compact() string { return p.Base + p.Quote }

func isCode(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return len(s) == 3
}
