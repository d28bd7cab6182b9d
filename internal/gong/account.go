package gong

import (
	"strings"
	"unicode"
)

// TLD suffixes stripped from a customer mail domain before deriving an
// account name, tried in order.
var strippedTLDs = []string{".io", ".com", ".net", ".org", ".co"}

// AccountName derives a display name for the customer account from the first
// participant whose email is outside homeDomain: take the mail domain, strip
// a known TLD, turn hyphens into spaces, title-case the words. Returns ""
// when every participant is internal.
func AccountName(parties []Participant, homeDomain string) string {
	for _, p := range parties {
		if p.Email == "" || isInternal(p.Email, homeDomain) {
			continue
		}
		_, domain, ok := strings.Cut(p.Email, "@")
		if !ok {
			continue
		}
		for _, tld := range strippedTLDs {
			if strings.HasSuffix(domain, tld) {
				domain = strings.TrimSuffix(domain, tld)
				break
			}
		}
		return titleCase(strings.ReplaceAll(domain, "-", " "))
	}
	return ""
}

func isInternal(email, homeDomain string) bool {
	return homeDomain != "" && strings.HasSuffix(email, "@"+homeDomain)
}

// titleCase upper-cases the first letter of every letter run and lower-cases
// the rest.
func titleCase(s string) string {
	r := []rune(strings.ToLower(s))
	prevLetter := false
	for i, c := range r {
		if unicode.IsLetter(c) {
			if !prevLetter {
				r[i] = unicode.ToUpper(c)
			}
			prevLetter = true
		} else {
			prevLetter = false
		}
	}
	return string(r)
}
