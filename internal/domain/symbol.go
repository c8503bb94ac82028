package domain

import (
	"regexp"
	"strings"
)

type Symbol string

var symbolRe = regexp.MustCompile(`^[A-Z][A-Z0-9.]{0,9}$`)

// NormalizeSymbol trims whitespace and uppercases a raw ticker string.
func NormalizeSymbol(s string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(s)))
}

// ValidateSymbol checks format via the shared precompiled regex.
func ValidateSymbol(s Symbol) bool {
	return symbolRe.MatchString(string(s))
}
