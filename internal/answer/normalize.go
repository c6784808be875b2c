// Package answer validates and canonicalizes free-text answer tokens and
// parses the multi-line answer blocks used both when authoring a quiz and
// when taking one.
package answer

import (
	"errors"
	"strconv"
	"strings"
)

// MaxLen is the raw length budget of a token, not counting one leading minus.
const MaxLen = 5

var (
	errTooLong     = errors.New("answer exceeds the allowed length")
	errBadFraction = errors.New("malformed fraction")
)

// Normalize converts a single answer token into its canonical comparable
// form. Fractions like "2/3" or "-3/4" become decimals rendered to the same
// width budget as a plain token; everything else passes through verbatim
// after trimming. The length rule is checked before any conversion.
func Normalize(token string) (string, error) {
	token = strings.TrimSpace(token)
	body := strings.TrimPrefix(token, "-")
	neg := len(body) != len(token)
	if len(body) > MaxLen {
		return "", errTooLong
	}
	if strings.Count(body, "/") == 1 {
		return normalizeFraction(body, neg)
	}
	return token, nil
}

// normalizeFraction renders num/den with just enough fractional digits to
// stay within the MaxLen budget (integer digits + decimal point included),
// then strips trailing zeros and a trailing point.
func normalizeFraction(body string, neg bool) (string, error) {
	numStr, denStr, _ := strings.Cut(body, "/")
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return "", errBadFraction
	}
	den, err := strconv.Atoi(denStr)
	if err != nil || den == 0 {
		return "", errBadFraction
	}

	q := float64(num) / float64(den)
	if neg {
		q = -q
	}
	sign := ""
	if q < 0 {
		sign = "-"
		q = -q
	}

	intDigits := len(strconv.FormatInt(int64(q), 10))
	prec := MaxLen - intDigits - 1
	if prec < 0 {
		prec = 0
	}
	s := strconv.FormatFloat(q, 'f', prec, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return sign + s, nil
}

// Canonical folds a value for comparison: trimmed and lower-cased. Both the
// stored key and the submitted answer go through this before the exact-match
// check, and nothing else; there is deliberately no numeric tolerance.
func Canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
