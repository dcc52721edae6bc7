// Package amountwords renders peso amounts as the legal text printed on
// recommendation records.
package amountwords

import (
	"errors"
	"fmt"
	"strings"
)

// Limit is the smallest amount that no longer fits in five digit groups.
const Limit int64 = 1_000_000_000_000_000

// Suffix is appended to every rendered amount.
const Suffix = "pesos only"

// ErrOutOfRange is returned for negative amounts and amounts of Limit or more.
var ErrOutOfRange = errors.New("amountwords: amount out of range")

var (
	scales = [...]string{"", "thousand", "million", "billion", "trillion"}
	ones   = [...]string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}
	teens  = [...]string{"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen", "eighteen", "nineteen"}
	tens   = [...]string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}
)

// Format converts amount into words, e.g. 55000 becomes
// "Fifty five thousand pesos only".
func Format(amount int64) (string, error) {
	if amount < 0 || amount >= Limit {
		return "", fmt.Errorf("%w: %d", ErrOutOfRange, amount)
	}
	if amount == 0 {
		return "Zero " + Suffix, nil
	}

	var groups []int64
	for n := amount; n > 0; n /= 1000 {
		groups = append(groups, n%1000)
	}

	words := make([]string, 0, 8)
	for scale := len(groups) - 1; scale >= 0; scale-- {
		g := groups[scale]
		if g == 0 {
			continue
		}
		words = appendGroup(words, g)
		if scale > 0 {
			words = append(words, scales[scale])
		}
	}

	text := strings.Join(words, " ")
	return strings.ToUpper(text[:1]) + text[1:] + " " + Suffix, nil
}

// MustFormat is like Format but panics on out of range input. Use it only on
// amounts that were already validated.
func MustFormat(amount int64) string {
	s, err := Format(amount)
	if err != nil {
		panic(err)
	}
	return s
}

func appendGroup(words []string, g int64) []string {
	if h := g / 100; h > 0 {
		words = append(words, ones[h], "hundred")
	}
	rest := g % 100
	switch {
	case rest >= 20:
		words = append(words, tens[rest/10])
		if u := rest % 10; u > 0 {
			words = append(words, ones[u])
		}
	case rest >= 10:
		words = append(words, teens[rest-10])
	case rest > 0:
		words = append(words, ones[rest])
	}
	return words
}
