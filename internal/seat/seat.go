// Package seat converts between the stored seat-list text and ordered seat tokens.
//
// The stored form is a bracketed, comma-separated list such as "[10,14]".
// Decoding is lenient: brackets and double quotes are stripped wherever they
// appear, so legacy values like `["10","14"]` or a truncated "[10,14" still
// produce usable tokens.
package seat

import "strings"

var stripper = strings.NewReplacer("[", "", "]", "", `"`, "")

// Decode returns the seat tokens in raw, in order. It never fails.
func Decode(raw string) []string {
	cleaned := stripper.Replace(raw)
	if strings.TrimSpace(cleaned) == "" {
		return []string{}
	}

	parts := strings.Split(cleaned, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}

// Encode renders tokens in the canonical "[a,b,c]" form.
// Tokens are trimmed and empty ones skipped, so Decode(Encode(x)) == x
// for any x returned by Decode.
func Encode(tokens []string) string {
	var b strings.Builder
	b.WriteByte('[')
	first := true
	for _, t := range tokens {
		t = strings.TrimSpace(stripper.Replace(t))
		if t == "" {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		b.WriteString(t)
		first = false
	}
	b.WriteByte(']')
	return b.String()
}

// Duplicates returns each token that appears more than once, in order of
// its second occurrence.
func Duplicates(tokens []string) []string {
	seen := make(map[string]int, len(tokens))
	var dups []string
	for _, t := range tokens {
		seen[t]++
		if seen[t] == 2 {
			dups = append(dups, t)
		}
	}
	return dups
}

// Intersect returns the tokens of requested that are present in taken,
// preserving the order of requested.
func Intersect(requested, taken []string) []string {
	if len(requested) == 0 || len(taken) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		set[t] = struct{}{}
	}
	var out []string
	for _, r := range requested {
		if _, ok := set[r]; ok {
			out = append(out, r)
		}
	}
	return out
}
