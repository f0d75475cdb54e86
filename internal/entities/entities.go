// Package entities pulls structured tokens (phone numbers, national ids,
// amounts, dates, area codes, emails) out of free text.
package entities

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Type names an entity kind. The values double as JSON keys on the wire.
type Type string

const (
	PhoneNumber Type = "phone_number"
	IDNumber    Type = "id_number"
	Amount      Type = "amount"
	Date        Type = "date"
	AreaCode    Type = "area_code"
	Email       Type = "email"
)

// Value holds every literal match of one type, in text order. It is never empty
// inside a Set.
type Value []string

// MarshalJSON renders a single match as a bare string and several as an array.
func (v Value) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	return json.Marshal([]string(v))
}

// UnmarshalJSON accepts either shape written by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Value{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("entity value must be a string or list of strings: %w", err)
	}
	*v = list
	return nil
}

// Set maps entity types to their matches. Absent types have no key.
type Set map[Type]Value

// Has reports whether t was extracted.
func (s Set) Has(t Type) bool {
	_, ok := s[t]
	return ok
}

// First returns the first match of t, or "".
func (s Set) First(t Type) string {
	if v := s[t]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Merge copies every key of other into s, replacing existing values.
func (s Set) Merge(other Set) {
	for k, v := range other {
		s[k] = append(Value(nil), v...)
	}
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	out.Merge(s)
	return out
}

// Pattern recognises one entity type. Group selects the submatch to keep (0 for
// the whole match). A Weak pattern's matches are dropped when they overlap a
// span claimed by any non-weak pattern, so the digits of a phone number are not
// also reported as an amount.
type Pattern struct {
	Type  Type
	Expr  *regexp.Regexp
	Group int
	Weak  bool
}

// Patterns is the recognizer table. Order has no effect on the result.
var Patterns = []Pattern{
	{Type: PhoneNumber, Expr: regexp.MustCompile(`(?:\+27|\b0)(?:6[0-9]|7[0-9]|8[0-9])\d{7}\b`)},
	{Type: IDNumber, Expr: regexp.MustCompile(`\b\d{13}\b`)},
	{Type: Amount, Expr: regexp.MustCompile(`\b(?:R\s*)?(\d+(?:,\d{3})*(?:\.\d{2})?)\b`), Group: 1, Weak: true},
	{Type: Date, Expr: regexp.MustCompile(`\b(?:\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}|\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\w*\s+\d{2,4})\b`)},
	{Type: AreaCode, Expr: regexp.MustCompile(`\b[A-Z]{2,3}\d{2,4}\b`)},
	{Type: Email, Expr: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
}

type span struct{ start, end int }

func overlaps(s span, claimed []span) bool {
	for _, c := range claimed {
		if s.start < c.end && c.start < s.end {
			return true
		}
	}
	return false
}

// Extract runs every pattern over text. It has no side effects.
func Extract(text string) Set {
	return ExtractWith(Patterns, text)
}

// ExtractWith runs a custom pattern table over text.
func ExtractWith(patterns []Pattern, text string) Set {
	var claimed []span
	for _, p := range patterns {
		if p.Weak {
			continue
		}
		for _, loc := range p.Expr.FindAllStringIndex(text, -1) {
			claimed = append(claimed, span{loc[0], loc[1]})
		}
	}

	out := Set{}
	for _, p := range patterns {
		var found Value
		for _, loc := range p.Expr.FindAllStringSubmatchIndex(text, -1) {
			if p.Weak && overlaps(span{loc[0], loc[1]}, claimed) {
				continue
			}
			g := 2 * p.Group
			if loc[g] < 0 {
				continue
			}
			found = append(found, text[loc[g]:loc[g+1]])
		}
		if len(found) > 0 {
			out[p.Type] = append(out[p.Type], found...)
		}
	}
	return out
}
