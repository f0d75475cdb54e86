// Package intent scores free text against declarative pattern tables and picks
// one intent label with a confidence in [0, 1].
package intent

import (
	"regexp"
	"strings"
)

// Intent is a classified purpose of a message.
type Intent string

const (
	BursaryApplication Intent = "bursary_application"
	IssueReporting     Intent = "issue_reporting"
	StatusCheck        Intent = "status_check"
	InformationRequest Intent = "information_request"
	AreaInquiry        Intent = "area_inquiry"
	ContactInfo        Intent = "contact_info"
	Emergency          Intent = "emergency"
	Greeting           Intent = "greeting"
	Goodbye            Intent = "goodbye"
	Complaint          Intent = "complaint"
	Unknown            Intent = "unknown"
)

const (
	// MatchIncrement is added per pattern occurrence, scaled by weight.
	MatchIncrement = 0.3
	// MatchBonus is added once for every pattern that matches at all.
	MatchBonus = 0.2
	// MinConfidence must be exceeded for a label other than Unknown.
	MinConfidence = 0.2
)

// Pattern is one weighted regular expression. Expressions run against the
// lower-cased, trimmed input.
type Pattern struct {
	Expr   *regexp.Regexp
	Weight float64
}

// Rule binds an intent to its patterns.
type Rule struct {
	Intent   Intent
	Patterns []Pattern
}

func p(expr string) Pattern {
	return Pattern{Expr: regexp.MustCompile(expr), Weight: 1.0}
}

// DefaultRules is the built-in table. Its order breaks score ties.
// Complaint has no patterns; it is reachable only through custom tables.
var DefaultRules = []Rule{
	{BursaryApplication, []Pattern{
		p(`\b(bursary|scholarship|funding|financial aid|study help)\b`),
		p(`\b(apply|application|register)\b.*\b(bursary|funding)\b`),
		p(`\b(school|university|college)\b.*\b(money|help|assistance)\b`),
	}},
	{IssueReporting, []Pattern{
		p(`\b(problem|issue|complaint|report)\b`),
		p(`\b(broken|damaged|not working|faulty)\b`),
		p(`\b(water|electricity|road|street light|garbage)\b.*\b(problem|issue)\b`),
		p(`\b(report)\b.*\b(problem|issue|fault)\b`),
	}},
	{StatusCheck, []Pattern{
		p(`\b(status|check|progress|update)\b`),
		p(`\b(application)\b.*\b(status|progress)\b`),
		p(`\b(where is my|what happened to my|how is my)\b`),
	}},
	{InformationRequest, []Pattern{
		p(`\b(information|info|details|help|how)\b`),
		p(`\b(what is|how do|where can|when will)\b`),
		p(`\b(explain|tell me|show me)\b`),
	}},
	{AreaInquiry, []Pattern{
		p(`\b(area|location|address|where)\b`),
		p(`\b(which area|what area|area code)\b`),
		p(`\b(boundaries|coverage|district)\b`),
	}},
	{ContactInfo, []Pattern{
		p(`\b(contact|phone|call|office|address)\b`),
		p(`\b(speak to|talk to|reach|get hold)\b`),
		p(`\b(office hours|when open|opening times)\b`),
	}},
	{Emergency, []Pattern{
		p(`\b(emergency|urgent|critical|help)\b`),
		p(`\b(immediately|right now|asap|quickly)\b`),
		p(`\b(fire|ambulance|police|danger)\b`),
	}},
	{Greeting, []Pattern{
		p(`\b(hello|hi|hey|good morning|good afternoon|greetings)\b`),
		p(`\b(start|begin|menu|options)\b`),
	}},
	{Goodbye, []Pattern{
		p(`\b(bye|goodbye|exit|quit|stop|end|finish|thanks|thank you)\b`),
		p(`\b(that's all|nothing else|i'm done)\b`),
	}},
	{Complaint, nil},
}

// Classifier is safe for concurrent use; its table is never mutated.
type Classifier struct {
	rules []Rule
}

// NewClassifier uses rules, or DefaultRules when rules is nil.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

// Score is one intent's raw score.
type Score struct {
	Intent Intent
	Value  float64
}

// Scores returns the raw score of every rule in table order.
func (c *Classifier) Scores(text string) []Score {
	text = strings.ToLower(strings.TrimSpace(text))
	out := make([]Score, 0, len(c.rules))
	for _, r := range c.rules {
		var s float64
		for _, pat := range r.Patterns {
			n := len(pat.Expr.FindAllStringIndex(text, -1))
			if n > 0 {
				s += float64(n)*MatchIncrement*pat.Weight + MatchBonus
			}
		}
		out = append(out, Score{Intent: r.Intent, Value: s})
	}
	return out
}

// Classify returns the best intent and its confidence. Ties go to the rule
// registered first. A winning score not above MinConfidence yields (Unknown, 0).
func (c *Classifier) Classify(text string) (Intent, float64) {
	best := Score{Intent: Unknown}
	for _, s := range c.Scores(text) {
		if s.Value > best.Value {
			best = s
		}
	}
	if best.Value <= MinConfidence {
		return Unknown, 0
	}
	return best.Intent, min(best.Value, 1.0)
}
