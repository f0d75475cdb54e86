package knowledge_base //nolint:revive // var-naming: using underscores for domain clarity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Entry is one question/answer pair.
type Entry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category"`
}

type record struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// Corpus maps category names to ordered entries. Category order is the order
// of first appearance and survives a decode/encode round trip.
type Corpus struct {
	categories []string
	entries    map[string][]Entry
}

// NewCorpus returns an empty corpus.
func NewCorpus() *Corpus {
	return &Corpus{entries: map[string][]Entry{}}
}

// Add appends e to its category, creating the category if needed.
func (c *Corpus) Add(e Entry) {
	if _, ok := c.entries[e.Category]; !ok {
		c.categories = append(c.categories, e.Category)
	}
	c.entries[e.Category] = append(c.entries[e.Category], e)
}

// Categories returns category names in order.
func (c *Corpus) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Category returns the entries of one category.
func (c *Corpus) Category(name string) []Entry {
	return append([]Entry(nil), c.entries[name]...)
}

// Entries flattens the corpus in category order.
func (c *Corpus) Entries() []Entry {
	var out []Entry
	for _, cat := range c.categories {
		out = append(out, c.entries[cat]...)
	}
	return out
}

// Len counts entries across all categories.
func (c *Corpus) Len() int {
	n := 0
	for _, es := range c.entries {
		n += len(es)
	}
	return n
}

// Clone returns an independent copy.
func (c *Corpus) Clone() *Corpus {
	out := NewCorpus()
	for _, e := range c.Entries() {
		out.Add(e)
	}
	return out
}

// DecodeCorpus parses a category → [{question, answer}] document. JSON and
// YAML are both accepted. Bare string items are taken as answerless questions.
func DecodeCorpus(data []byte) (*Corpus, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}
	c := NewCorpus()
	if len(doc.Content) == 0 {
		return c, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("corpus must be a mapping of category to entries")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		category := root.Content[i].Value
		items := root.Content[i+1]
		if items.Kind != yaml.SequenceNode {
			continue
		}
		for _, item := range items.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				c.Add(Entry{Question: item.Value, Category: category})
			case yaml.MappingNode:
				var r record
				if err := item.Decode(&r); err != nil {
					return nil, fmt.Errorf("category %q: %w", category, err)
				}
				if r.Question == "" {
					continue
				}
				c.Add(Entry{Question: r.Question, Answer: r.Answer, Category: category})
			}
		}
	}
	return c, nil
}

// MarshalJSON writes the corpus as an indented, order-preserving object.
func (c *Corpus) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range c.categories {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cat)
		if err != nil {
			return nil, err
		}
		records := make([]record, 0, len(c.entries[cat]))
		for _, e := range c.entries[cat] {
			records = append(records, record{Question: e.Question, Answer: e.Answer})
		}
		val, err := json.Marshal(records)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EncodeCorpus renders c as indented JSON.
func EncodeCorpus(c *Corpus) ([]byte, error) {
	raw, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// DefaultCorpus is written when no corpus file exists.
func DefaultCorpus() *Corpus {
	c := NewCorpus()
	for _, e := range []Entry{
		{Category: "bursary_info", Question: "How do I apply for a bursary?",
			Answer: "To apply for a bursary, dial *120*8001# and follow the prompts. You'll need your ID number and school details."},
		{Category: "bursary_info", Question: "What documents do I need for bursary application?",
			Answer: "You need: ID copy, proof of registration, academic transcript, and proof of income (if applicable)."},
		{Category: "bursary_info", Question: "When will I know about my bursary application status?",
			Answer: "Bursary applications are reviewed within 30 days. You can check status by dialing *120*8001# and selecting 'Check Status'."},
		{Category: "contact_info", Question: "How can I contact the ward office?",
			Answer: "Ward office: 021-XXX-XXXX\nEmail: ward@voo.gov.za\nOffice hours: Monday-Friday 8AM-4PM"},
		{Category: "contact_info", Question: "Where is the ward office located?",
			Answer: "VOO Ward Office\n123 Main Street, Cape Town\nBuilding A, Ground Floor"},
		{Category: "services", Question: "What services does the ward offer?",
			Answer: "Services include: Bursary applications, Issue reporting, Information requests, Document assistance, Community programs"},
		{Category: "services", Question: "How do I report a community issue?",
			Answer: "Dial *120*8001#, select 'Report Issue', and provide details. Include location, description, and urgency level."},
		{Category: "areas", Question: "Which areas does this ward cover?",
			Answer: "The ward covers multiple areas. Use *120*8001# and select 'Area Information' for specific area details."},
	} {
		c.Add(e)
	}
	return c
}
