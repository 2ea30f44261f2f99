// Package enums holds the translation tables between the labels shown to
// patients and the tokens the clinic backend expects.
package enums

import (
	"strings"
)

// Option is one label/token pair with optional alternate spellings.
type Option struct {
	Label   string   `json:"label"`
	Token   string   `json:"token"`
	Aliases []string `json:"-"`
}

// Table is a bidirectional label <-> token mapping for one enum.
type Table struct {
	name     string
	options  []Option
	byLabel  map[string]string
	byToken  map[string]string
	fallback string
}

// NewTable builds a table. fallback, when set, is the token returned for blank input.
func NewTable(name string, fallback string, options ...Option) *Table {
	t := &Table{
		name:     name,
		options:  options,
		byLabel:  make(map[string]string, len(options)),
		byToken:  make(map[string]string, len(options)),
		fallback: fallback,
	}
	for _, opt := range options {
		t.byLabel[normalize(opt.Label)] = opt.Token
		for _, alias := range opt.Aliases {
			t.byLabel[normalize(alias)] = opt.Token
		}
		t.byToken[opt.Token] = opt.Label
	}
	return t
}

// Name returns the enum's name.
func (t *Table) Name() string {
	return t.name
}

// Options returns the label/token pairs in declaration order.
func (t *Table) Options() []Option {
	return append([]Option(nil), t.options...)
}

// Token translates a label to its backend token. Unknown labels are
// upper-cased with spaces and hyphens turned into underscores.
func (t *Table) Token(label string) string {
	key := normalize(label)
	if key == "" {
		return t.fallback
	}
	if tok, ok := t.byLabel[key]; ok {
		return tok
	}
	if _, ok := t.byToken[strings.ToUpper(strings.TrimSpace(label))]; ok {
		return strings.ToUpper(strings.TrimSpace(label))
	}
	return upperSnake(label)
}

// Label translates a backend token to its display label.
func (t *Table) Label(token string) (string, bool) {
	label, ok := t.byToken[strings.ToUpper(strings.TrimSpace(token))]
	return label, ok
}

// Known reports whether label maps to a declared option.
func (t *Table) Known(label string) bool {
	key := normalize(label)
	if _, ok := t.byLabel[key]; ok {
		return true
	}
	_, ok := t.byToken[strings.ToUpper(strings.TrimSpace(label))]
	return ok
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func upperSnake(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return s
}
