// Package headers canonicalizes spreadsheet column names and maps them onto
// the canonical fields of the import pipeline.
package headers

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var aliasesYAML []byte

var (
	separators = regexp.MustCompile(`[\s\p{Z}\-_()]+`)
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}_\x{0600}-\x{06FF}]+`)
)

// Normalize lower-cases a header, drops whitespace, hyphen, underscore and
// parenthesis runs, then drops anything that is neither a word character nor
// Arabic script. The result may be empty.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = separators.ReplaceAllString(s, "")
	return nonWord.ReplaceAllString(s, "")
}

// Alias lists the accepted header spellings of one canonical field.
type Alias struct {
	Field   string   `yaml:"field" json:"field"`
	Aliases []string `yaml:"aliases" json:"aliases"`
}

// Table is an ordered alias table. Field order and alias order are both
// significant to Map.
type Table struct {
	entries []Alias
}

// Load parses an alias table and rejects aliases that collide after
// normalization, within or across fields.
func Load(data []byte) (*Table, error) {
	var entries []Alias
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrap(err, "headers: parse alias table")
	}

	seenField := make(map[string]bool, len(entries))
	owner := make(map[string]string)
	for _, e := range entries {
		if e.Field == "" {
			return nil, eris.New("headers: alias entry without field")
		}
		if seenField[e.Field] {
			return nil, eris.Errorf("headers: field %q declared twice", e.Field)
		}
		seenField[e.Field] = true

		for _, a := range e.Aliases {
			key := Normalize(a)
			if key == "" {
				return nil, eris.Errorf("headers: alias %q of %s normalizes to nothing", a, e.Field)
			}
			if prev, ok := owner[key]; ok && prev != e.Field {
				return nil, eris.Errorf("headers: alias %q of %s collides with %s", a, e.Field, prev)
			}
			owner[key] = e.Field
		}
	}
	return &Table{entries: entries}, nil
}

var defaultTable = sync.OnceValue(func() *Table {
	t, err := Load(aliasesYAML)
	if err != nil {
		panic(err)
	}
	return t
})

// Default returns the built-in bilingual alias table.
func Default() *Table { return defaultTable() }

// Entries returns a copy of the table in declaration order.
func (t *Table) Entries() []Alias {
	out := make([]Alias, len(t.entries))
	for i, e := range t.entries {
		out[i] = Alias{Field: e.Field, Aliases: append([]string(nil), e.Aliases...)}
	}
	return out
}

// Fields returns the canonical field names in declaration order.
func (t *Table) Fields() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Field
	}
	return out
}

// MarshalJSON encodes the table as an object of field to aliases, keeping
// declaration order.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Field)
		if err != nil {
			return nil, err
		}
		aliases, err := json.Marshal(e.Aliases)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(aliases)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Map resolves columns against the table. mapping is canonical field to
// source column, reverse is source column to canonical field. For each field
// the first declared alias that matches wins. When two columns normalize to
// the same key the later column is used.
func (t *Table) Map(columns []string) (mapping, reverse map[string]string) {
	byKey := make(map[string]string, len(columns))
	for _, c := range columns {
		byKey[Normalize(c)] = c
	}

	mapping = make(map[string]string)
	reverse = make(map[string]string)
	for _, e := range t.entries {
		for _, a := range e.Aliases {
			source, ok := byKey[Normalize(a)]
			if !ok {
				continue
			}
			mapping[e.Field] = source
			reverse[source] = e.Field
			break
		}
	}
	return mapping, reverse
}

// Map resolves columns against the default table.
func Map(columns []string) (mapping, reverse map[string]string) {
	return Default().Map(columns)
}
