// Package frontmatter splits markdown files into a leading key/value block and
// a body, and parses that block with a small line-oriented grammar.
//
// The grammar is intentionally not YAML:
//
//	key: value        raw trimmed string
//	key: [a, b, c]    list, split on commas and trimmed
//	key: null         present but absent-valued
//
// Lines without a colon (or starting with one) are ignored. There is no
// quoting, no nesting and no type coercion. Unknown keys are kept in their
// original order so a document can be rendered back without losing them.
package frontmatter

import (
	"strings"
)

const delimiter = "---"

// Value is a single frontmatter value.
type Value struct {
	Raw    string
	List   []string
	IsList bool
	Null   bool
}

// String renders the value the way it would appear after "key: ".
func (v Value) String() string {
	switch {
	case v.Null:
		return "null"
	case v.IsList:
		return "[" + strings.Join(v.List, ", ") + "]"
	default:
		return v.Raw
	}
}

// Frontmatter is an insertion-ordered set of keys.
type Frontmatter struct {
	keys   []string
	values map[string]Value
}

// Keys returns keys in first-seen order.
func (f Frontmatter) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Len returns the number of distinct keys.
func (f Frontmatter) Len() int {
	return len(f.keys)
}

// Get returns the value for key.
func (f Frontmatter) Get(key string) (Value, bool) {
	v, ok := f.values[key]
	return v, ok
}

// String returns the scalar value for key. Null, list and missing values
// yield "".
func (f Frontmatter) String(key string) string {
	v, ok := f.values[key]
	if !ok || v.Null || v.IsList {
		return ""
	}
	return v.Raw
}

// List returns the list value for key, or nil.
func (f Frontmatter) List(key string) []string {
	v, ok := f.values[key]
	if !ok || !v.IsList {
		return nil
	}
	return v.List
}

// Set stores a value. A new key is appended; an existing key keeps its position.
func (f *Frontmatter) Set(key string, v Value) {
	if f.values == nil {
		f.values = make(map[string]Value)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

// Render writes the block including both delimiter lines.
func (f Frontmatter) Render() string {
	var b strings.Builder
	b.WriteString(delimiter + "\n")
	for _, k := range f.keys {
		v := f.values[k].String()
		if v == "" {
			b.WriteString(k + ":\n")
			continue
		}
		b.WriteString(k + ": " + v + "\n")
	}
	b.WriteString(delimiter + "\n")
	return b.String()
}

// ParseBlock parses the lines between the delimiters.
func ParseBlock(block string) Frontmatter {
	var fm Frontmatter
	for _, line := range strings.Split(block, "\n") {
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		if key == "" {
			continue
		}
		fm.Set(key, parseValue(strings.TrimSpace(line[idx+1:])))
	}
	return fm
}

func parseValue(raw string) Value {
	if raw == "null" {
		return Value{Null: true}
	}
	if len(raw) >= 2 && strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		inner := strings.TrimSpace(raw[1 : len(raw)-1])
		list := []string{}
		if inner != "" {
			for _, item := range strings.Split(inner, ",") {
				list = append(list, strings.TrimSpace(item))
			}
		}
		return Value{List: list, IsList: true}
	}
	return Value{Raw: raw}
}

// Document is a markdown file split into frontmatter and body.
type Document struct {
	Frontmatter    Frontmatter
	Block          string // raw text between the delimiters
	Body           string
	HasFrontmatter bool
	// BodyLine is the zero-based index of the first body line when the
	// original content is split on "\n".
	BodyLine int
}

// Parse splits content. Content without a well-formed leading delimiter pair
// is returned entirely as body with empty frontmatter.
func Parse(content string) Document {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || trimLine(lines[0]) != delimiter {
		return Document{Body: content}
	}

	for i := 1; i < len(lines); i++ {
		if trimLine(lines[i]) != delimiter {
			continue
		}
		block := strings.Join(lines[1:i], "\n")
		return Document{
			Frontmatter:    ParseBlock(block),
			Block:          block,
			Body:           strings.Join(lines[i+1:], "\n"),
			HasFrontmatter: true,
			BodyLine:       i + 1,
		}
	}

	// unterminated
	return Document{Body: content}
}

func trimLine(s string) string {
	return strings.TrimRight(s, " \t\r")
}
