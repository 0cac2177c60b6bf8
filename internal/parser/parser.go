// Package parser reads and writes the Munin note format: a YAML
// frontmatter block followed by a Markdown body. Fields the engine does
// not recognise are preserved verbatim across rewrites.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/munin/internal/models"
)

const delim = "---"

// knownFields are the frontmatter keys the engine owns. Everything else
// is carried through as models.ExtraField.
var knownFields = map[string]struct{}{
	"title": {}, "category": {}, "tags": {}, "aliases": {},
	"created": {}, "updated": {}, "entry_count": {}, "status": {},
}

var fieldStartRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_-]*):`)

// Parse extracts a Note from raw file bytes. The path and category are
// supplied by the caller since they are not stored in the file itself.
// Invalid YAML frontmatter is tolerated: the whole content becomes the
// body and fields take their zero values.
func Parse(path string, category models.Category, data []byte) *models.Note {
	fmBlock, body := splitFrontmatter(data)

	n := &models.Note{
		Path:       path,
		Category:   category,
		Status:     models.StatusActive,
		EntryCount: 1,
		Body:       body,
	}

	if fmBlock == nil {
		return n
	}

	var fm map[string]any
	if err := yaml.Unmarshal(fmBlock, &fm); err != nil {
		// Invalid YAML: treat the file as body-only.
		n.Body = string(data)
		return n
	}

	switch t := fm["title"].(type) {
	case string:
		n.Title = t
	case nil:
	default:
		// A title like "2024" written unquoted resolves to a
		// non-string scalar; coerce instead of dropping it.
		n.Title = fmt.Sprint(t)
	}
	if s, ok := fm["category"].(string); ok && models.ValidCategory(models.Category(s)) {
		n.Category = models.Category(s)
	}
	n.Tags = stringList(fm["tags"])
	n.Aliases = stringList(fm["aliases"])
	if s, ok := fm["status"].(string); ok && s != "" {
		n.Status = models.Status(s)
	}
	if v, ok := fm["entry_count"].(int); ok && v >= 1 {
		n.EntryCount = v
	}
	n.Created = parseTime(fm["created"])
	n.Updated = parseTime(fm["updated"])
	n.Extra = extraFields(fmBlock)

	return n
}

// Render serialises a Note back into file bytes. Known fields are
// written in a fixed order with arrays as bracketed quoted-string
// lists; unknown fields follow verbatim.
func Render(n *models.Note) []byte {
	var b bytes.Buffer
	b.WriteString(delim + "\n")
	fmt.Fprintf(&b, "title: %s\n", quoteScalar(n.Title))
	fmt.Fprintf(&b, "category: %s\n", n.Category)
	fmt.Fprintf(&b, "tags: %s\n", renderList(n.Tags))
	fmt.Fprintf(&b, "aliases: %s\n", renderList(n.Aliases))
	fmt.Fprintf(&b, "created: %s\n", n.Created.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "updated: %s\n", n.Updated.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "entry_count: %d\n", n.EntryCount)
	fmt.Fprintf(&b, "status: %s\n", n.Status)
	for _, f := range n.Extra {
		b.WriteString(f.Raw)
		b.WriteString("\n")
	}
	b.WriteString(delim + "\n\n")
	b.WriteString(strings.TrimLeft(n.Body, "\n"))
	if !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
	return b.Bytes()
}

// splitFrontmatter separates the YAML block (between leading --- lines)
// from the body. A missing or unterminated block means the whole file
// is body.
func splitFrontmatter(data []byte) ([]byte, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}
	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	return block, strings.TrimLeft(string(after), "\n\r")
}

// extraFields walks the raw frontmatter lines and collects fields the
// engine does not own, keeping continuation lines attached so that the
// exact text can be written back.
func extraFields(block []byte) []models.ExtraField {
	var out []models.ExtraField
	var cur *models.ExtraField
	for _, line := range strings.Split(strings.Trim(string(block), "\n"), "\n") {
		if m := fieldStartRe.FindStringSubmatch(line); m != nil {
			if cur != nil {
				out = append(out, *cur)
				cur = nil
			}
			if _, known := knownFields[m[1]]; known {
				continue
			}
			cur = &models.ExtraField{Key: m[1], Raw: line}
			continue
		}
		// Indented continuation of the current unknown field.
		if cur != nil {
			cur.Raw += "\n" + line
		}
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

func stringList(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts
		}
		if ts, err := time.Parse("2006-01-02", t); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// renderList writes a bracketed quoted-string list: ["a", "b"].
func renderList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// quoteScalar quotes a YAML scalar when the plain form would be
// ambiguous or would resolve to a non-string ("2024", "True", "null",
// "3.5"), so the value survives a parse/render round trip intact.
func quoteScalar(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, ":#\"'\n\t") ||
		strings.TrimSpace(s) != s ||
		strings.ContainsAny(string(s[0]), "[]{}&*!|>%@`-?") {
		return fmt.Sprintf("%q", s)
	}
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return fmt.Sprintf("%q", s)
	}
	if str, ok := v.(string); !ok || str != s {
		return fmt.Sprintf("%q", s)
	}
	return s
}
