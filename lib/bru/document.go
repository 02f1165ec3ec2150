package bru

import (
	"bufio"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

const (
	indent          = "  "
	multilineIndent = "    "
	multilineQuote  = "'''"
)

// BlockKind tells how the body of a block is laid out.
type BlockKind string

const (
	DictBlock BlockKind = "dict"
	TextBlock BlockKind = "text"
	ListBlock BlockKind = "list"
)

// Pair is a single `key: value` entry. A `~` prefix on disk marks it disabled. Keys the bare form cannot carry
// (whitespace, `:`, `,`, a leading `~` or `"`) are written as double-quoted strings; values with surrounding
// whitespace use the multi-line form.
type Pair struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// Block is one top-level section of a document.
type Block struct {
	Name  string    `json:"name"`
	Kind  BlockKind `json:"kind"`
	Pairs []Pair    `json:"pairs,omitempty"`
	Text  string    `json:"text,omitempty"`
	Items []Pair    `json:"items,omitempty"`
}

// Document is the structural form of a file: its blocks in file order.
type Document struct {
	Blocks []Block
}

// Block returns the first block with the given name.
func (d *Document) Block(name string) (Block, bool) {
	for b := range slices.Values(d.Blocks) {
		if b.Name == name {
			return b, true
		}
	}
	return Block{}, false
}

// SyntaxError describes malformed on-disk text.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line <= 0 {
		return fmt.Sprintf("syntax error: %s", e.Msg)
	}
	return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Msg)
}

func syntaxErrf(line int, format string, a ...any) *SyntaxError {
	return &SyntaxError{Line: line, Msg: fmt.Sprintf(format, a...)}
}

// KindFunc decides how a block is laid out from its name. Returning an empty kind lets the parser infer it from the
// block content.
type KindFunc func(name string) BlockKind

type rawBlock struct {
	name  string
	open  byte
	line  int
	lines []string
}

// Parse splits text into blocks. Blocks open with `name {` or `name [` on an unindented line and close with an
// unindented `}` or `]`; everything in between belongs to the block, so nested braces in indented content never
// terminate it.
func Parse(text string, kindOf KindFunc) (*Document, error) {
	raws, err := scanBlocks(text)
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	for raw := range slices.Values(raws) {
		b, err := buildBlock(raw, kindOf)
		if err != nil {
			return nil, err
		}
		doc.Blocks = append(doc.Blocks, b)
	}

	return doc, nil
}

func scanBlocks(text string) ([]rawBlock, error) {
	var blocks []rawBlock
	var current *rawBlock

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNum := 0
	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), "\r")

		if current != nil {
			closing := "}"
			if current.open == '[' {
				closing = "]"
			}
			if strings.TrimRight(line, " \t") == closing {
				blocks = append(blocks, *current)
				current = nil
				continue
			}
			current.lines = append(current.lines, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			return nil, syntaxErrf(lineNum, "unexpected indented content outside of a block: %q", trimmed)
		}

		name, open, ok := blockHeader(trimmed)
		if !ok {
			return nil, syntaxErrf(lineNum, "expected a block header, got %q", trimmed)
		}
		current = &rawBlock{name: name, open: open, line: lineNum}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan text: %w", err)
	}
	if current != nil {
		return nil, syntaxErrf(current.line, "block %q is never closed", current.name)
	}

	return blocks, nil
}

func blockHeader(line string) (name string, open byte, ok bool) {
	last := line[len(line)-1]
	if last != '{' && last != '[' {
		return "", 0, false
	}
	name = strings.TrimSpace(line[:len(line)-1])
	if name == "" || strings.ContainsAny(name, " \t{}[]") {
		return "", 0, false
	}
	return name, last, true
}

func buildBlock(raw rawBlock, kindOf KindFunc) (Block, error) {
	if raw.open == '[' {
		return Block{Name: raw.name, Kind: ListBlock, Items: parseList(raw.lines)}, nil
	}

	var kind BlockKind
	if kindOf != nil {
		kind = kindOf(raw.name)
	}
	if kind == "" {
		kind = DictBlock
		if _, err := parsePairs(raw); err != nil {
			kind = TextBlock
		}
	}

	switch kind {
	case TextBlock:
		return Block{Name: raw.name, Kind: TextBlock, Text: parseText(raw.lines)}, nil
	default:
		pairs, err := parsePairs(raw)
		if err != nil {
			return Block{}, err
		}
		return Block{Name: raw.name, Kind: DictBlock, Pairs: pairs}, nil
	}
}

func parsePairs(raw rawBlock) ([]Pair, error) {
	var pairs []Pair
	for i := 0; i < len(raw.lines); i++ {
		lineNum := raw.line + i + 1
		line := strings.TrimSpace(raw.lines[i])
		if line == "" {
			continue
		}

		enabled := true
		if rest, ok := strings.CutPrefix(line, "~"); ok {
			enabled = false
			line = rest
		}

		var key, value string
		if strings.HasPrefix(line, `"`) {
			quoted, err := strconv.QuotedPrefix(line)
			if err != nil {
				return nil, syntaxErrf(lineNum, "invalid quoted key in block %q: %q", raw.name, line)
			}
			key, _ = strconv.Unquote(quoted)
			rest, ok := strings.CutPrefix(strings.TrimSpace(line[len(quoted):]), ":")
			if !ok {
				return nil, syntaxErrf(lineNum, "expected `:` after key %q in block %q", key, raw.name)
			}
			value = strings.TrimSpace(rest)
		} else {
			k, v, ok := strings.Cut(line, ":")
			if !ok {
				return nil, syntaxErrf(lineNum, "expected `key: value` in block %q, got %q", raw.name, line)
			}
			key = strings.TrimSpace(k)
			value = strings.TrimSpace(v)
			if key == "" || strings.ContainsAny(key, " \t") {
				return nil, syntaxErrf(lineNum, "invalid key %q in block %q", key, raw.name)
			}
		}

		if value == multilineQuote {
			var body []string
			closed := false
			for i++; i < len(raw.lines); i++ {
				if strings.TrimSpace(raw.lines[i]) == multilineQuote {
					closed = true
					break
				}
				body = append(body, trimIndent(raw.lines[i], multilineIndent))
			}
			if !closed {
				return nil, syntaxErrf(lineNum, "multi-line value for %q is never closed", key)
			}
			value = strings.Join(body, "\n")
		}

		pairs = append(pairs, Pair{Name: key, Value: value, Enabled: enabled})
	}

	return pairs, nil
}

func parseText(lines []string) string {
	out := make([]string, 0, len(lines))
	for line := range slices.Values(lines) {
		out = append(out, trimIndent(line, indent))
	}
	// trailing blank lines are formatting, not content
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

func parseList(lines []string) []Pair {
	var items []Pair
	for line := range slices.Values(lines) {
		rest := strings.TrimSpace(line)
		for rest != "" {
			enabled := true
			if r, ok := strings.CutPrefix(rest, "~"); ok {
				enabled = false
				rest = r
			}

			name, quoted := "", false
			if q, err := strconv.QuotedPrefix(rest); err == nil {
				name, _ = strconv.Unquote(q)
				quoted = true
				_, rest, _ = strings.Cut(rest[len(q):], ",")
			} else {
				name, rest, _ = strings.Cut(rest, ",")
				name = strings.TrimSpace(name)
			}
			rest = strings.TrimSpace(rest)
			if name == "" && !quoted {
				continue
			}
			items = append(items, Pair{Name: name, Enabled: enabled})
		}
	}
	return items
}

// quoteKey returns name the way it is written on disk.
func quoteKey(name string) string {
	bare := name != "" &&
		!strings.HasPrefix(name, "~") &&
		!strings.HasPrefix(name, `"`) &&
		strings.IndexFunc(name, func(r rune) bool {
			return unicode.IsSpace(r) || unicode.IsControl(r) || r == ':' || r == ','
		}) < 0
	if bare {
		return name
	}
	return strconv.Quote(name)
}

// multiline reports whether value has to be written in the multi-line form to decode unchanged.
func multiline(value string) bool {
	return strings.Contains(value, "\n") || value != strings.TrimSpace(value)
}

// trimIndent strips at most len(prefix) leading spaces.
func trimIndent(line, prefix string) string {
	n := 0
	for n < len(prefix) && n < len(line) && line[n] == ' ' {
		n++
	}
	return line[n:]
}

// Format renders blocks back into text.
func Format(blocks []Block) string {
	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		writeBlock(&sb, b)
	}
	return sb.String()
}

func writeBlock(sb *strings.Builder, b Block) {
	switch b.Kind {
	case ListBlock:
		sb.WriteString(b.Name + " [\n")
		for i, item := range b.Items {
			sb.WriteString(indent)
			if !item.Enabled {
				sb.WriteString("~")
			}
			sb.WriteString(quoteKey(item.Name))
			if i < len(b.Items)-1 {
				sb.WriteString(",")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("]\n")
	case TextBlock:
		sb.WriteString(b.Name + " {\n")
		for line := range strings.SplitSeq(b.Text, "\n") {
			if line != "" {
				sb.WriteString(indent + line)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("}\n")
	default:
		sb.WriteString(b.Name + " {\n")
		for p := range slices.Values(b.Pairs) {
			writePair(sb, p)
		}
		sb.WriteString("}\n")
	}
}

func writePair(sb *strings.Builder, p Pair) {
	sb.WriteString(indent)
	if !p.Enabled {
		sb.WriteString("~")
	}
	sb.WriteString(quoteKey(p.Name) + ":")

	if !multiline(p.Value) {
		if p.Value != "" {
			sb.WriteString(" " + p.Value)
		}
		sb.WriteString("\n")
		return
	}

	sb.WriteString(" " + multilineQuote + "\n")
	for line := range strings.SplitSeq(p.Value, "\n") {
		if line != "" {
			sb.WriteString(multilineIndent + line)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(indent + multilineQuote + "\n")
}
