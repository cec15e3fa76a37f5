package parser

import (
	"sort"
	"strings"
)

// Attribute is one KEY=value occurrence within a playlist tag line. Besides
// the unquoted value it records the exact byte range the value occupies in
// the line (inside the quotes for quoted values), so replacements can splice
// in new text without re-scanning.
type Attribute struct {
	Value  string // Attribute value with surrounding quotes removed
	Start  int    // Byte offset of the value within the line
	End    int    // Byte offset just past the value
	Quoted bool   // Whether the value was enclosed in double quotes
}

// Tag is a parsed playlist tag line: the raw line plus its attribute map.
type Tag struct {
	Line  string
	Attrs map[string]Attribute
}

// ParseTag extracts the attribute list from a single tag line such as
// #EXT-X-MEDIA:TYPE=AUDIO,NAME="Track 1",LANGUAGE="rus". Lines without a
// colon, or non-tag lines, yield a Tag with an empty attribute map. The
// scanner follows the HLS attribute grammar: comma-separated KEY=value pairs
// where quoted values may contain commas.
func ParseTag(line string) Tag {
	tag := Tag{Line: line, Attrs: make(map[string]Attribute)}

	if !strings.HasPrefix(line, "#") {
		return tag
	}
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return tag
	}

	pos := colon + 1
	for pos < len(line) {
		// skip separators between pairs
		for pos < len(line) && (line[pos] == ',' || line[pos] == ' ') {
			pos++
		}
		eq := strings.IndexByte(line[pos:], '=')
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(line[pos : pos+eq])
		vpos := pos + eq + 1

		if vpos < len(line) && line[vpos] == '"' {
			end := strings.IndexByte(line[vpos+1:], '"')
			if end < 0 {
				// unterminated quote, stop scanning rather than guessing
				break
			}
			tag.Attrs[key] = Attribute{
				Value:  line[vpos+1 : vpos+1+end],
				Start:  vpos + 1,
				End:    vpos + 1 + end,
				Quoted: true,
			}
			pos = vpos + end + 2
		} else {
			end := strings.IndexByte(line[vpos:], ',')
			if end < 0 {
				end = len(line) - vpos
			}
			tag.Attrs[key] = Attribute{
				Value: line[vpos : vpos+end],
				Start: vpos,
				End:   vpos + end,
			}
			pos = vpos + end
		}
	}

	return tag
}

// Get returns the named attribute's value, or "" when absent.
func (t Tag) Get(name string) string {
	return t.Attrs[name].Value
}

// Has reports whether the named attribute is present.
func (t Tag) Has(name string) bool {
	_, ok := t.Attrs[name]
	return ok
}

// ReplaceAttributes returns a copy of the tag's line with the given attribute
// values substituted in place. Replacements are applied from the end of the
// line towards the start so earlier byte ranges stay valid; attributes not
// present in the tag are ignored. The original line is never mutated.
func (t Tag) ReplaceAttributes(values map[string]string) string {
	type splice struct {
		start, end int
		text       string
	}

	splices := make([]splice, 0, len(values))
	for name, text := range values {
		attr, ok := t.Attrs[name]
		if !ok {
			continue
		}
		splices = append(splices, splice{start: attr.Start, end: attr.End, text: text})
	}
	if len(splices) == 0 {
		return t.Line
	}

	sort.Slice(splices, func(i, j int) bool { return splices[i].start > splices[j].start })

	line := t.Line
	for _, s := range splices {
		line = line[:s.start] + s.text + line[s.end:]
	}
	return line
}
