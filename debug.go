package reflser

import (
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpSectionHeaders = DumpFlags(1 << iota)
	DumpFields
	DumpStats
	DumpNested

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)

	indentStep = "  "
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// DocumentStats summarizes the contents of a document.
type DocumentStats struct {
	Sections   int
	TopLevel   int
	Fields     int
	Nested     int
	Attributes int
	Originals  int
}

func (ds DocumentStats) String() string {
	return fmt.Sprintf("sections = %d, top_level = %d, fields = %d, nested = %d, attributes = %d, originals = %d", ds.Sections, ds.TopLevel, ds.Fields, ds.Nested, ds.Attributes, ds.Originals)
}

func Stats(doc *Document) DocumentStats {
	var ds DocumentStats
	for _, key := range doc.SectionKeys() {
		ds.Sections++
		if TopLevel(key) {
			ds.TopLevel++
		}
		if sect := doc.Sections.Table(string(key)); sect != nil {
			countSection(&ds, sect)
		}
	}
	return ds
}

func countSection(ds *DocumentStats, sect *Table) {
	for _, k := range sect.Keys() {
		switch {
		case k == originalKey:
			ds.Originals++
		case strings.HasPrefix(k, attrPrefix):
			ds.Attributes++
		default:
			ds.Fields++
			if sub := sect.Table(k); sub != nil {
				ds.Nested++
				for _, nk := range sub.Keys() {
					if nsect := sub.Table(nk); nsect != nil {
						countSection(ds, nsect)
					}
				}
			}
		}
	}
}

// Dump renders a document for debugging. Unlike the document formats, it
// is meant for humans and not guaranteed to be stable.
func Dump(doc *Document, f DumpFlags) string {
	var buf strings.Builder
	if f.Contains(DumpStats) {
		name := doc.Path
		if name == "" {
			name = "<memory>"
		}
		fmt.Fprintf(&buf, "%s: %v\n", name, Stats(doc))
	}
	for i, key := range doc.SectionKeys() {
		dumpSection(&buf, "", "", f, key, doc.Sections.Table(string(key)), i+1, doc.Sections.Len())
	}
	return buf.String()
}

// indent prefixes every line; path is the dotted field path of a nested
// section and only shows in its header.
func dumpSection(w *strings.Builder, indent, path string, f DumpFlags, key SectionKey, sect *Table, pos, count int) {
	if f.Contains(DumpSectionHeaders) {
		if indent == "" {
			fmt.Fprintln(w, dumpSep1)
		} else {
			fmt.Fprintln(w, indent+dumpSep2)
		}
		fmt.Fprintf(w, "%s%s%s (%d of %d)\n", indent, path, key, pos, count)
	}
	if sect == nil {
		fmt.Fprintf(w, "%s%s<not a table>\n", indent, indentStep)
		return
	}
	if !f.Contains(DumpFields) {
		return
	}
	for _, k := range sect.Keys() {
		v, _ := sect.Get(k)
		sub, ok := v.(*Table)
		if !ok {
			fmt.Fprintf(w, "%s%s%s = %s\n", indent, indentStep, k, dumpValue(v))
			continue
		}
		fmt.Fprintf(w, "%s%s%s = <nested, %d sections>\n", indent, indentStep, k, sub.Len())
		if f.Contains(DumpNested) {
			for i, nk := range sub.Keys() {
				dumpSection(w, indent+indentStep, path+k+".", f, SectionKey(nk), sub.Table(nk), i+1, sub.Len())
			}
		}
	}
}

func dumpValue(v any) string {
	switch v := v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case float64:
		return formatFloat(v)
	case []any:
		parts := make([]string, len(v))
		for i, e := range v {
			parts[i] = dumpValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(v)
	}
}
