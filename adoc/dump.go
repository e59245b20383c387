package adoc

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Dump renders the document as an indented tree, one node per line, for
// debugging and for the command line front-end. The rendering is stable:
// attribute lists are printed in sorted order.
func Dump(doc Document) string {
	var b strings.Builder
	if doc.Header != nil {
		fmt.Fprintf(&b, "header title=%q\n", doc.Header.Title.Text())
		for _, attr := range doc.Header.Attributes {
			fmt.Fprintf(&b, "  attribute %s%s", attr.ID.Text(), map[bool]string{true: " unset", false: ""}[attr.Unset])
			for _, v := range attr.Value {
				fmt.Fprintf(&b, " %q", v.Text())
			}
			b.WriteByte('\n')
		}
	}
	for _, block := range doc.Content {
		dumpBlock(&b, block, 0)
	}
	return b.String()
}

func dumpBlock(b *strings.Builder, block Block, depth int) {
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent)
	b.WriteString(contextString(block.Context))
	if len(block.Attributes) > 0 {
		b.WriteString(" [")
		b.WriteString(attributeString(block.Attributes))
		b.WriteString("]")
	}
	b.WriteByte('\n')
	for _, c := range block.Callouts {
		fmt.Fprintf(b, "%s  <%d> %s\n", indent, c.Number, c.Text.Text())
	}
	for _, child := range childBlocks(block.Context) {
		dumpBlock(b, child, depth+1)
	}
}

// childBlocks returns the nested blocks of a container context, or nil for
// leaf contexts.
func childBlocks(c Context) []Block {
	switch c := c.(type) {
	case Section:
		return c.Blocks
	case Admonition:
		return c.Blocks
	case Example:
		return c.Blocks
	case Sidebar:
		return c.Blocks
	case Open:
		return c.Blocks
	}
	return nil
}

func contextString(c Context) string {
	switch c := c.(type) {
	case Section:
		return "section " + strconv.Quote(c.Title.Text())
	case Admonition:
		return "admonition " + strconv.Quote(c.Label.Text())
	case Example:
		return "example"
	case Sidebar:
		return "sidebar"
	case Open:
		return "open"
	case Listing:
		return "listing " + strconv.Quote(c.Content.Text())
	case Literal:
		return "literal " + strconv.Quote(c.Content.Text())
	case Paragraph:
		return "paragraph " + strconv.Quote(c.Content.Text())
	case Passthrough:
		return "passthrough " + strconv.Quote(c.Content.Text())
	case Quote:
		return "quote " + strconv.Quote(c.Content.Text())
	case Verse:
		return "verse " + strconv.Quote(c.Content.Text())
	case List:
		return fmt.Sprintf("list (%d items)", len(c.Items))
	case Table:
		return "table"
	case BlockMacro:
		return fmt.Sprintf("macro %s::%s[%s]", c.Name.Text(), c.Target.Text(), attributeString(c.Attributes))
	case ThematicBreak:
		return "thematic break"
	case PageBreak:
		return "page break"
	}
	return "invalid context"
}

func attributeString(attrs AttributeList) string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if value := attrs[name]; value != "" {
			parts = append(parts, name+"="+value)
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ",")
}
