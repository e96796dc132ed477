package ast

import "strings"

// Rendering helpers shared by the statement variants.

// writeJoined writes items separated by sep.
func writeJoined(sb *strings.Builder, sep string, items []Node) {
	for i, item := range items {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(item.String())
	}
}

// writeClause writes "keyword item1 sep item2 sep ..." if items is non-empty.
func writeClause(sb *strings.Builder, keyword string, items []Node, sep string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(keyword)
	writeJoined(sb, sep, items)
}

// writeNodeClause writes "keyword node" if node is non-nil.
func writeNodeClause(sb *strings.Builder, keyword string, n Node) {
	if n != nil {
		sb.WriteString(keyword)
		sb.WriteString(n.String())
	}
}
