package main

import (
	"context"
	"sort"
	"strings"
)

// completionContext describes what kind of completion is appropriate.
type completionContext int

const (
	contextCommand  completionContext = iota // start of line or partial command
	contextNodeName                          // after compile/node
	contextNone                              // no completion
)

// replCompleter implements readline's AutoCompleter interface.
type replCompleter struct {
	sess *Session
}

// Do returns completion candidates for the current line/cursor position.
// length is the number of chars from end of line[:pos] that form the prefix
// being completed; newLine contains the suffixes to append per candidate.
func (c *replCompleter) Do(line []rune, pos int) (newLine [][]rune, length int) {
	lineStr := string(line[:pos])
	ctx, prefix := c.parseContext(lineStr)

	var candidates []string
	switch ctx {
	case contextCommand:
		candidates = filterPrefix(c.sess.commandNames(), prefix)
	case contextNodeName:
		candidates = filterPrefix(c.nodeNames(), prefix)
	}

	for _, cand := range candidates {
		newLine = append(newLine, []rune(cand[len(prefix):]))
	}
	return newLine, len(prefix)
}

// parseContext decides what the cursor is positioned over: a command word or
// an argument a registered command knows how to complete.
func (c *replCompleter) parseContext(line string) (completionContext, string) {
	lower := strings.ToLower(line)
	for _, cmd := range c.sess.commands {
		if cmd.completer == nil || !strings.HasSuffix(cmd.prefix, " ") {
			continue
		}
		if strings.HasPrefix(lower, cmd.prefix) {
			return cmd.completer(line[len(cmd.prefix):])
		}
	}
	if strings.ContainsAny(line, " ") {
		return contextNone, ""
	}
	return contextCommand, lower
}

func (c *replCompleter) nodeNames() []string {
	if c.sess.store == nil {
		return nil
	}
	names, err := c.sess.store.Nodes(context.Background())
	if err != nil {
		return nil
	}
	return names
}

func filterPrefix(candidates []string, prefix string) []string {
	var out []string
	for _, cand := range candidates {
		if strings.HasPrefix(cand, prefix) {
			out = append(out, cand)
		}
	}
	sort.Strings(out)
	return out
}
