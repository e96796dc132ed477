package main

import (
	"fmt"
	"sort"
	"strings"
)

// commandEntry maps a REPL prefix to its handler and optional tab-completer.
type commandEntry struct {
	prefix    string
	handler   func(args string) error
	completer func(args string) (completionContext, string) // nil = no arg completion
	hidden    bool                                          // excluded from commandNames()
}

// initCommands builds the command registry and sorts by prefix length descending.
func (s *Session) initCommands() {
	s.commands = []commandEntry{
		// --- catalog ---
		{prefix: "catalog ", handler: func(a string) error { return s.cmdCatalog(a) }},
		{prefix: "catalog", handler: func(_ string) error { return fmt.Errorf("usage: catalog <path>") }},
		{prefix: "nodes", handler: func(_ string) error { return s.cmdNodes() }},
		{prefix: "node ", handler: func(a string) error { return s.cmdNode(a) }, completer: completeNodeArgs},
		{prefix: "databases", handler: func(_ string) error { return s.cmdDatabases() }},

		// --- compilation setup ---
		{prefix: "filter ", handler: func(a string) error { return s.cmdFilter(a) }},
		{prefix: "agg ", handler: func(a string) error { return s.cmdAgg(a) }},
		{prefix: "database off", handler: func(_ string) error { return s.cmdDatabaseOff() }},
		{prefix: "database ", handler: func(a string) error { return s.cmdDatabase(a) }},
		{prefix: "dialect ", handler: func(a string) error { return s.cmdDialect(a) }},
		{prefix: "prefer virtual", handler: func(_ string) error { return s.cmdPrefer(true) }},
		{prefix: "prefer pushdown", handler: func(_ string) error { return s.cmdPrefer(false) }},
		{prefix: "reset", handler: func(_ string) error { return s.cmdReset() }},

		// --- compilation ---
		{prefix: "compile ", handler: func(a string) error { return s.cmdCompile(a) }, completer: completeNodeArgs},
		{prefix: "sql", handler: func(_ string) error { return s.cmdSQL() }},
		{prefix: "columns", handler: func(_ string) error { return s.cmdColumns() }},

		// --- database connectivity ---
		{prefix: "connect ", handler: func(a string) error { return s.cmdConnect(a) }},
		{prefix: "connect", handler: func(_ string) error { return s.cmdConnect("") }},
		{prefix: "disconnect", handler: func(_ string) error { return s.cmdDisconnect() }},
		{prefix: "exec", handler: func(_ string) error { return s.cmdExec() }, hidden: true},
		{prefix: "run", handler: func(_ string) error { return s.cmdExec() }},

		{prefix: "help", handler: func(_ string) error { s.cmdHelp(); return nil }},
	}

	sort.SliceStable(s.commands, func(i, j int) bool {
		return len(s.commands[i].prefix) > len(s.commands[j].prefix)
	})
}

// commandNames derives the command name list from the registry for tab completion.
func (s *Session) commandNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, cmd := range s.commands {
		if cmd.hidden {
			continue
		}
		name := strings.TrimRight(cmd.prefix, " ")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	// exit/quit are handled by the REPL loop, not Execute().
	for _, extra := range []string{"exit", "quit"} {
		if !seen[extra] {
			names = append(names, extra)
		}
	}
	sort.Strings(names)
	return names
}

// completeNodeArgs completes the single node-name argument of compile/node.
func completeNodeArgs(args string) (completionContext, string) {
	return contextNodeName, strings.TrimSpace(args)
}
