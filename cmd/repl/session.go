package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ergochat/readline"

	"github.com/stratalab/strata/build"
	"github.com/stratalab/strata/catalog"
)

var errNoCatalog = errors.New("no catalog open (use 'catalog <path>' first)")

// Session holds the REPL state: the open catalog, the pending compile
// options, the last compiled result, and any physical connection.
type Session struct {
	store         *catalog.SQLiteStore // nil until 'catalog' opens one
	engine        string
	dialect       string
	databaseID    int64
	preferVirtual bool
	filters       []string
	aggs          []string
	last          *build.TranslatedSQL
	commands      []commandEntry // command registry (sorted by prefix length desc)
	conn          *dbConn        // nil when disconnected
	lastDSN       string         // remembers the previous DSN for reconnect
	rl            *readline.Instance
	out           io.Writer // destination for REPL output (default os.Stdout)
}

// NewSession creates a session for the given execution engine.
func NewSession(engine string, rl *readline.Instance) *Session {
	s := &Session{
		engine: engine,
		rl:     rl,
		out:    os.Stdout,
	}
	s.initCommands()
	return s
}

// Execute parses and runs a single REPL command.
func (s *Session) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	lower := strings.ToLower(line)

	for _, cmd := range s.commands {
		if strings.HasSuffix(cmd.prefix, " ") {
			if strings.HasPrefix(lower, cmd.prefix) {
				return cmd.handler(line[len(cmd.prefix):])
			}
		} else {
			if lower == cmd.prefix {
				return cmd.handler("")
			}
		}
	}

	word := strings.Fields(line)[0]
	return fmt.Errorf("unknown command: %s (type 'help' for commands)", word)
}

// --- Catalog commands ---

func (s *Session) cmdCatalog(args string) error {
	path := strings.TrimSpace(args)
	if path == "" {
		return errors.New("usage: catalog <path>")
	}
	store, err := catalog.OpenSQLite(path)
	if err != nil {
		return err
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	s.store = store
	_, _ = fmt.Fprintf(s.out, "  Opened catalog %s\n", path)
	return nil
}

func (s *Session) cmdNodes() error {
	if s.store == nil {
		return errNoCatalog
	}
	names, err := s.store.Nodes(context.Background())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		_, _ = fmt.Fprintln(s.out, "  (no nodes)")
		return nil
	}
	for _, name := range names {
		_, _ = fmt.Fprintf(s.out, "  %s\n", name)
	}
	return nil
}

func (s *Session) cmdNode(args string) error {
	if s.store == nil {
		return errNoCatalog
	}
	name := strings.TrimSpace(args)
	if name == "" {
		return errors.New("usage: node <name>")
	}
	rev, err := s.store.Resolve(context.Background(), name)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(s.out, "  %s (%s, %s)\n", rev.Name, rev.Type, rev.Version)
	if rev.Query != "" {
		_, _ = fmt.Fprintf(s.out, "  Query: %s\n", rev.Query)
	}
	for _, col := range rev.Columns {
		line := "  Column: " + col.Name
		if col.Type != "" {
			line += " " + col.Type
		}
		if col.Dimension != "" {
			key := col.DimensionColumn
			if key == "" {
				key = "id"
			}
			line += fmt.Sprintf(" -> %s.%s", col.Dimension, key)
		}
		_, _ = fmt.Fprintln(s.out, line)
	}
	for _, tbl := range rev.Tables {
		parts := make([]string, 0, 3)
		for _, p := range []string{tbl.Catalog, tbl.Schema, tbl.Table} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		_, _ = fmt.Fprintf(s.out, "  Table: %s on database %d (cost %.1f)\n",
			strings.Join(parts, "."), tbl.DatabaseID, tbl.Cost)
	}
	return nil
}

func (s *Session) cmdDatabases() error {
	if s.store == nil {
		return errNoCatalog
	}
	dbs, err := s.store.Databases(context.Background())
	if err != nil {
		return err
	}
	if len(dbs) == 0 {
		_, _ = fmt.Fprintln(s.out, "  (no databases)")
		return nil
	}
	for _, db := range dbs {
		_, _ = fmt.Fprintf(s.out, "  %d: %s (%s, cost %.1f)\n", db.ID, db.Name, db.Dialect, db.Cost)
	}
	return nil
}

// --- Compilation setup ---

func (s *Session) cmdFilter(args string) error {
	filter := strings.TrimSpace(args)
	if filter == "" {
		return errors.New("usage: filter <condition>")
	}
	s.filters = append(s.filters, filter)
	_, _ = fmt.Fprintf(s.out, "  Filter %d: %s\n", len(s.filters), filter)
	return nil
}

func (s *Session) cmdAgg(args string) error {
	agg := strings.TrimSpace(args)
	if agg == "" {
		return errors.New("usage: agg <expression>")
	}
	s.aggs = append(s.aggs, agg)
	_, _ = fmt.Fprintf(s.out, "  Agg %d: %s\n", len(s.aggs), agg)
	return nil
}

func (s *Session) cmdDatabase(args string) error {
	id, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return fmt.Errorf("usage: database <id> | database off")
	}
	s.databaseID = id
	_, _ = fmt.Fprintf(s.out, "  Pinned database %d\n", id)
	return nil
}

func (s *Session) cmdDatabaseOff() error {
	s.databaseID = 0
	_, _ = fmt.Fprintln(s.out, "  Database pin cleared")
	return nil
}

func (s *Session) cmdDialect(args string) error {
	dialect := strings.TrimSpace(strings.ToLower(args))
	if dialect == "off" {
		dialect = ""
	}
	s.dialect = dialect
	if dialect == "" {
		_, _ = fmt.Fprintln(s.out, "  Dialect cleared (target database decides)")
	} else {
		_, _ = fmt.Fprintf(s.out, "  Dialect: %s\n", dialect)
	}
	return nil
}

func (s *Session) cmdPrefer(virtual bool) error {
	s.preferVirtual = virtual
	if virtual {
		_, _ = fmt.Fprintln(s.out, "  Cost ties now prefer subquery inlining")
	} else {
		_, _ = fmt.Fprintln(s.out, "  Cost ties now prefer pushdown")
	}
	return nil
}

func (s *Session) cmdReset() error {
	s.filters = nil
	s.aggs = nil
	s.databaseID = 0
	s.dialect = ""
	s.preferVirtual = false
	s.last = nil
	_, _ = fmt.Fprintln(s.out, "  Compile options reset")
	return nil
}

// --- Compilation ---

func (s *Session) cmdCompile(args string) error {
	if s.store == nil {
		return errNoCatalog
	}
	name := strings.TrimSpace(args)
	if name == "" {
		return errors.New("usage: compile <node>")
	}

	opts := build.BuildOptions{
		Dialect:    s.dialect,
		DatabaseID: s.databaseID,
		Filters:    s.filters,
		Aggs:       s.aggs,
	}
	if s.preferVirtual {
		opts.Optimize = append(opts.Optimize, build.PreferVirtual())
	}

	result, err := build.CompileNode(context.Background(), s.store, name, opts)
	if err != nil {
		return err
	}
	s.last = result
	_, _ = fmt.Fprintf(s.out, "  Database: %s (%d)\n", result.Database.Name, result.Database.ID)
	_, _ = fmt.Fprintf(s.out, "  %s;\n", result.SQL)
	return nil
}

func (s *Session) cmdSQL() error {
	if s.last == nil {
		return errors.New("nothing compiled yet (use 'compile <node>' first)")
	}
	_, _ = fmt.Fprintf(s.out, "  %s;\n", s.last.SQL)
	return nil
}

func (s *Session) cmdColumns() error {
	if s.last == nil {
		return errors.New("nothing compiled yet (use 'compile <node>' first)")
	}
	for _, col := range s.last.Columns {
		if col.Type != "" {
			_, _ = fmt.Fprintf(s.out, "  %s %s\n", col.Name, col.Type)
		} else {
			_, _ = fmt.Fprintf(s.out, "  %s\n", col.Name)
		}
	}
	return nil
}

// --- Database connectivity ---

func (s *Session) cmdConnect(args string) error {
	dsn := strings.TrimSpace(args)

	if s.conn != nil {
		return fmt.Errorf("already connected to %s (use 'disconnect' first)", sanitizeDSN(s.conn.dsn))
	}

	// Direct DSN provided — connect immediately.
	if dsn != "" {
		return s.connectWithDSN(dsn)
	}

	// Interactive: offer reconnect if we have a previous DSN, otherwise wizard.
	if s.lastDSN != "" {
		choice := prompt(s.rl, fmt.Sprintf("Reconnect to %s? (y/n/setup)", sanitizeDSN(s.lastDSN)), "y")
		switch strings.ToLower(choice) {
		case "y", "yes":
			return s.connectWithDSN(s.lastDSN)
		case "s", "setup":
			return s.connectViaWizard()
		default:
			_, _ = fmt.Fprintln(s.out, "  Connect cancelled")
			return nil
		}
	}

	return s.connectViaWizard()
}

func (s *Session) connectWithDSN(dsn string) error {
	conn, err := connect(s.engine, dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s.conn = conn
	s.lastDSN = dsn
	_, _ = fmt.Fprintf(s.out, "  Connected to %s (%s)\n", sanitizeDSN(dsn), s.engine)
	return nil
}

func (s *Session) connectViaWizard() error {
	var dsn string
	switch s.engine {
	case "sqlite":
		dsn = buildSQLiteDSN(s.rl)
	case "mysql":
		dsn = buildMySQLDSN(s.rl)
	default:
		dsn = buildPostgresDSN(s.rl)
	}

	if dsn == "" {
		_, _ = fmt.Fprintln(s.out, "  No connection configured")
		return nil
	}

	_, _ = fmt.Fprintf(s.out, "  DSN: %s\n", sanitizeDSN(dsn))
	return s.connectWithDSN(dsn)
}

func (s *Session) cmdDisconnect() error {
	if s.conn == nil {
		return errors.New("not connected")
	}
	dsn := sanitizeDSN(s.conn.dsn)
	if err := s.conn.close(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	s.conn = nil
	_, _ = fmt.Fprintf(s.out, "  Disconnected from %s\n", dsn)
	return nil
}

// cmdExec runs the last compiled SQL against the connected database.
func (s *Session) cmdExec() error {
	if s.conn == nil {
		return errors.New("not connected (use 'connect <dsn>' first)")
	}
	if s.last == nil {
		return errors.New("nothing compiled yet (use 'compile <node>' first)")
	}

	if s.last.Database.Dialect != "" && s.conn.engine != s.last.Database.Dialect {
		_, _ = fmt.Fprintf(s.out, "  Warning: compiled for %s but connected to %s\n",
			s.last.Database.Dialect, s.conn.engine)
	}

	_, _ = fmt.Fprintf(s.out, "  %s;\n", s.last.SQL)
	result, err := s.conn.execQuery(s.last.SQL)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprint(s.out, result)
	return nil
}

func (s *Session) cmdHelp() {
	_, _ = fmt.Fprintln(s.out, `
  Catalog:
    catalog <path>            Open a SQLite catalog (file or :memory:)
    nodes                     List logical nodes
    node <name>               Show one node's definition
    databases                 List physical databases

  Compile Options:
    filter <condition>        Add a WHERE fragment (repeatable)
    agg <expression>          Add a GROUP BY fragment (repeatable)
    database <id>             Pin the target database
    database off              Clear the pin (pick by cost)
    dialect <name>            Set the dialect for the function check
    prefer virtual            Break cost ties toward subquery inlining
    prefer pushdown           Break cost ties toward pushdown (default)
    reset                     Clear all compile options

  Compilation:
    compile <node>            Compile a node into physical SQL
    sql                       Show the last compiled SQL
    columns                   Show the last result's columns

  Database:
    connect <dsn>             Connect to a physical database
    connect                   Interactive connection setup
    disconnect                Close the connection
    run                       Execute the last compiled SQL

  Other:
    help                      Show this help
    exit                      Quit`)
}
