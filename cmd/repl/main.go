// REPL binary for interactively compiling semantic-layer nodes into SQL and
// optionally executing the result.
//
// Configuration (env vars):
//
//	STRATA_ENGINE=postgres|mysql|sqlite  (optional, prompted if absent)
//	STRATA_CATALOG=<path>                 (optional, opens the catalog at start)
//	DATABASE_URL=<dsn>                    (optional, auto-connects if set)
//
// Usage:
//
//	go run ./cmd/repl
package main

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
)

func main() {
	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:          "[Config] ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	engine := loadEngine(rl)
	sess := NewSession(engine, rl)

	// Set up the completer now that we have a session.
	comp := &replCompleter{sess: sess}
	_ = rl.SetConfig(&readline.Config{
		Prompt:          "strata> ",
		HistoryFile:     historyPath(),
		HistoryLimit:    500,
		AutoComplete:    comp,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})

	if path := os.Getenv("STRATA_CATALOG"); path != "" {
		fmt.Printf("[Config] Opening catalog from STRATA_CATALOG...\n")
		if err := sess.Execute("catalog " + path); err != nil {
			fmt.Fprintf(os.Stderr, "  Warning: STRATA_CATALOG open failed: %v\n", err)
		}
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		fmt.Printf("[Config] Connecting via DATABASE_URL...\n")
		if err := sess.Execute("connect " + dsn); err != nil {
			fmt.Fprintf(os.Stderr, "  Warning: DATABASE_URL connect failed: %v\n", err)
		}
	}

	fmt.Println()
	fmt.Println("Strata REPL — type 'help' for commands, 'exit' to quit")
	fmt.Println()

	rl.SetPrompt("strata> ")
	for {
		line, err := rl.ReadLine()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if lower == "exit" || lower == "quit" {
			break
		}
		if err := sess.Execute(line); err != nil {
			fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		}
	}
	if sess.conn != nil {
		_ = sess.conn.close()
	}
	if sess.store != nil {
		_ = sess.store.Close()
	}
	fmt.Println()
}

func loadEngine(rl *readline.Instance) string {
	engine := strings.TrimSpace(strings.ToLower(os.Getenv("STRATA_ENGINE")))
	if engine != "" {
		if !isValidEngine(engine) {
			fmt.Fprintf(os.Stderr, "Warning: invalid STRATA_ENGINE=%q, defaulting to postgres\n", engine)
			return "postgres"
		}
		fmt.Printf("[Config] Engine: %s (from STRATA_ENGINE)\n", engine)
		return engine
	}

	choice := prompt(rl, "Select engine (postgres, mysql, sqlite)", "postgres")
	choice = strings.TrimSpace(strings.ToLower(choice))
	if choice != "" {
		if !isValidEngine(choice) {
			fmt.Fprintf(os.Stderr, "Warning: unknown engine %q, defaulting to postgres\n", choice)
			return "postgres"
		}
		fmt.Printf("[Config] Engine: %s\n", choice)
		return choice
	}
	fmt.Println("[Config] Engine: postgres")
	return "postgres"
}

// prompt prints a label with an optional default and returns the user's input
// (or the default if they press enter).
func prompt(rl *readline.Instance, label, defaultVal string) string {
	if rl == nil {
		return defaultVal
	}
	if defaultVal != "" {
		rl.SetPrompt(fmt.Sprintf("[Config]   %s [%s]: ", label, defaultVal))
	} else {
		rl.SetPrompt(fmt.Sprintf("[Config]   %s: ", label))
	}
	defer rl.SetPrompt("strata> ")
	line, err := rl.ReadLine()
	if err != nil {
		return defaultVal
	}
	val := strings.TrimSpace(line)
	if val == "" {
		return defaultVal
	}
	return val
}

func buildSQLiteDSN(rl *readline.Instance) string {
	fmt.Println("[Config] SQLite connection setup:")
	path := prompt(rl, "Database path", ":memory:")
	return path
}

func buildPostgresDSN(rl *readline.Instance) string {
	fmt.Println("[Config] PostgreSQL connection setup:")

	defaultUser := "postgres"
	if u, err := user.Current(); err == nil && u.Username != "" {
		defaultUser = u.Username
	}

	dbUser := prompt(rl, "User", defaultUser)
	dbPass := prompt(rl, "Password", "")
	host := prompt(rl, "Host", "localhost")
	port := prompt(rl, "Port", "5432")
	dbName := prompt(rl, "Database", dbUser)
	sslMode := prompt(rl, "SSL mode (disable/require/verify-full)", "disable")

	var userInfo *url.Userinfo
	if dbPass != "" {
		userInfo = url.UserPassword(dbUser, dbPass)
	} else {
		userInfo = url.User(dbUser)
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     host + ":" + port,
		Path:     "/" + dbName,
		RawQuery: "sslmode=" + sslMode,
	}
	return u.String()
}

func buildMySQLDSN(rl *readline.Instance) string {
	fmt.Println("[Config] MySQL connection setup:")

	dbUser := prompt(rl, "User", "root")
	dbPass := prompt(rl, "Password", "")
	host := prompt(rl, "Host", "localhost")
	port := prompt(rl, "Port", "3306")
	dbName := prompt(rl, "Database", "")

	if dbName == "" {
		return ""
	}

	// Format: user:pass@tcp(host:port)/dbname
	var auth string
	if dbPass != "" {
		auth = dbUser + ":" + dbPass
	} else {
		auth = dbUser
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s", auth, host, port, dbName)
}

func isValidEngine(engine string) bool {
	switch engine {
	case "postgres", "mysql", "sqlite":
		return true
	}
	return false
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".strata_history")
}
