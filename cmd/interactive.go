package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
)

const explainPrefix = "EXPLAIN "

// RunInteractive reads queries until exit. A query prefixed with EXPLAIN
// prints its plans instead of its rows.
func RunInteractive(s *session) error {
	fmt.Println("Interactive mode enabled. Type 'exit' or 'quit' to leave.")
	fmt.Printf("Tables: %s\n", strings.Join(s.catalog.TableNames(), ", "))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "idxq> ",
		HistoryFile:     "", // In-memory history for this session
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		} else if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.EqualFold(trimmed, "exit") || strings.EqualFold(trimmed, "quit") {
			break
		}

		if err := executeInteractiveQuery(s, trimmed); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return nil
}

func executeInteractiveQuery(s *session, sql string) error {
	if len(sql) > len(explainPrefix) && strings.EqualFold(sql[:len(explainPrefix)], explainPrefix) {
		saved := QueryExplain
		QueryExplain = true
		defer func() { QueryExplain = saved }()
		sql = sql[len(explainPrefix):]
	}
	return RunQuery(s, sql, os.Stdout)
}
