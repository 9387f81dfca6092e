// Command sqliteq queries a SQLite database file directly, without
// linking against sqlite3, per spec.md §6.
//
// Grounded on the teacher's app/main.go (two positional args: database
// path and command string), generalized into a cobra.Command so a
// third mode, --interactive, can share flag parsing with the one-shot
// path; cobra itself is grounded on litebase-litebase/cli/cmd/root.go.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anvilcode/sqliteq/internal/applog"
	"github.com/anvilcode/sqliteq/internal/engine"
	"github.com/anvilcode/sqliteq/internal/sqlparse"
	"github.com/anvilcode/sqliteq/internal/tui"
)

var (
	interactive bool
	logLevel    string
)

func main() {
	root := &cobra.Command{
		Use:           "sqliteq <database-file> [command]",
		Short:         "Query a SQLite database file without linking sqlite3",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().BoolVarP(&interactive, "interactive", "i", false, "launch an interactive REPL instead of running one command")
	root.Flags().StringVar(&logLevel, "log-level", "error", "diagnostic log level: debug, info, or error")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	path := args[0]

	logger, err := applog.New(logLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if interactive {
		return tui.Run(path, logger)
	}

	if len(args) < 2 {
		return fmt.Errorf("usage: sqliteq <database-file> <command>")
	}

	db, err := engine.Open(path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return runOnce(db, args[1])
}

func runOnce(db *engine.DB, command string) error {
	stmt, err := sqlparse.Parse(command)
	if err != nil {
		return err
	}

	switch stmt.Meta {
	case sqlparse.MetaDBInfo:
		info := db.Info()
		fmt.Printf("database page size: %d\n", info.PageSize)
		fmt.Printf("number of tables: %d\n", info.NumberOfTables)
		return nil

	case sqlparse.MetaTables:
		fmt.Println(strings.Join(db.TableNames(), " "))
		return nil

	case sqlparse.MetaSchema:
		for _, sql := range db.SchemaSQL() {
			fmt.Printf("%s;\n", sql)
		}
		return nil
	}

	res, err := db.Execute(stmt.Select)
	if err != nil {
		return err
	}
	for _, row := range res.Rows {
		fmt.Println(strings.Join(row, "|"))
	}
	return nil
}
