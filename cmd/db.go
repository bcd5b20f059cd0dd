/*
Copyright © 2026 The tmd Authors
*/

// db.go implements the embedded-database subcommands.

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanu-md/tmd/internal/log"
	"github.com/tanu-md/tmd/internal/query"
)

var (
	dbSchemaFile  string
	dbVersion     uint32
	dbStepFile    string
	dbFromVersion uint32
	dbToVersion   uint32
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Work with the embedded SQLite database",
}

var dbQueryCmd = &cobra.Command{
	Use:   "query <file|dir> <sql>",
	Short: "Run read-only SQL and print a Markdown table",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		target, sqlText := args[0], args[1]

		var err error
		l := log.Event("cli:db", "query").File(target).Detail("sql", sqlText)
		defer func() { l.Write(err) }()

		doc, err := loadDocument(target)
		if err != nil {
			return err
		}
		defer doc.Close()

		res, err := query.Run(doc, sqlText)
		if err != nil {
			return err
		}
		if JSON() {
			return PrintJSON(map[string]any{"columns": res.Columns, "rows": res.Rows})
		}
		fmt.Fprint(out, res.Markdown())
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset <file|dir>",
	Short: "Replace the database contents with a new schema",
	Long: `Drop all user tables, views, indexes, and triggers, execute the schema
from --schema, and set the schema version counter to --version. The whole
reset runs in one transaction; a failing schema leaves the database
untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		target := args[0]

		var err error
		l := log.Event("cli:db", "write").File(target).Detail("version", dbVersion)
		defer func() { l.Write(err) }()

		schema, err := os.ReadFile(dbSchemaFile)
		if err != nil {
			return err
		}

		doc, err := loadDocument(target)
		if err != nil {
			return err
		}
		defer doc.Close()

		if err = doc.ResetDB(string(schema), dbVersion); err != nil {
			return err
		}
		if err = saveDocument(doc, target); err != nil {
			return err
		}

		fmt.Fprintf(out, "reset database to schema version %d\n", dbVersion)
		return nil
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate <file|dir>",
	Short: "Apply a migration step",
	Long: `Apply the SQL from --step, moving the schema version counter from
--from to --to. The migration is refused when the current version does
not match --from, and a failing step leaves both the data and the
counter unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		target := args[0]

		var err error
		l := log.Event("cli:db", "write").File(target).
			Detail("from", dbFromVersion).Detail("to", dbToVersion)
		defer func() { l.Write(err) }()

		step, err := os.ReadFile(dbStepFile)
		if err != nil {
			return err
		}

		doc, err := loadDocument(target)
		if err != nil {
			return err
		}
		defer doc.Close()

		if err = doc.MigrateDB(string(step), dbFromVersion, dbToVersion); err != nil {
			return err
		}
		if err = saveDocument(doc, target); err != nil {
			return err
		}

		fmt.Fprintf(out, "migrated database %d -> %d\n", dbFromVersion, dbToVersion)
		return nil
	},
}

var dbExportCmd = &cobra.Command{
	Use:   "export <file|dir> <out.sqlite3>",
	Short: "Copy the embedded database to a standalone SQLite file",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		target, dest := args[0], args[1]

		var err error
		l := log.Event("cli:db", "export").File(target).Detail("dest", dest)
		defer func() { l.Write(err) }()

		if !force {
			if _, statErr := os.Stat(dest); statErr == nil {
				err = fmt.Errorf("%s already exists (use --force to overwrite)", dest)
				return err
			}
		}

		doc, err := loadDocument(target)
		if err != nil {
			return err
		}
		defer doc.Close()

		if err = doc.ExportDB(dest); err != nil {
			return err
		}
		fmt.Fprintf(out, "exported database to %s\n", dest)
		return nil
	},
}

var dbImportCmd = &cobra.Command{
	Use:   "import <file|dir> <in.sqlite3>",
	Short: "Replace the embedded database with a standalone SQLite file",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		target, source := args[0], args[1]

		var err error
		l := log.Event("cli:db", "import").File(target).Detail("source", source)
		defer func() { l.Write(err) }()

		doc, err := loadDocument(target)
		if err != nil {
			return err
		}
		defer doc.Close()

		if err = doc.ImportDB(source); err != nil {
			return err
		}
		if err = saveDocument(doc, target); err != nil {
			return err
		}

		fmt.Fprintf(out, "imported database from %s\n", source)
		return nil
	},
}

func init() {
	dbResetCmd.Flags().StringVar(&dbSchemaFile, "schema", "", "SQL schema file")
	dbResetCmd.Flags().Uint32Var(&dbVersion, "version", 0, "New schema version")
	_ = dbResetCmd.MarkFlagRequired("schema")

	dbMigrateCmd.Flags().StringVar(&dbStepFile, "step", "", "SQL migration file")
	dbMigrateCmd.Flags().Uint32Var(&dbFromVersion, "from", 0, "Expected current schema version")
	dbMigrateCmd.Flags().Uint32Var(&dbToVersion, "to", 0, "Schema version after migration")
	_ = dbMigrateCmd.MarkFlagRequired("step")
	_ = dbMigrateCmd.MarkFlagRequired("to")

	dbCmd.AddCommand(dbQueryCmd, dbResetCmd, dbMigrateCmd, dbExportCmd, dbImportCmd)
	rootCmd.AddCommand(dbCmd)
}
