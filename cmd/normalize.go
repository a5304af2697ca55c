package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tabnorm/internal/ddl"
	"tabnorm/internal/graph"
	"tabnorm/internal/output"
	"tabnorm/internal/pipeline"
)

var (
	outputDir string
	dryRun    bool
	checkDDL  bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize input tables to 3NF and export the result",
	Long: `Runs the full pipeline: loads the input files, discovers dependencies,
decomposes the tables into third normal form, validates the result, and
writes the normalized tables, DDL script, ER diagram, and reports to the
output directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		res, err := pipeline.New(cfg, logger).Run(ctx)
		if err != nil {
			return err
		}

		if checkDDL {
			script := res.Script
			if cfg.Dialect != "sqlite" {
				// The execution check always runs against SQLite regardless
				// of the emitted dialect.
				script = ddl.NewGenerator(ddl.SQLite{}, logger).Generate(res.Schema)
			}
			if err := ddl.Verify(ctx, script); err != nil {
				return fmt.Errorf("DDL check failed: %w", err)
			}
			fmt.Fprintln(os.Stderr, "DDL check passed")
		}

		fmt.Fprintln(os.Stderr, "Normalization complete:")
		for _, name := range res.Schema.Order {
			t := res.Schema.Tables[name]
			fmt.Fprintf(os.Stderr, "  %s: %d rows, %d columns\n", name, t.RowCount(), len(t.Columns))
		}
		if !res.Report.Valid {
			fmt.Fprintln(os.Stderr, "Validation FAILED:")
		}
		fmt.Fprint(os.Stderr, res.Report.Summary())
		for _, f := range res.Findings {
			fmt.Fprintf(os.Stderr, "  %s\n", f)
		}

		if dryRun {
			return nil
		}

		dir := outputDir
		if dir == "" {
			dir = cfg.Output
		}
		w := output.NewWriter(dir, logger)

		for _, name := range res.Schema.Order {
			if err := w.WriteTable(res.Schema.Tables[name]); err != nil {
				return err
			}
		}
		if err := w.WriteFile("normalized_schema.sql", res.Script.Text); err != nil {
			return err
		}

		var erd bytes.Buffer
		if err := graph.WriteMermaid(&erd, res.Schema.Graph); err != nil {
			return err
		}
		if err := w.WriteFile("schema.mmd", erd.String()); err != nil {
			return err
		}

		var report bytes.Buffer
		report.WriteString(res.Report.Summary())
		for _, f := range res.Findings {
			fmt.Fprintf(&report, "%s\n", f)
		}
		if err := w.WriteFile("validation_report.txt", report.String()); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Output written to: %s\n", dir)
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringVar(&outputDir, "output", "", "output directory (overrides config)")
	normalizeCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report without writing files")
	normalizeCmd.Flags().BoolVar(&checkDDL, "check", false, "execute generated DDL against an in-memory database")
	rootCmd.AddCommand(normalizeCmd)
}
