package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"tabnorm/internal/graph"
	"tabnorm/internal/pipeline"
)

var analyzeFormat string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Profile input tables and report discovered structure",
	Long:  `Loads the input files, profiles every column, discovers keys and functional dependencies, resolves foreign keys, and prints the result without normalizing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		res, err := pipeline.New(cfg, logger).Analyze(ctx)
		if err != nil {
			return err
		}

		switch analyzeFormat {
		case "mermaid":
			return graph.WriteMermaid(os.Stdout, res.Graph)
		case "text":
			return writeAnalysisReport(os.Stdout, res)
		default:
			return fmt.Errorf("unknown format: %s (supported: mermaid, text)", analyzeFormat)
		}
	},
}

func writeAnalysisReport(w *os.File, res *pipeline.Result) error {
	names := make([]string, 0, len(res.Tables))
	for name := range res.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prof := res.Profiles[name]
		an := res.Analyses[name]

		fmt.Fprintf(w, "=== %s (%d rows, %d columns) ===\n", name, prof.RowCount, len(prof.Columns))
		for _, cp := range prof.Columns {
			extras := ""
			if cp.Multivalued {
				extras += fmt.Sprintf(" multivalued(%q)", cp.Delimiter)
			}
			if cp.Structured != nil {
				extras += " structured(" + string(cp.Structured.Kind) + ")"
			}
			fmt.Fprintf(w, "  %-24s %-10s distinct=%d null=%.0f%%%s\n",
				cp.Name, cp.Type, cp.DistinctCount, cp.NullRatio*100, extras)
		}

		if an != nil {
			if len(an.PrimaryKey) > 0 {
				fmt.Fprintf(w, "  primary key: %s\n", strings.Join(an.PrimaryKey, ", "))
			}
			for _, ck := range an.CandidateKeys {
				fmt.Fprintf(w, "  candidate key: %s\n", strings.Join(ck, ", "))
			}
			for _, pd := range an.PartialDeps {
				fmt.Fprintf(w, "  partial dependency: (%s) -> %s\n",
					strings.Join(pd.Determinant, ", "), strings.Join(pd.Dependents, ", "))
			}
			for _, td := range an.TransitiveDeps {
				fmt.Fprintf(w, "  transitive dependency: (%s) -> %s -> %s (confidence %.2f)\n",
					strings.Join(td.PrimaryKey, ", "), td.Intermediate,
					strings.Join(td.Dependents, ", "), td.Confidence)
			}
		}
		fmt.Fprintln(w)
	}

	keys := make(map[string][]string, len(res.Analyses))
	for name, an := range res.Analyses {
		keys[name] = an.PrimaryKey
	}
	if err := graph.WriteText(w, res.Graph, keys); err != nil {
		return err
	}

	if len(res.Findings) > 0 {
		fmt.Fprintf(w, "Findings (%d):\n", len(res.Findings))
		for _, f := range res.Findings {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	return nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "output format: mermaid or text")
	rootCmd.AddCommand(analyzeCmd)
}
