package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/labadmin/pulldown/derive"
	"github.com/labadmin/pulldown/export"
	"github.com/labadmin/pulldown/internal/config"
	"github.com/labadmin/pulldown/internal/logger"
	"github.com/labadmin/pulldown/survey"
)

type rootFlags struct {
	driver   string
	database string
	logLevel string
}

type exportFlags struct {
	format       string
	out          string
	profile      string
	profilesFile string
	separator    string
	null         string
	strict       bool
}

// openSource and createOutput are replaced in tests
var (
	openSource = func(driver, dsn string) (survey.Source, func() error, error) {
		return survey.Open(driver, dsn)
	}
	createOutput = func(path string) (io.WriteCloser, error) {
		return os.Create(path)
	}
)

func newRootCmd() *cobra.Command {
	rf := &rootFlags{}

	root := &cobra.Command{
		Use:           "pulldown",
		Short:         "Tabulate survey answers into a metadata table",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logger.ParseLevel(rf.logLevel)
			if err != nil {
				return err
			}
			logger.SetLevel(level)
			logger.SetOutput(cmd.ErrOrStderr())
			if rf.database == "" {
				rf.database = os.Getenv("DATABASE_URL")
			}
			if rf.database == "" {
				return fmt.Errorf("--database or DATABASE_URL is required")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rf.driver, "driver", config.DriverPostgres, "store driver: postgres or sqlite")
	root.PersistentFlags().StringVar(&rf.database, "database", "", "database URL or sqlite snapshot path (default: $DATABASE_URL)")
	root.PersistentFlags().StringVar(&rf.logLevel, "log-level", "WARN", "log level")

	root.AddCommand(newExportCmd(rf), newQuestionsCmd(rf))
	return root
}

func newExportCmd(rf *rootFlags) *cobra.Command {
	ef := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run a tabulation and write it as TSV, CSV or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), rf, ef)
		},
	}

	cmd.Flags().StringVar(&ef.format, "format", "tsv", "output format: tsv, csv or json")
	cmd.Flags().StringVarP(&ef.out, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&ef.profile, "profile", "", "export profile adding derived columns")
	cmd.Flags().StringVar(&ef.profilesFile, "profiles-file", os.Getenv("PROFILES_FILE"), "YAML file defining export profiles")
	cmd.Flags().StringVar(&ef.separator, "separator", ":", "joins a multiple-choice question and its value in headers")
	cmd.Flags().StringVar(&ef.null, "null", "", "text written for empty cells")
	cmd.Flags().BoolVar(&ef.strict, "strict", false, "fail on answers outside a question's declared responses")
	return cmd
}

func runExport(ctx context.Context, stdout, stderr io.Writer, rf *rootFlags, ef *exportFlags) error {
	var comma rune
	switch ef.format {
	case "tsv":
		comma = '\t'
	case "csv":
		comma = ','
	case "json":
	default:
		return fmt.Errorf("unknown format %q (use: tsv, csv, json)", ef.format)
	}

	var transforms []survey.Transform
	if ef.profile != "" {
		p, err := loadProfile(ef.profilesFile, ef.profile)
		if err != nil {
			return err
		}
		transforms = append(transforms, p)
	}

	src, closeFn, err := openSource(rf.driver, rf.database)
	if err != nil {
		return err
	}
	defer closeFn()

	opts := survey.Options{}
	if ef.strict {
		opts.OutOfDomain = survey.RejectOutOfDomain
	}
	res, err := survey.NewEngine(src, survey.WithOptions(opts)).Run(ctx, transforms...)
	if err != nil {
		return err
	}

	if ef.out == "" {
		err = writeTable(stdout, res.Table, ef, comma)
	} else {
		err = writeFile(ef.out, res.Table, ef, comma)
	}
	if err != nil {
		return err
	}

	for _, warn := range res.Warnings {
		fmt.Fprintln(stderr, "warning:", warn)
	}
	logger.Info("export written", "run", res.RunID, "rows", res.Table.NumRows(),
		"columns", res.Table.NumColumns(), "schema", export.Fingerprint(res.Table, ef.separator))
	return nil
}

// writeFile writes the table to path; a failed close is reported as a failed
// export.
func writeFile(path string, t *survey.Table, ef *exportFlags, comma rune) error {
	f, err := createOutput(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := writeTable(f, t, ef, comma); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output %s: %w", path, err)
	}
	return nil
}

func writeTable(w io.Writer, t *survey.Table, ef *exportFlags, comma rune) error {
	if ef.format == "json" {
		doc, err := export.NewDocument(t, ef.separator)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	return export.WriteDelimited(w, t, export.Options{Comma: comma, Separator: ef.separator, Null: ef.null})
}

func loadProfile(path, name string) (*derive.Profile, error) {
	defs, err := config.LoadProfiles(path)
	if err != nil {
		return nil, err
	}
	fields, ok := defs[name]
	if !ok {
		return nil, fmt.Errorf("profile %s not found in %q", name, path)
	}
	env, err := derive.NewEnv()
	if err != nil {
		return nil, err
	}
	return derive.Compile(env, name, fields)
}

func newQuestionsCmd(rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "List the question catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, closeFn, err := openSource(rf.driver, rf.database)
			if err != nil {
				return err
			}
			defer closeFn()

			catalog, err := survey.ReadCatalog(cmd.Context(), src)
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), catalog)
		},
	}
}

func printCatalog(w io.Writer, catalog *survey.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUESTION\tSHORT NAME\tCARDINALITY\tRESPONSES")
	for _, q := range catalog.Questions() {
		n := ""
		if catalog.IsMultiple(q.QuestionID) {
			n = fmt.Sprint(len(catalog.Domain(q.QuestionID)))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", q.QuestionID, q.ShortName, q.Cardinality, n)
	}
	return tw.Flush()
}
