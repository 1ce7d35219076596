package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"csvexplore/internal/analyze"
	"csvexplore/internal/config"
	"csvexplore/internal/report"
	"csvexplore/internal/source"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks errors that exit with exitUsage: bad flags and invalid
// configuration.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// app carries the process streams so the command can run in-process in tests.
type app struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

type flags struct {
	configPath     string
	format         string
	dialect        string
	encoding       string
	progressEvery  int
	keepGoing      bool
	metricsBackend string
	sqlKind        string
	dsn            string
	query          string
	validate       bool
	verbose        bool
}

// runMain executes the command with args and returns the process exit code.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	a := &app{stdout: stdout, stderr: stderr, getenv: getenv}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "csvexplore: %v\n", err)

	var ue usageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	return exitFailure
}

func newRootCmd(a *app) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "csvexplore [flags] [FILE...]",
		Short: "Summarize the columns of CSV files and suggest column types",
		Long: `csvexplore reads each input to the end and prints one line per column:

  <file>: <column>: Field(has_empties=..., is_int=..., is_float=..., shortest_value=..., longest_value=...): VARCHAR(n)

Inputs are processed in order. Files ending in .json/.jsonl are read as JSON
records and .html/.htm as the first HTML table; .gz and .bz2 are decompressed.
A SQL result set can be analyzed with --sql-kind, --dsn and --query.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.resolveConfig(cmd, f, args)
			if err != nil {
				return err
			}

			issues := config.Validate(cfg)
			for _, iss := range issues {
				fmt.Fprintln(a.stderr, iss.String())
			}
			if config.HasErrors(issues) {
				return usageError{errors.New("configuration is invalid")}
			}
			if f.validate {
				fmt.Fprintln(a.stderr, "configuration is valid")
				return nil
			}

			return a.run(cmd.Context(), cfg)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "YAML config file")
	fs.StringVarP(&f.format, "format", "f", "text", "report format: "+strings.Join(report.Formats(), ", "))
	fs.StringVar(&f.dialect, "dialect", "postgres", "SQL dialect for --format sql: postgres, mssql, sqlite")
	fs.StringVar(&f.encoding, "encoding", "", "text encoding of file inputs (e.g. windows-1250, latin1); default UTF-8")
	fs.IntVar(&f.progressEvery, "progress-every", analyze.DefaultProgressEvery, "log progress every N records; 0 disables")
	fs.BoolVar(&f.keepGoing, "keep-going", false, "skip inputs that fail and continue; exit 1 at the end")
	fs.StringVar(&f.metricsBackend, "metrics-backend", "none", "metrics backend: datadog, none")
	fs.StringVar(&f.sqlKind, "sql-kind", "", "analyze a SQL result set from this backend: "+strings.Join(sqlKinds(), ", "))
	fs.StringVar(&f.dsn, "dsn", "", "connection string for --sql-kind")
	fs.StringVar(&f.query, "query", "", "query whose result set is analyzed (with --sql-kind)")
	fs.BoolVar(&f.validate, "validate", false, "validate the configuration and exit")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "enable verbose logs")

	return cmd
}

func sqlKinds() []string {
	var out []string
	for _, k := range source.Kinds() {
		switch k {
		case "csv", "json", "html":
		default:
			out = append(out, k)
		}
	}
	return out
}

// resolveConfig layers defaults, the config file, the environment and the
// flags that were set explicitly, then appends the command-line inputs.
func (a *app) resolveConfig(cmd *cobra.Command, f flags, args []string) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return config.Config{}, usageError{err}
		}
	}
	if err := config.ApplyEnv(&cfg, a.getenv); err != nil {
		return config.Config{}, usageError{err}
	}

	changed := cmd.Flags().Changed
	if changed("format") {
		cfg.Format = f.format
	}
	if changed("dialect") {
		cfg.Dialect = f.dialect
	}
	if changed("encoding") {
		cfg.Encoding = f.encoding
	}
	if changed("progress-every") {
		cfg.ProgressEvery = f.progressEvery
	}
	if changed("keep-going") {
		cfg.KeepGoing = f.keepGoing
	}
	if changed("metrics-backend") {
		cfg.Metrics.Backend = f.metricsBackend
	}
	if changed("verbose") {
		cfg.Verbose = f.verbose
	}

	for _, p := range args {
		cfg.Inputs = append(cfg.Inputs, config.Input{Path: p})
	}
	if f.sqlKind != "" || f.query != "" {
		if f.sqlKind == "" {
			return config.Config{}, usageError{errors.New("--query requires --sql-kind")}
		}
		cfg.Inputs = append(cfg.Inputs, config.Input{Kind: f.sqlKind, DSN: f.dsn, Query: f.query})
	}
	return cfg, nil
}
