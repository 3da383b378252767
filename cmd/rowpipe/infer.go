package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rowpipe/internal/config"
	"rowpipe/internal/datasource/file"
	"rowpipe/internal/datasource/httpds"
	"rowpipe/internal/ddl"
	"rowpipe/internal/etl"
)

type inferOptions struct {
	config      string
	name        string
	maxRows     int
	parallelism int
	dialect     string
	list        string
	comma       string
	header      string
	normalize   bool
}

func newInferCmd(root *rootOptions) *cobra.Command {
	opts := &inferOptions{}

	cmd := &cobra.Command{
		Use:   "infer [locations...]",
		Short: "Infer a CREATE TABLE statement from sampled CSV files",
		Example: `  rowpipe infer --name payments data/2024-*.csv
  rowpipe infer --dialect postgres --list urls.txt --max-rows 5000
  rowpipe infer --config pipeline.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				base etl.InferOptions
				src  config.Source
			)
			locations := args
			if opts.config != "" {
				p, err := config.Load(opts.config)
				if err != nil {
					return err
				}
				if base, err = etl.InferOptionsFor(p); err != nil {
					return err
				}
				src = p.Source
				if len(locations) == 0 && opts.list == "" && src.Location != "" {
					locations = []string{src.Location}
				}
			}
			if opts.list != "" {
				listed, err := file.ReadList(opts.list)
				if err != nil {
					return fmt.Errorf("read list: %w", err)
				}
				locations = append(locations, listed...)
			}
			if len(locations) == 0 {
				return fmt.Errorf("no locations given")
			}

			// Flags win when set explicitly or when there is no pipeline to
			// take defaults from.
			use := func(flag string) bool { return opts.config == "" || cmd.Flags().Changed(flag) }
			if use("name") || base.Name == "" {
				base.Name = opts.name
			}
			if use("max-rows") {
				base.MaxRows = opts.maxRows
			}
			if use("parallelism") {
				base.Parallelism = opts.parallelism
			}
			if use("dialect") || base.Dialect == "" {
				d, err := ddl.ParseDialect(opts.dialect)
				if err != nil {
					return err
				}
				base.Dialect = d
			}
			if use("comma") {
				src.Comma = opts.comma
			}
			if use("header") {
				src.Header = opts.header
			}
			if use("normalize-names") {
				src.NormalizeNames = opts.normalize
			}
			csvOpts, err := etl.CSVOptions(src)
			if err != nil {
				return err
			}
			base.CSV = csvOpts
			base.Client = httpds.NewClient(httpds.Config{MaxRetries: 3, Logger: root.logger})
			base.Logger = root.logger

			res, err := etl.Infer(cmd.Context(), locations, base)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.DDL)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.config, "config", "", "pipeline config whose source, runtime and storage settings supply defaults")
	f.StringVar(&opts.name, "name", "inferred", "table name for the generated DDL")
	f.IntVar(&opts.maxRows, "max-rows", 1000, "rows sampled per location (0 = all)")
	f.IntVar(&opts.parallelism, "parallelism", 4, "locations sampled concurrently")
	f.StringVar(&opts.dialect, "dialect", "sqlserver", "DDL dialect (sqlserver, postgres, sqlite)")
	f.StringVar(&opts.list, "list", "", "file with one location per line")
	f.StringVar(&opts.comma, "comma", ",", "field delimiter")
	f.StringVar(&opts.header, "header", "present", "header mode (present, absent, detect)")
	f.BoolVar(&opts.normalize, "normalize-names", false, "rewrite header names to lower_snake")
	return cmd
}
