package main

import (
	"github.com/spf13/cobra"

	"rowpipe/internal/config"
	"rowpipe/internal/etl"
)

func newPreviewCmd() *cobra.Command {
	var (
		cfgPath string
		n       int
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print how the first rows map into the destination",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			return etl.Preview(cmd.Context(), p, n, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "pipeline config path (YAML or JSON)")
	cmd.Flags().IntVar(&n, "rows", 5, "number of rows to show")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
