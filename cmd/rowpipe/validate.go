package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rowpipe/internal/config"
)

func newValidateCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a pipeline config without running it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			issues := config.ValidatePipeline(p)
			for _, iss := range issues {
				fmt.Fprintln(cmd.OutOrStdout(), iss.Error())
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid: %s", cfgPath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %s\n", cfgPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "pipeline config path (YAML or JSON)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
