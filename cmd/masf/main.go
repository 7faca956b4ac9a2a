// Command masf runs dataflow graphs described in YAML or HCL files.
//
//	masf run --graph pipeline.yaml --input '{"x": 1}'
//	masf validate --graph pipeline.hcl
//	masf kinds
//	masf runs [run-id]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "masf",
		Short:         "Run multi-agent dataflow graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (MASF_* environment variables override it)")

	var (
		graphPath string
		input     string
	)
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a graph definition on an input message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd.Context(), configPath, graphPath, input, cmd.OutOrStdout())
		},
	}
	runCmd.Flags().StringVar(&graphPath, "graph", "", "Graph definition (.yaml, .yml or .hcl)")
	runCmd.Flags().StringVar(&input, "input", "{}", "Input message as JSON or YAML, or @file")
	_ = runCmd.MarkFlagRequired("graph")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Build a graph definition and print its structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateGraph(cmd.Context(), configPath, graphPath, cmd.OutOrStdout())
		},
	}
	validateCmd.Flags().StringVar(&graphPath, "graph", "", "Graph definition (.yaml, .yml or .hcl)")
	_ = validateCmd.MarkFlagRequired("graph")

	kindsCmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the node kinds a definition can use",
		Run: func(cmd *cobra.Command, args []string) {
			listKinds(cmd.OutOrStdout())
		},
	}

	runsCmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded runs, or the steps of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showRuns(cmd.Context(), configPath, args, cmd.OutOrStdout())
		},
	}

	rootCmd.AddCommand(runCmd, validateCmd, kindsCmd, runsCmd)
	return rootCmd
}
