package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChicagoDave/daylight/pkg/errs"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "daylight",
		Short:         "Annual daylight metrics (BREEAM, UDI, sDA, ASE) from simulation results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, diagnostic(err))
		os.Exit(errs.ExitCode(err))
	}
}

func runCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "run [project-path]",
		Short: "Compute daylight metrics and write daylight_summary.json",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, projectArg(args), &f)
		},
	}
	f.register(cmd)
	return cmd
}

func validateCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "validate [project-path]",
		Short: "Validate the run configuration without reading any results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, projectArg(args), &f)
		},
	}
	f.register(cmd)
	return cmd
}

func reportCmd() *cobra.Command {
	var failing bool
	cmd := &cobra.Command{
		Use:   "report <summary.json>",
		Short: "Print an existing daylight summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runReport(args[0], failing)
		},
	}
	cmd.Flags().BoolVar(&failing, "failing", false, "list only rooms that do not pass")
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		f    flags
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve [project-path]",
		Short: "Serve the project summary over HTTP and accept run requests",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, projectArg(args), &f, port)
		},
	}
	f.register(cmd)
	cmd.Flags().IntVarP(&port, "port", "p", 3000, "HTTP server port")
	return cmd
}

func projectArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}

// diagnostic names the error kind so calling tools can tell an aborted
// run apart from a bad configuration.
func diagnostic(err error) string {
	if kind := errs.Kind(err); kind != "" {
		return fmt.Sprintf("daylight: %s error: %v", kind, err)
	}
	return fmt.Sprintf("daylight: %v", err)
}
