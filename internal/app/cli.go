package app

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Paladin4ick/ZoonParser/internal/browser"
)

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit %d", e.code)
}

var Version = "dev"

func Execute(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	return execute(App{In: in, Out: out, Err: errOut, Engine: browser.PlaywrightEngine{}}, args)
}

func execute(app App, args []string) int {
	flags := GlobalFlags{}
	var showVersion bool

	root := &cobra.Command{
		Use:           "zoonparser",
		Short:         "Collect zoon.ru listings and read their latest reviews",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.PersistentFlags().BoolVarP(&showVersion, "version", "V", false, "version")
	root.PersistentFlags().StringVarP(&flags.Config, "config", "C", "", "config file")
	root.PersistentFlags().StringVarP(&flags.LogDir, "log-dir", "l", "", "log directory")
	root.PersistentFlags().StringVarP(&flags.DataDir, "data-dir", "D", "", "run archive directory")
	root.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "json output")
	root.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "quiet output")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().BoolVarP(&flags.Headless, "headless", "H", false, "run headless")
	root.PersistentFlags().BoolVarP(&flags.Headed, "headed", "E", false, "run headed")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if showVersion {
			fmt.Fprintln(app.Out, Version)
			return exitError{code: exitSuccess}
		}
		return nil
	}

	root.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install Playwright driver and browsers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return exitOrNil(app.runInstall(flags))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Log in, collect listings and extract their latest reviews",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, store, err := app.prepare(flags)
			if err != nil {
				fmt.Fprintln(app.Err, err)
				return exitError{code: exitFailure}
			}
			return exitOrNil(app.runScrape(cmd.Context(), cfg, store, flags))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "parse FILE",
		Short: "Extract the latest review from a saved review page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return exitOrNil(app.runParse(flags, args[0]))
		},
	})

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage archived runs",
	}
	runsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List archived runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, err := app.prepare(flags)
			if err != nil {
				fmt.Fprintln(app.Err, err)
				return exitError{code: exitFailure}
			}
			return exitOrNil(app.runList(store, flags))
		},
	})
	runsCmd.AddCommand(&cobra.Command{
		Use:   "show ID",
		Short: "Show an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := app.prepare(flags)
			if err != nil {
				fmt.Fprintln(app.Err, err)
				return exitError{code: exitFailure}
			}
			return exitOrNil(app.runShow(store, flags, args[0]))
		},
	})
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove runs older than the retention",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			_, store, err := app.prepare(flags)
			if err != nil {
				fmt.Fprintln(app.Err, err)
				return exitError{code: exitFailure}
			}
			return exitOrNil(app.runPrune(store, flags, dryRun))
		},
	}
	pruneCmd.Flags().BoolP("dry-run", "n", false, "preview")
	runsCmd.AddCommand(pruneCmd)
	root.AddCommand(runsCmd)

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		fmt.Fprintln(app.Err, err)
		return exitUsage
	}
	return exitSuccess
}

func exitOrNil(code int) error {
	if code == exitSuccess {
		return nil
	}
	return exitError{code: code}
}
