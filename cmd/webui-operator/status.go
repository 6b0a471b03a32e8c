package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cappyzawa/webui-operator/internal/status"
)

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the projected unit status and its conditions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := ctrl.LoggerInto(cmd.Context(), ctrl.Log.WithName("status"))

			loader, err := newLoader(opts)
			if err != nil {
				return err
			}
			defer func() { _ = loader.Close() }()
			cfg, err := loadConfig(ctx, loader)
			if err != nil {
				return err
			}
			env, err := newHookEnv(opts.unit)
			if err != nil {
				return err
			}
			engine, err := newEngine(cfg, engineDeps{env: env})
			if err != nil {
				return err
			}

			return printReport(cmd, engine.Status(ctx))
		},
	}
}

func printReport(cmd *cobra.Command, report status.Report) error {
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, report.Status.String()); err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONDITION\tSTATUS\tREASON\tMESSAGE")
	for _, c := range report.Conditions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Type, c.Status, c.Reason, c.Message)
	}
	return w.Flush()
}
