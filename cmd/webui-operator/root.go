package main

import (
	"flag"
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/cappyzawa/webui-operator/internal/config"
)

// detailedLevel is the most verbose V level written with detailed logging
const detailedLevel = 10

// rootOptions holds the flags shared by every command
type rootOptions struct {
	configFile      string
	configMap       bool
	loaderNamespace string
	unit            string
	zap             zap.Options
	out             io.Writer
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{
		zap: zap.Options{Development: false},
		out: os.Stderr,
	}

	cmd := &cobra.Command{
		Use:           "webui-operator",
		Short:         "Operate the SD-Core webui workload",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.out = cmd.ErrOrStderr()
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts.zap), zap.WriteTo(opts.out)))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "/etc/webui-operator/config.yaml",
		"Path of the operator configuration file. Defaults apply when it does not exist.")
	flags.BoolVar(&opts.configMap, "config-from-configmap", false,
		"Load the operator configuration from a ConfigMap instead of a file.")
	flags.StringVar(&opts.loaderNamespace, "config-namespace", "",
		"Namespace of the configuration ConfigMap.")
	flags.StringVar(&opts.unit, "unit", "",
		"Unit to act for through juju-exec. Empty means the current hook context.")

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	opts.zap.BindFlags(goFlags)
	flags.AddGoFlagSet(goFlags)

	cmd.AddCommand(
		newDispatchCommand(opts),
		newServeCommand(opts),
		newStatusCommand(opts),
	)
	return cmd
}

// logger returns the named logger for passes run with cfg. Detailed logging
// writes every V level regardless of the zap flags.
func (o *rootOptions) logger(cfg *config.OperatorConfig, name string) logr.Logger {
	if cfg == nil || !cfg.Features.EnableDetailedLogging {
		return ctrl.Log.WithName(name)
	}
	detailed := o.zap
	detailed.Level = zapcore.Level(-detailedLevel)
	return zap.New(zap.UseFlagOptions(&detailed), zap.WriteTo(o.out)).WithName(name)
}
