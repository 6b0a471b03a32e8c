package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/cappyzawa/webui-operator/internal/controller"
	"github.com/cappyzawa/webui-operator/internal/hookenv"
)

func newDispatchCommand(opts *rootOptions) *cobra.Command {
	var hook string

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Run a single pass for the current hook",
		Long: `Run a single pass for the hook named by JUJU_DISPATCH_PATH or --hook.
Hooks unrelated to the workload only refresh the unit status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := ctrl.Log.WithName("dispatch")
			ctx = ctrl.LoggerInto(ctx, log)

			if hook == "" {
				hook = os.Getenv(hookenv.DispatchPathEnv)
			}
			trigger, err := controller.TriggerFromHook(hook)
			if err != nil {
				return err
			}

			loader, err := newLoader(opts)
			if err != nil {
				return err
			}
			defer func() { _ = loader.Close() }()
			cfg, err := loadConfig(ctx, loader)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			log = opts.logger(cfg, "dispatch")
			ctx = ctrl.LoggerInto(ctx, log)

			env, err := newHookEnv(opts.unit)
			if err != nil {
				return err
			}
			if err := excludeBroken(env, trigger, os.Getenv(hookenv.RelationIDEnv)); err != nil {
				return err
			}
			recorder, stop := newRecorder(ctx, "webui-operator")
			defer stop()

			engine, err := newEngine(cfg, engineDeps{env: env, recorder: recorder})
			if err != nil {
				return err
			}

			log.Info("Dispatching", "trigger", trigger.String(), "unit", env.Unit().Id())
			_, err = engine.Reconcile(ctx, trigger)
			return err
		},
	}

	cmd.Flags().StringVar(&hook, "hook", "", "Hook path, for example hooks/config-changed")
	return cmd
}

// excludeBroken hides the relation torn down by a relation-broken trigger so
// that the pass rebuilds the inventories without it.
func excludeBroken(env *hookenv.HookEnv, trigger controller.Trigger, relationKey string) error {
	if trigger.Kind != controller.TriggerRelationBroken || relationKey == "" {
		return nil
	}
	return env.ExcludeRelation(relationKey)
}
