// Command webui-operator converges the SD-Core webui workload with its
// relations. It runs once per Juju hook through the dispatch command or as a
// long-running process through serve.
package main

import (
	"os"

	ctrl "sigs.k8s.io/controller-runtime"
)

func main() {
	if err := newRootCommand().ExecuteContext(ctrl.SetupSignalHandler()); err != nil {
		ctrl.Log.WithName("setup").Error(err, "Command failed")
		os.Exit(1)
	}
}
