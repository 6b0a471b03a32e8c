package controller

import (
	"context"
	"time"

	"k8s.io/client-go/util/workqueue"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

// Dispatcher feeds triggers to a reconciler from a single worker. Pending
// duplicates are coalesced by the queue.
type Dispatcher struct {
	reconciler reconcile.TypedReconciler[Trigger]
	queue      workqueue.TypedRateLimitingInterface[Trigger]
	clock      clock.WithTicker
	interval   time.Duration
}

// NewDispatcher creates a Dispatcher that also enqueues an update-status
// trigger every interval. A zero interval disables the timer.
func NewDispatcher(r reconcile.TypedReconciler[Trigger], c clock.WithTicker, interval time.Duration) *Dispatcher {
	if c == nil {
		c = clock.RealClock{}
	}
	queue := workqueue.NewTypedRateLimitingQueueWithConfig(
		workqueue.DefaultTypedControllerRateLimiter[Trigger](),
		workqueue.TypedRateLimitingQueueConfig[Trigger]{
			Name:  "webui",
			Clock: c,
		},
	)
	return &Dispatcher{
		reconciler: r,
		queue:      queue,
		clock:      c,
		interval:   interval,
	}
}

// Enqueue requests a pass for t
func (d *Dispatcher) Enqueue(t Trigger) {
	d.queue.Add(t)
}

// Len returns the number of pending triggers
func (d *Dispatcher) Len() int {
	return d.queue.Len()
}

// Start processes triggers until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) error {
	log := ctrl.LoggerFrom(ctx).WithValues("dispatcher", "webui")
	ctx = ctrl.LoggerInto(ctx, log)

	go func() {
		<-ctx.Done()
		d.queue.ShutDown()
	}()
	if d.interval > 0 {
		go d.tick(ctx)
	}

	log.Info("Starting dispatcher", "updateStatusInterval", d.interval)
	for d.processNextItem(ctx) {
	}
	log.Info("Dispatcher stopped")
	return nil
}

func (d *Dispatcher) tick(ctx context.Context) {
	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			d.Enqueue(Trigger{Kind: TriggerUpdateStatus})
		}
	}
}

func (d *Dispatcher) processNextItem(ctx context.Context) bool {
	t, shutdown := d.queue.Get()
	if shutdown {
		return false
	}
	defer d.queue.Done(t)

	result, err := d.reconciler.Reconcile(ctx, t)
	switch {
	case err != nil:
		ctrl.LoggerFrom(ctx).Error(err, "Pass failed", "trigger", t.String())
		d.queue.AddRateLimited(t)
	case result.RequeueAfter > 0:
		d.queue.Forget(t)
		d.queue.AddAfter(t, result.RequeueAfter)
	case result.Requeue:
		d.queue.AddRateLimited(t)
	default:
		d.queue.Forget(t)
	}
	return true
}
