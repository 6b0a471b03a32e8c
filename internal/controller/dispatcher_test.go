package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
)

type recordingReconciler struct {
	mu       sync.Mutex
	seen     []Trigger
	active   int
	maxSeen  int
	block    chan struct{}
	failures map[TriggerKind]int
}

func (r *recordingReconciler) Reconcile(_ context.Context, t Trigger) (reconcile.Result, error) {
	r.mu.Lock()
	r.active++
	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	r.seen = append(r.seen, t)
	block := r.block
	fail := r.failures[t.Kind] > 0
	if fail {
		r.failures[t.Kind]--
	}
	r.mu.Unlock()

	if block != nil {
		<-block
	}

	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	if fail {
		return reconcile.Result{}, errors.New("boom")
	}
	return reconcile.Result{}, nil
}

func (r *recordingReconciler) triggers() []Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Trigger(nil), r.seen...)
}

func (r *recordingReconciler) concurrency() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxSeen
}

var _ = Describe("Dispatcher", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		clk    *clocktesting.FakeClock
		rec    *recordingReconciler
		done   chan struct{}
	)

	start := func(d *Dispatcher) {
		done = make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)
			Expect(d.Start(ctx)).To(Succeed())
		}()
	}

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		clk = clocktesting.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
		rec = &recordingReconciler{failures: map[TriggerKind]int{}}
	})

	AfterEach(func() {
		cancel()
		Eventually(done).Should(BeClosed())
	})

	It("hands every trigger to the reconciler", func() {
		d := NewDispatcher(rec, clk, 0)
		start(d)

		d.Enqueue(Trigger{Kind: TriggerConfigChanged})
		d.Enqueue(Trigger{Kind: TriggerRelationJoined, Endpoint: "sdcore-config"})

		Eventually(rec.triggers).Should(ConsistOf(
			Trigger{Kind: TriggerConfigChanged},
			Trigger{Kind: TriggerRelationJoined, Endpoint: "sdcore-config"},
		))
	})

	It("runs one pass at a time and coalesces pending duplicates", func() {
		rec.block = make(chan struct{})
		d := NewDispatcher(rec, clk, 0)
		start(d)

		d.Enqueue(Trigger{Kind: TriggerConfigChanged})
		Eventually(func() int { return len(rec.triggers()) }).Should(Equal(1))

		for range 3 {
			d.Enqueue(Trigger{Kind: TriggerUpdateStatus})
		}
		d.Enqueue(Trigger{Kind: TriggerPebbleReady, Endpoint: "webui"})
		Expect(d.Len()).To(Equal(2))

		close(rec.block)
		Eventually(func() int { return len(rec.triggers()) }).Should(Equal(3))
		Consistently(func() int { return len(rec.triggers()) }, 100*time.Millisecond).Should(Equal(3))
		Expect(rec.concurrency()).To(Equal(1))
	})

	It("emits update-status on every interval", func() {
		d := NewDispatcher(rec, clk, time.Minute)
		start(d)

		Eventually(func() []Trigger {
			clk.Step(time.Minute)
			return rec.triggers()
		}).Should(ContainElement(Trigger{Kind: TriggerUpdateStatus}))
	})

	It("retries a failed pass", func() {
		rec.failures[TriggerConfigChanged] = 1
		d := NewDispatcher(rec, clk, 0)
		start(d)

		d.Enqueue(Trigger{Kind: TriggerConfigChanged})
		Eventually(func() int {
			clk.Step(time.Second)
			return len(rec.triggers())
		}).Should(Equal(2))
	})
})
