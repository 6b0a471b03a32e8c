package controller

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/client-go/tools/record"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/cappyzawa/webui-operator/internal/config"
	"github.com/cappyzawa/webui-operator/internal/relation"
	"github.com/cappyzawa/webui-operator/internal/status"
	"github.com/cappyzawa/webui-operator/internal/supervisor"
)

type fakeUnit struct {
	version string
	ports   []int
}

func (f *fakeUnit) Model(context.Context) (string, error) {
	return "sdcore", nil
}

func (f *fakeUnit) SetWorkloadVersion(_ context.Context, version string) error {
	f.version = version
	return nil
}

func (f *fakeUnit) OpenPort(_ context.Context, port int) error {
	f.ports = append(f.ports, port)
	return nil
}

// failingSupervisor fails the next writes of chosen paths and the next
// restarts.
type failingSupervisor struct {
	*supervisor.FakeSupervisor
	failWrites   map[string]int
	failRestarts int
}

func (f *failingSupervisor) WriteFile(ctx context.Context, p string, content []byte) error {
	if f.failWrites[p] > 0 {
		f.failWrites[p]--
		return errors.New("write failed")
	}
	return f.FakeSupervisor.WriteFile(ctx, p, content)
}

func (f *failingSupervisor) RestartService(ctx context.Context, name string) error {
	if f.failRestarts > 0 {
		f.failRestarts--
		return errors.New("restart failed")
	}
	return f.FakeSupervisor.RestartService(ctx, name)
}

type staticAddress string

func (a staticAddress) PrivateAddress(context.Context) (string, error) {
	return string(a), nil
}

var _ = Describe("Engine", func() {
	var (
		ctx      context.Context
		cfg      *config.OperatorConfig
		exchange *relation.MemoryExchange
		sup      *supervisor.FakeSupervisor
		setter   *status.MemorySetter
		unit     *fakeUnit
		engine   *Engine

		newEngine func(supervisor.Supervisor) *Engine

		updateStatus = Trigger{Kind: TriggerUpdateStatus}
	)

	credentials := func(uris string) map[string]string {
		return map[string]string{"username": "banana", "password": "pizza", "uris": uris}
	}

	// readyWorld relates both databases, provisions them and attaches storage
	readyWorld := func() (relation.Relation, relation.Relation) {
		common := exchange.AddRelation("common_database", "mongodb")
		auth := exchange.AddRelation("auth_database", "mongodb")
		Expect(exchange.UpdateRemoteAppData(common.ID, credentials("1.9.11.4:1234"))).To(Succeed())
		Expect(exchange.UpdateRemoteAppData(auth.ID, credentials("1.8.11.4:1234"))).To(Succeed())
		sup.MakeDir(cfg.Workload.ConfigDir)
		return common, auth
	}

	newEngine = func(s supervisor.Supervisor) *Engine {
		e, err := NewEngine(Options{
			Config:       cfg,
			Exchange:     exchange,
			Leadership:   exchange,
			Supervisor:   s,
			Addresses:    staticAddress("10.0.0.7"),
			Unit:         unit,
			StatusSetter: setter,
			Recorder:     record.NewFakeRecorder(100),
			Clock:        clocktesting.NewFakePassiveClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		})
		Expect(err).NotTo(HaveOccurred())
		return e
	}

	reconcile := func(t Trigger) {
		_, err := engine.Reconcile(ctx, t)
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.DefaultOperatorConfig()
		exchange = relation.NewMemoryExchange()
		sup = supervisor.NewFakeSupervisor()
		setter = status.NewMemorySetter()
		unit = &fakeUnit{}

		engine = newEngine(sup)
	})

	It("rejects missing collaborators", func() {
		_, err := NewEngine(Options{})
		Expect(err).To(HaveOccurred())
	})

	Context("with an ingress relation", func() {
		var ingress relation.Relation

		BeforeEach(func() {
			ingress = exchange.AddRelation("ingress", "traefik")
		})

		It("requests the route before the databases are related", func() {
			reconcile(Trigger{Kind: TriggerRelationJoined, Endpoint: "ingress"})

			local, err := exchange.LocalAppData(ctx, ingress)
			Expect(err).NotTo(HaveOccurred())
			Expect(local).To(Equal(map[string]string{
				"model":        `"sdcore"`,
				"name":         `"webui"`,
				"port":         "5000",
				"strip-prefix": "true",
			}))
			Expect(setter.Current()).To(Equal(status.Blocked("Waiting for common_database relation to be created")))
		})

		It("leaves the route alone on other units", func() {
			exchange.SetLeader(false)
			reconcile(Trigger{Kind: TriggerRelationJoined, Endpoint: "ingress"})

			local, err := exchange.LocalAppData(ctx, ingress)
			Expect(err).NotTo(HaveOccurred())
			Expect(local).To(BeEmpty())
		})
	})

	Context("on a unit that is not the leader", func() {
		BeforeEach(func() {
			exchange.SetLeader(false)
			readyWorld()
			exchange.AddRelation("sdcore-config", "nms")
		})

		It("reports Blocked and has no side effects", func() {
			reconcile(updateStatus)

			Expect(setter.Current()).To(Equal(status.Blocked("Scaling is not implemented for this charm")))
			Expect(sup.TotalWrites()).To(BeZero())
			Expect(sup.Applies).To(BeZero())
			Expect(unit.ports).To(BeEmpty())
			Expect(unit.version).To(BeEmpty())

			rels, err := exchange.Relations(ctx, "sdcore-config")
			Expect(err).NotTo(HaveOccurred())
			local, err := exchange.LocalAppData(ctx, rels[0])
			Expect(err).NotTo(HaveOccurred())
			Expect(local).To(BeEmpty())
		})
	})

	Context("before the databases are related", func() {
		It("waits for the common database relation", func() {
			reconcile(updateStatus)
			Expect(setter.Current()).To(Equal(status.Blocked("Waiting for common_database relation to be created")))
			Expect(unit.ports).To(Equal([]int{9876, 5000}))
		})

		It("requests the database as soon as its relation exists", func() {
			common := exchange.AddRelation("common_database", "mongodb")
			reconcile(Trigger{Kind: TriggerRelationJoined, Endpoint: "common_database"})

			local, err := exchange.LocalAppData(ctx, common)
			Expect(err).NotTo(HaveOccurred())
			Expect(local).To(Equal(map[string]string{"database": "free5gc", "extra-user-roles": "admin"}))
			Expect(setter.Current()).To(Equal(status.Blocked("Waiting for auth_database relation to be created")))
		})

		It("waits for the databases to be provisioned", func() {
			exchange.AddRelation("common_database", "mongodb")
			auth := exchange.AddRelation("auth_database", "mongodb")
			Expect(exchange.UpdateRemoteAppData(auth.ID, credentials("1.8.11.4:1234"))).To(Succeed())

			reconcile(updateStatus)
			Expect(setter.Current()).To(Equal(status.Waiting("Waiting for the common database to be available")))
			Expect(sup.TotalWrites()).To(BeZero())
		})
	})

	Context("when the runtime is not ready", func() {
		It("waits for the container", func() {
			readyWorld()
			sup.SetReachable(false)
			reconcile(updateStatus)
			Expect(setter.Current()).To(Equal(status.Waiting("Waiting for container to be ready")))
		})

		It("waits for storage without writing anything", func() {
			exchange.AddRelation("common_database", "mongodb")
			exchange.AddRelation("auth_database", "mongodb")
			for _, rel := range mustRelations(exchange, "common_database", "auth_database") {
				Expect(exchange.UpdateRemoteAppData(rel.ID, credentials("1.2.3.4:1"))).To(Succeed())
			}

			reconcile(updateStatus)
			Expect(setter.Current()).To(Equal(status.Waiting("Waiting for storage to be attached")))
			Expect(sup.TotalWrites()).To(BeZero())
		})
	})

	Context("with every dependency available", func() {
		BeforeEach(func() {
			readyWorld()
		})

		It("writes the artifacts, starts the service and reports Active", func() {
			reconcile(updateStatus)

			Expect(sup.Writes).To(HaveKeyWithValue(cfg.Workload.ConfigPath(), 1))
			Expect(sup.Writes).To(HaveKeyWithValue(cfg.Workload.UPFConfigPath(), 1))
			Expect(sup.Writes).To(HaveKeyWithValue(cfg.Workload.GNBConfigPath(), 1))
			Expect(sup.Applies).To(Equal(1))
			Expect(sup.Restarts["webui"]).To(Equal(1))
			Expect(setter.Current()).To(Equal(status.Active()))
		})

		It("uses the first listed endpoint of each database", func() {
			common := mustRelations(exchange, "common_database")[0]
			Expect(exchange.UpdateRemoteAppData(common.ID, credentials("a:1,b:2"))).To(Succeed())

			reconcile(updateStatus)

			content, err := sup.ReadFile(ctx, cfg.Workload.ConfigPath())
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(ContainSubstring("url: a:1\n"))
			Expect(string(content)).To(ContainSubstring("authUrl: 1.8.11.4:1234\n"))
			Expect(string(content)).NotTo(ContainSubstring("b:2"))
		})

		It("writes empty peer inventories without any peer relation", func() {
			reconcile(updateStatus)

			for _, p := range []string{cfg.Workload.UPFConfigPath(), cfg.Workload.GNBConfigPath()} {
				content, err := sup.ReadFile(ctx, p)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(content)).To(Equal("[]"))
			}
		})

		It("is idempotent", func() {
			reconcile(updateStatus)
			writes, applies, restarts := sup.TotalWrites(), sup.Applies, sup.TotalRestarts()

			reconcile(updateStatus)
			reconcile(Trigger{Kind: TriggerConfigChanged})

			Expect(sup.TotalWrites()).To(Equal(writes))
			Expect(sup.Applies).To(Equal(applies))
			Expect(sup.TotalRestarts()).To(Equal(restarts))
			Expect(setter.Current()).To(Equal(status.Active()))
		})

		It("restarts only when the primary configuration changes", func() {
			reconcile(updateStatus)
			Expect(sup.TotalRestarts()).To(Equal(1))

			upf := exchange.AddRelation("fiveg_n4", "upf")
			Expect(exchange.UpdateRemoteAppData(upf.ID, map[string]string{"upf_hostname": "upf.example", "upf_port": "8805"})).To(Succeed())
			reconcile(Trigger{Kind: TriggerRelationChanged, Endpoint: "fiveg_n4"})

			content, err := sup.ReadFile(ctx, cfg.Workload.UPFConfigPath())
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal(`[{"hostname":"upf.example","port":"8805"}]`))
			Expect(sup.TotalRestarts()).To(Equal(1))

			common := mustRelations(exchange, "common_database")[0]
			Expect(exchange.UpdateRemoteAppData(common.ID, credentials("9.9.9.9:27017"))).To(Succeed())
			reconcile(Trigger{Kind: TriggerRelationChanged, Endpoint: "common_database"})
			Expect(sup.TotalRestarts()).To(Equal(2))
		})

		Context("when the workload fails part of a pass", func() {
			var failing *failingSupervisor

			BeforeEach(func() {
				failing = &failingSupervisor{FakeSupervisor: sup, failWrites: map[string]int{}}
				engine = newEngine(failing)
				reconcile(updateStatus)
				Expect(sup.TotalRestarts()).To(Equal(1))
			})

			It("restarts for a new primary configuration even when a peer inventory write fails", func() {
				upf := exchange.AddRelation("fiveg_n4", "upf")
				Expect(exchange.UpdateRemoteAppData(upf.ID, map[string]string{"upf_hostname": "upf.example", "upf_port": "8805"})).To(Succeed())
				common := mustRelations(exchange, "common_database")[0]
				Expect(exchange.UpdateRemoteAppData(common.ID, credentials("9.9.9.9:27017"))).To(Succeed())
				failing.failWrites[cfg.Workload.UPFConfigPath()] = 1

				reconcile(Trigger{Kind: TriggerRelationChanged, Endpoint: "common_database"})
				Expect(sup.TotalRestarts()).To(Equal(2))
				content, err := sup.ReadFile(ctx, cfg.Workload.ConfigPath())
				Expect(err).NotTo(HaveOccurred())
				Expect(string(content)).To(ContainSubstring("url: 9.9.9.9:27017\n"))

				reconcile(updateStatus)
				content, err = sup.ReadFile(ctx, cfg.Workload.UPFConfigPath())
				Expect(err).NotTo(HaveOccurred())
				Expect(string(content)).To(Equal(`[{"hostname":"upf.example","port":"8805"}]`))
				Expect(sup.TotalRestarts()).To(Equal(2))
				Expect(setter.Current()).To(Equal(status.Active()))
			})

			It("keeps a failed restart owed until it succeeds", func() {
				common := mustRelations(exchange, "common_database")[0]
				Expect(exchange.UpdateRemoteAppData(common.ID, credentials("9.9.9.9:27017"))).To(Succeed())
				failing.failRestarts = 1

				reconcile(Trigger{Kind: TriggerRelationChanged, Endpoint: "common_database"})
				Expect(sup.TotalRestarts()).To(Equal(1))

				reconcile(updateStatus)
				Expect(sup.TotalRestarts()).To(Equal(2))

				reconcile(updateStatus)
				Expect(sup.TotalRestarts()).To(Equal(2))
			})
		})

		It("drops a torn down peer from its inventory on relation-broken", func() {
			upf := exchange.AddRelation("fiveg_n4", "upf")
			Expect(exchange.UpdateRemoteAppData(upf.ID, map[string]string{"upf_hostname": "upf.example", "upf_port": "8805"})).To(Succeed())
			reconcile(updateStatus)

			exchange.RemoveRelation(upf.ID)
			reconcile(Trigger{Kind: TriggerRelationBroken, Endpoint: "fiveg_n4"})

			content, err := sup.ReadFile(ctx, cfg.Workload.UPFConfigPath())
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal("[]"))
		})

		It("skips peers with incomplete data", func() {
			for i, bag := range []map[string]string{
				{"gnb_name": "gnb01", "tac": "1"},
				{"gnb_name": "gnb02"},
				{"gnb_name": "gnb03", "tac": "3"},
			} {
				rel := exchange.AddRelation("fiveg_gnb_identity", []string{"ran1", "ran2", "ran3"}[i])
				Expect(exchange.UpdateRemoteAppData(rel.ID, bag)).To(Succeed())
			}

			reconcile(updateStatus)

			content, err := sup.ReadFile(ctx, cfg.Workload.GNBConfigPath())
			Expect(err).NotTo(HaveOccurred())
			Expect(string(content)).To(Equal(`[{"name":"gnb01","tac":"1"},{"name":"gnb03","tac":"3"}]`))
		})

		It("reports Active without writing when everything is already in place", func() {
			reconcile(updateStatus)

			fresh := supervisor.NewFakeSupervisor()
			for _, p := range []string{cfg.Workload.ConfigPath(), cfg.Workload.UPFConfigPath(), cfg.Workload.GNBConfigPath()} {
				content, err := sup.ReadFile(ctx, p)
				Expect(err).NotTo(HaveOccurred())
				fresh.SetFile(p, content)
			}
			layer := engine.planManager.DesiredLayer(ctx)
			Expect(fresh.ApplyPlan(ctx, "webui", layer)).To(Succeed())
			fresh.Applies = 0

			other, err := NewEngine(Options{
				Config:       cfg,
				Exchange:     exchange,
				Leadership:   exchange,
				Supervisor:   fresh,
				Addresses:    staticAddress("10.0.0.7"),
				Unit:         unit,
				StatusSetter: setter,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = other.Reconcile(ctx, updateStatus)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.TotalWrites()).To(BeZero())
			Expect(fresh.Applies).To(BeZero())
			Expect(fresh.TotalRestarts()).To(BeZero())
			Expect(setter.Current()).To(Equal(status.Active()))
		})

		It("publishes the endpoints once the service runs", func() {
			webui := exchange.AddRelation("sdcore-config", "nms")
			management := exchange.AddRelation("sdcore-management", "nms")

			reconcile(Trigger{Kind: TriggerRelationJoined, Endpoint: "sdcore-config"})

			local, err := exchange.LocalAppData(ctx, webui)
			Expect(err).NotTo(HaveOccurred())
			Expect(local).To(Equal(map[string]string{"webui_url": "webui:9876"}))

			local, err = exchange.LocalAppData(ctx, management)
			Expect(err).NotTo(HaveOccurred())
			Expect(local).To(Equal(map[string]string{"management_url": "http://10.0.0.7:5000"}))
		})

		It("reports the workload version", func() {
			sup.SetFile(cfg.Workload.VersionFile, []byte("1.5.0\n"))
			reconcile(updateStatus)
			Expect(unit.version).To(Equal("1.5.0"))
		})

		It("only reports status for unrelated triggers", func() {
			reconcile(Trigger{Kind: "install"})
			Expect(sup.TotalWrites()).To(BeZero())
			Expect(setter.Current()).To(Equal(status.Waiting("Waiting for webui config file to be stored")))
		})

		It("converges when an observed relation brings new data", func() {
			reconcile(Trigger{Kind: TriggerRelationChanged, Endpoint: "common_database"})
			Expect(sup.TotalWrites()).To(Equal(3))

			reconcile(Trigger{Kind: TriggerRelationChanged, Endpoint: "common_database"})
			Expect(sup.TotalWrites()).To(Equal(3))
		})

		It("enqueues derived triggers", func() {
			var derived []Trigger
			engine.SetEnqueue(func(t Trigger) { derived = append(derived, t) })

			reconcile(updateStatus)
			Expect(derived).To(ConsistOf(
				Trigger{Kind: TriggerDatabaseCreated, Endpoint: "common_database"},
				Trigger{Kind: TriggerDatabaseCreated, Endpoint: "auth_database"},
			))
		})

		It("waits for the service when it does not start", func() {
			sup.StartOnReplan = false
			reconcile(updateStatus)
			sup.SetRunning("webui", false)
			reconcile(Trigger{Kind: "install"})
			Expect(setter.Current()).To(Equal(status.Waiting("Waiting for webui service to start")))
		})
	})

	It("projects status without side effects", func() {
		readyWorld()
		report := engine.Status(ctx)
		Expect(report.Status).To(Equal(status.Waiting("Waiting for webui config file to be stored")))
		Expect(setter.History()).To(BeEmpty())
		Expect(sup.TotalWrites()).To(BeZero())
	})
})

func mustRelations(exchange *relation.MemoryExchange, names ...string) []relation.Relation {
	var out []relation.Relation
	for _, name := range names {
		rels, err := exchange.Relations(context.Background(), name)
		Expect(err).NotTo(HaveOccurred())
		out = append(out, rels...)
	}
	return out
}
