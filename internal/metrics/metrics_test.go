package metrics_test

import (
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("NewMetrics", func() {
		It("should create a new metrics instance", func() {
			Expect(m).NotTo(BeNil())
		})
	})

	Describe("RecordProbe", func() {
		It("should count probes and failures per node", func() {
			m.RecordProbe("optimusdb1", true)
			m.RecordProbe("optimusdb1", false)
			m.RecordProbe("optimusdb2", true)

			snap := m.Snapshot("round-robin")
			Expect(snap.TotalProbes).To(Equal(int64(3)))
			Expect(snap.Nodes["optimusdb1"].Probes).To(Equal(int64(2)))
			Expect(snap.Nodes["optimusdb1"].ProbeFailures).To(Equal(int64(1)))
			Expect(snap.Nodes["optimusdb2"].ProbeFailures).To(Equal(int64(0)))
		})
	})

	Describe("RecordNodeSelection", func() {
		It("should track node selections", func() {
			m.RecordNodeSelection("optimusdb1")
			m.RecordNodeSelection("optimusdb1")
			m.RecordNodeSelection("optimusdb2")

			snap := m.Snapshot("round-robin")
			Expect(snap.Nodes["optimusdb1"].Selections).To(Equal(int64(2)))
			Expect(snap.Nodes["optimusdb2"].Selections).To(Equal(int64(1)))
		})
	})

	Describe("RecordResponse", func() {
		It("should record response time and status code", func() {
			m.RecordResponse("optimusdb1", 100*time.Millisecond, 200)
			m.RecordResponse("optimusdb1", 200*time.Millisecond, 500)

			snap := m.Snapshot("round-robin")
			node := snap.Nodes["optimusdb1"]
			Expect(node.Proxied).To(Equal(int64(2)))
			Expect(node.AvgResponse).To(Equal(150 * time.Millisecond))
			Expect(node.StatusCodes[200]).To(Equal(int64(1)))
			Expect(node.StatusCodes[500]).To(Equal(int64(1)))
		})

		It("should compute percentiles from recorded durations", func() {
			for i := 1; i <= 100; i++ {
				m.RecordResponse("optimusdb1", time.Duration(i)*time.Millisecond, 200)
			}

			snap := m.Snapshot("round-robin")
			node := snap.Nodes["optimusdb1"]
			Expect(node.P50Response).To(Equal(51 * time.Millisecond))
			Expect(node.P95Response).To(Equal(96 * time.Millisecond))
			Expect(node.P99Response).To(Equal(100 * time.Millisecond))
		})

		It("should keep earlier snapshots isolated from later recordings", func() {
			m.RecordResponse("optimusdb1", time.Millisecond, 200)

			snap := m.Snapshot("round-robin")
			m.RecordResponse("optimusdb1", time.Millisecond, 200)
			m.RecordResponse("optimusdb1", time.Millisecond, 503)

			node := snap.Nodes["optimusdb1"]
			Expect(node.StatusCodes[200]).To(Equal(int64(1)))
			Expect(node.StatusCodes).NotTo(HaveKey(503))
		})

		It("should cap the response time window", func() {
			for i := 0; i < 1100; i++ {
				m.RecordResponse("optimusdb1", time.Millisecond, 200)
			}

			snap := m.Snapshot("round-robin")
			Expect(snap.Nodes["optimusdb1"].Proxied).To(Equal(int64(1100)))
		})
	})

	Describe("UpdateHealthStatus", func() {
		It("should track the latest health state per node", func() {
			m.UpdateHealthStatus("optimusdb1", true)
			m.UpdateHealthStatus("optimusdb1", false)

			snap := m.Snapshot("round-robin")
			Expect(snap.Nodes["optimusdb1"].Healthy).To(BeFalse())
		})
	})

	Describe("RecordTopologyChange", func() {
		It("should count changes and keep the latest mode", func() {
			m.RecordTopologyChange("direct_port")
			m.RecordTopologyChange("path_routed")

			snap := m.Snapshot("round-robin")
			Expect(snap.TopologyChanges).To(Equal(int64(2)))
			Expect(snap.Mode).To(Equal("path_routed"))
		})
	})

	Describe("Snapshot", func() {
		It("should carry the strategy name and uptime", func() {
			snap := m.Snapshot("random")

			Expect(snap.Strategy).To(Equal("random"))
			Expect(snap.Uptime).To(BeNumerically(">=", time.Duration(0)))
		})
	})
})

var _ = Describe("Handler", func() {
	It("should serve the snapshot as JSON", func() {
		collector := metrics.NewCollector(10, testLogger())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/metrics", nil)

		collector.Handler("round-robin")(rec, req)

		Expect(rec.Code).To(Equal(200))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
		Expect(rec.Body.String()).To(ContainSubstring(`"strategy":"round-robin"`))
	})
})
