package topology_test

import (
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/topology"
)

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

var _ = Describe("Snapshot", func() {
	newSnapshot := func() *topology.Snapshot {
		return &topology.Snapshot{
			Mode:            topology.ModeDirectPort,
			FrontendBaseURL: "http://localhost:5015",
			Nodes: []cluster.Node{
				cluster.New(1, "optimusdb1", mustParseURL("http://localhost:18001"), "/health"),
				cluster.New(2, "optimusdb2", mustParseURL("http://localhost:18002"), "/health"),
			},
		}
	}

	Describe("Node", func() {
		It("should find a node by id", func() {
			snap := newSnapshot()

			n, ok := snap.Node(2)

			Expect(ok).To(BeTrue())
			Expect(n.Name).To(Equal("optimusdb2"))
		})

		It("should report a missing id", func() {
			snap := newSnapshot()

			_, ok := snap.Node(9)

			Expect(ok).To(BeFalse())
		})
	})

	Describe("Clone", func() {
		It("should detach the node list from the original", func() {
			snap := newSnapshot()

			clone := snap.Clone()
			clone.Nodes[0].BaseURL.Host = "localhost:28001"

			Expect(snap.Nodes[0].BaseURL.Host).To(Equal("localhost:18001"))
		})

		It("should tolerate a nil snapshot", func() {
			var snap *topology.Snapshot

			Expect(snap.Clone()).To(BeNil())
		})
	})

	Describe("routing flags", func() {
		It("should be derived from the mode", func() {
			snap := newSnapshot()
			Expect(snap.UsesPathRouting()).To(BeFalse())
			Expect(snap.UsesPortRouting()).To(BeFalse())

			snap.Mode = topology.ModePathRouted
			Expect(snap.UsesPathRouting()).To(BeTrue())
			Expect(snap.UsesPortRouting()).To(BeFalse())

			snap.Mode = topology.ModePortRouted
			Expect(snap.UsesPathRouting()).To(BeFalse())
			Expect(snap.UsesPortRouting()).To(BeTrue())
		})
	})
})

var _ = Describe("ParseOverride", func() {
	It("should accept the known overrides", func() {
		for _, s := range []string{"auto", "path_routed", "port_routed"} {
			o, err := topology.ParseOverride(s)

			Expect(err).NotTo(HaveOccurred())
			Expect(string(o)).To(Equal(s))
		}
	})

	It("should map the empty string to auto", func() {
		o, err := topology.ParseOverride("")

		Expect(err).NotTo(HaveOccurred())
		Expect(o).To(Equal(topology.OverrideAuto))
	})

	It("should reject an unknown override", func() {
		_, err := topology.ParseOverride("dns_routed")

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("dns_routed"))
	})
})

var _ = Describe("Params", func() {
	Describe("Validate", func() {
		It("should accept the defaults", func() {
			Expect(topology.DefaultParams().Validate()).To(Succeed())
		})

		It("should reject a zero node count", func() {
			p := topology.DefaultParams()
			p.DirectCount = 0

			Expect(p.Validate()).NotTo(Succeed())
		})

		It("should reject a non-alphanumeric service name", func() {
			p := topology.DefaultParams()
			p.ServiceName = "optimus/db"

			Expect(p.Validate()).NotTo(Succeed())
		})

		It("should reject a port range past 65535", func() {
			p := topology.DefaultParams()
			p.DirectPortBase = 65530

			Expect(p.Validate()).NotTo(Succeed())
		})
	})
})
