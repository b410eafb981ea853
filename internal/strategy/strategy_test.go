package strategy_test

import (
	"net/url"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/strategy"
)

func TestStrategy(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Strategy Suite")
}

func mustParseURL(rawURL string) *url.URL {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(err)
	}
	return u
}

func testNodes() []cluster.Node {
	return []cluster.Node{
		cluster.New(1, "optimusdb1", mustParseURL("http://localhost:18001"), "/health"),
		cluster.New(2, "optimusdb2", mustParseURL("http://localhost:18002"), "/health"),
		cluster.New(3, "optimusdb3", mustParseURL("http://localhost:18003"), "/health"),
	}
}

var _ = Describe("RoundRobin", func() {
	var (
		strat strategy.Strategy
		nodes []cluster.Node
	)

	BeforeEach(func() {
		strat = strategy.NewRoundRobinStrategy()
		nodes = testNodes()
	})

	Describe("Select", func() {
		It("should cycle through nodes in order", func() {
			for _, wantID := range []int{1, 2, 3, 1, 2, 3} {
				n, ok := strat.Select(nodes)

				Expect(ok).To(BeTrue())
				Expect(n.ID).To(Equal(wantID))
			}
		})

		It("should distribute load evenly", func() {
			counts := make(map[int]int)
			for i := 0; i < 300; i++ {
				n, ok := strat.Select(nodes)
				Expect(ok).To(BeTrue())
				counts[n.ID]++
			}

			Expect(counts[1]).To(Equal(100))
			Expect(counts[2]).To(Equal(100))
			Expect(counts[3]).To(Equal(100))
		})

		It("should report failure for an empty list", func() {
			_, ok := strat.Select(nil)

			Expect(ok).To(BeFalse())
		})
	})
})

var _ = Describe("Random", func() {
	var (
		strat strategy.Strategy
		nodes []cluster.Node
	)

	BeforeEach(func() {
		strat = strategy.NewRandomStrategy()
		nodes = testNodes()
	})

	Describe("Select", func() {
		It("should select one of the candidates", func() {
			n, ok := strat.Select(nodes)

			Expect(ok).To(BeTrue())
			Expect(cluster.IDs(nodes)).To(ContainElement(n.ID))
		})

		It("should spread across nodes over many calls", func() {
			seen := make(map[int]bool)
			for i := 0; i < 100; i++ {
				n, _ := strat.Select(nodes)
				seen[n.ID] = true
			}

			Expect(len(seen)).To(BeNumerically(">=", 2))
		})

		It("should report failure for an empty list", func() {
			_, ok := strat.Select([]cluster.Node{})

			Expect(ok).To(BeFalse())
		})
	})
})

var _ = Describe("First", func() {
	var (
		strat strategy.Strategy
		nodes []cluster.Node
	)

	BeforeEach(func() {
		strat = strategy.NewFirstStrategy()
		nodes = testNodes()
	})

	Describe("Select", func() {
		It("should always pick the first node", func() {
			for i := 0; i < 5; i++ {
				n, ok := strat.Select(nodes)

				Expect(ok).To(BeTrue())
				Expect(n.ID).To(Equal(1))
			}
		})

		It("should report failure for an empty list", func() {
			_, ok := strat.Select(nil)

			Expect(ok).To(BeFalse())
		})
	})
})

var _ = Describe("New", func() {
	DescribeTable("resolving strategy names",
		func(name string) {
			strat, err := strategy.New(name)

			Expect(err).NotTo(HaveOccurred())
			Expect(strat).NotTo(BeNil())
		},
		Entry("round-robin", strategy.RoundRobin),
		Entry("random", strategy.Random),
		Entry("first", strategy.First),
	)

	It("should reject an unknown name", func() {
		_, err := strategy.New("least-conn")

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("least-conn"))
	})

	It("should list every registered name", func() {
		Expect(strategy.Names()).To(Equal([]string{"round-robin", "random", "first"}))
	})
})
