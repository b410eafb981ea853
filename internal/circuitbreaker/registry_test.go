package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/circuitbreaker"
)

var _ = Describe("Registry", func() {
	var registry *circuitbreaker.Registry

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(5, 30*time.Second)
	})

	Describe("ForNode", func() {
		It("should create a new breaker for an unknown node", func() {
			cb := registry.ForNode("optimusdb1")
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should return the same breaker for the same node", func() {
			cb1 := registry.ForNode("optimusdb1")
			cb2 := registry.ForNode("optimusdb1")
			Expect(cb1).To(BeIdenticalTo(cb2))
		})

		It("should return different breakers for different nodes", func() {
			cb1 := registry.ForNode("optimusdb1")
			cb2 := registry.ForNode("optimusdb2")
			Expect(cb1).NotTo(BeIdenticalTo(cb2))
		})

		It("should use registry threshold for new breakers", func() {
			registry = circuitbreaker.NewRegistry(2, 100*time.Millisecond)
			cb := registry.ForNode("optimusdb1")

			cb.RecordFailure()
			cb.RecordFailure()
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
		})
	})

	Describe("Prune", func() {
		It("should drop breakers for nodes that left the topology", func() {
			registry.ForNode("optimusdb1").RecordFailure()
			registry.ForNode("optimusdb2")
			registry.ForNode("optimusdb3")

			registry.Prune([]string{"optimusdb1", "optimusdb3"})

			stats := registry.Stats()
			Expect(stats).To(HaveKey("optimusdb1"))
			Expect(stats).NotTo(HaveKey("optimusdb2"))
			Expect(stats).To(HaveKey("optimusdb3"))
		})

		It("should keep breaker state for surviving nodes", func() {
			registry = circuitbreaker.NewRegistry(1, time.Minute)
			registry.ForNode("optimusdb1").RecordFailure()

			registry.Prune([]string{"optimusdb1"})

			Expect(registry.ForNode("optimusdb1").State()).To(Equal(circuitbreaker.StateOpen))
		})
	})

	Describe("Reset", func() {
		It("should drop every breaker", func() {
			registry.ForNode("optimusdb1")
			registry.ForNode("optimusdb2")

			registry.Reset()

			Expect(registry.Stats()).To(BeEmpty())
		})
	})

	Describe("Stats", func() {
		It("should report the state per node", func() {
			registry = circuitbreaker.NewRegistry(1, time.Minute)
			registry.ForNode("optimusdb1").RecordFailure()
			registry.ForNode("optimusdb2")

			stats := registry.Stats()
			Expect(stats["optimusdb1"]).To(Equal(circuitbreaker.StateOpen))
			Expect(stats["optimusdb2"]).To(Equal(circuitbreaker.StateClosed))
		})
	})

	Describe("Concurrent access", func() {
		It("should handle concurrent ForNode calls safely", func() {
			const goroutines = 100

			var wg sync.WaitGroup
			wg.Add(goroutines)

			breakers := make([]*circuitbreaker.CircuitBreaker, goroutines)
			for i := 0; i < goroutines; i++ {
				go func(id int) {
					defer wg.Done()
					breakers[id] = registry.ForNode("optimusdb1")
				}(i)
			}

			wg.Wait()

			for _, cb := range breakers {
				Expect(cb).To(BeIdenticalTo(breakers[0]))
			}
		})
	})
})
