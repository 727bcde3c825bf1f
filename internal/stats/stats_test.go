package stats_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dkarras/load-tracker/internal/stats"
)

var _ = Describe("Stats", func() {
	var s *stats.Stats[string]

	BeforeEach(func() {
		s = stats.New[string]()
	})

	Describe("RecordDispatch", func() {
		It("should count dispatches per server", func() {
			s.RecordDispatch("worker-1")
			s.RecordDispatch("worker-1")
			s.RecordDispatch("worker-2")

			snap := s.Snapshot()
			Expect(snap.TotalDispatches).To(Equal(int64(3)))
			Expect(snap.Servers["worker-1"].Dispatches).To(Equal(int64(2)))
			Expect(snap.Servers["worker-2"].Dispatches).To(Equal(int64(1)))
		})

		It("should compute each server's share of traffic", func() {
			s.RecordDispatch("worker-1")
			s.RecordDispatch("worker-1")
			s.RecordDispatch("worker-1")
			s.RecordDispatch("worker-2")

			snap := s.Snapshot()
			Expect(snap.Servers["worker-1"].Share).To(BeNumerically("~", 0.75, 1e-9))
			Expect(snap.Servers["worker-2"].Share).To(BeNumerically("~", 0.25, 1e-9))
		})
	})

	Describe("RecordCompletion and RecordFailure", func() {
		It("should track outcomes separately", func() {
			s.RecordDispatch("worker-1")
			s.RecordCompletion("worker-1")
			s.RecordDispatch("worker-1")
			s.RecordFailure("worker-1")

			snap := s.Snapshot()
			Expect(snap.Servers["worker-1"].Completed).To(Equal(int64(1)))
			Expect(snap.Servers["worker-1"].Failed).To(Equal(int64(1)))
		})
	})

	Describe("RecordSideline", func() {
		It("should include servers seen only through sidelining", func() {
			s.RecordSideline("worker-9")

			snap := s.Snapshot()
			Expect(snap.Servers).To(HaveKey("worker-9"))
			Expect(snap.Servers["worker-9"].Sidelined).To(Equal(int64(1)))
			Expect(snap.Servers["worker-9"].Share).To(BeZero())
		})
	})

	Describe("Snapshot", func() {
		It("should report uptime", func() {
			snap := s.Snapshot()
			Expect(snap.Uptime).To(BeNumerically(">=", 0))
		})

		It("should be safe under concurrent writers", func() {
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 100; j++ {
						s.RecordDispatch("worker-1")
						s.Snapshot()
					}
				}()
			}
			wg.Wait()

			Expect(s.Snapshot().TotalDispatches).To(Equal(int64(1000)))
		})
	})
})
