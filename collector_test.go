package votally_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/bbengfort/votally"
)

var _ = Describe("Collector", func() {

	var (
		ctx       context.Context
		metrics   *Metrics
		collector *Collector
		errc      chan error
	)

	BeforeEach(func() {
		ctx = context.Background()
		metrics = NewMetrics()
		collector = NewCollector(NewPlurality(ChoiceSet{"A", "B", "C"}), metrics)

		errc = make(chan error, 1)
		go func() { errc <- collector.Run() }()
	})

	AfterEach(func() {
		Ω(collector.Close()).Should(Succeed())
		Eventually(collector.Drained()).Should(BeClosed())
		Ω(<-errc).Should(Succeed())
	})

	It("should apply ballots in arrival order", func() {
		for i, vote := range []string{"B", "A", "B"} {
			Ω(collector.Submit(fmt.Sprintf("s%d", i), UninominalBallot(vote), time.Now())).Should(Succeed())
		}

		Ω(collector.Close()).Should(Succeed())
		entries, err := collector.Ballots(ctx)
		Ω(err).ShouldNot(HaveOccurred())
		Ω(entries).Should(HaveLen(3))
		Ω(entries[0].Session).Should(Equal("s0"))
		Ω(entries[2].Ballot).Should(Equal(UninominalBallot("B")))

		result, err := collector.Result(ctx)
		Ω(err).ShouldNot(HaveOccurred())
		Ω(result.Winner).Should(Equal("B"))
	})

	It("should count every concurrent ballot exactly once", func() {
		var wg sync.WaitGroup
		choices := []string{"A", "B", "C"}

		for i := 0; i < 300; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer GinkgoRecover()
				Ω(collector.Submit(fmt.Sprintf("s%d", i), UninominalBallot(choices[i%3]), time.Now())).Should(Succeed())
			}(i)
		}

		wg.Wait()
		Ω(collector.Close()).Should(Succeed())

		result, err := collector.Result(ctx)
		Ω(err).ShouldNot(HaveOccurred())
		Ω(result.Total).Should(Equal(uint64(300)))
		Ω(result.Counts).Should(Equal([]Count{{"A", 100}, {"B", 100}, {"C", 100}}))
		Ω(metrics.Accepted()).Should(Equal(uint64(300)))
	})

	It("should reject invalid ballots without counting them", func() {
		Ω(collector.Submit("s1", UninominalBallot("A"), time.Now())).Should(Succeed())

		err := collector.Submit("s2", UninominalBallot("Z"), time.Now())
		Ω(err).Should(MatchError(&InvalidBallotError{Reason: UnknownCandidate, Choice: "Z"}))

		snap, err := collector.Snapshot(ctx)
		Ω(err).ShouldNot(HaveOccurred())
		Ω(snap.Total).Should(Equal(uint64(1)))
		Ω(snap.Counts[0]).Should(Equal(Count{"A", 1}))
		Ω(metrics.Rejected()).Should(Equal(uint64(1)))
	})

	It("should refuse ballots submitted after closing", func() {
		Ω(collector.Close()).Should(Succeed())
		Ω(collector.Close()).Should(Succeed(), "closing twice is a no-op")

		err := collector.Submit("late", UninominalBallot("A"), time.Now())
		Ω(err).Should(MatchError(ErrLateBallot))
		Ω(metrics.Accepted()).Should(BeZero())

		result, err := collector.Result(ctx)
		Ω(err).ShouldNot(HaveOccurred())
		Ω(result.Total).Should(BeZero())
		Ω(result.HasWinner()).Should(BeFalse())
	})

	It("should snapshot the counts after draining", func() {
		Ω(collector.Submit("s1", UninominalBallot("C"), time.Now())).Should(Succeed())
		Ω(collector.Close()).Should(Succeed())
		Eventually(collector.Drained()).Should(BeClosed())

		snap, err := collector.Snapshot(ctx)
		Ω(err).ShouldNot(HaveOccurred())
		Ω(snap.Counts[2]).Should(Equal(Count{"C", 1}))
	})

	It("should not compute the result while collecting", func() {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := collector.Result(cctx)
		Ω(err).Should(MatchError(context.DeadlineExceeded))
	})

})
