package votally_test

import (
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/bbengfort/votally"
)

var _ = Describe("Deadline", func() {

	var calls int32
	var deadline *Deadline

	BeforeEach(func() {
		atomic.StoreInt32(&calls, 0)
		deadline = NewDeadline(5*time.Millisecond, func() {
			atomic.AddInt32(&calls, 1)
		})
	})

	AfterEach(func() {
		deadline.Stop()
	})

	It("should return the same delay on GetDelay", func() {
		for i := 0; i < 100; i++ {
			Ω(deadline.GetDelay()).Should(Equal(5 * time.Millisecond))
		}
	})

	It("should call the action exactly once after the delay", func() {
		Ω(deadline.Expires()).Should(BeZero())
		Ω(deadline.Start()).Should(BeTrue())
		Ω(deadline.Expires()).ShouldNot(BeZero())

		Eventually(deadline.Fired).Should(BeTrue())
		Consistently(func() int32 { return atomic.LoadInt32(&calls) }, 20*time.Millisecond).Should(Equal(int32(1)))

		Ω(deadline.Expires()).Should(BeZero())
		Ω(deadline.Start()).Should(BeFalse(), "a fired deadline cannot be restarted")
	})

	It("should be able to be started and stopped", func() {
		Ω(deadline.Start()).Should(BeTrue())
		Ω(deadline.Start()).Should(BeFalse())

		Ω(deadline.Stop()).Should(BeTrue())
		Ω(deadline.Stop()).Should(BeFalse())

		Consistently(func() int32 { return atomic.LoadInt32(&calls) }, 20*time.Millisecond).Should(BeZero())
		Ω(deadline.Fired()).Should(BeFalse())
	})

	It("should report when the action will be called", func() {
		deadline = NewDeadline(time.Hour, func() {
			atomic.AddInt32(&calls, 1)
		})

		before := time.Now()
		Ω(deadline.Start()).Should(BeTrue())
		Ω(deadline.Expires()).Should(BeTemporally("~", before.Add(time.Hour), time.Second))

		Ω(deadline.Stop()).Should(BeTrue())
		Ω(deadline.Expires()).Should(BeZero())
	})

	It("should allow the action to stop the deadline", func() {
		deadline = NewDeadline(time.Millisecond, func() {
			atomic.AddInt32(&calls, 1)
			deadline.Stop()
		})

		Ω(deadline.Start()).Should(BeTrue())
		Eventually(func() int32 { return atomic.LoadInt32(&calls) }).Should(Equal(int32(1)))
	})

})
