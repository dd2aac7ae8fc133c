package pb_test

import (
	"time"

	. "github.com/bbengfort/votally/pb"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Time", func() {

	var err error
	var ts time.Time
	var tested_at = "2017-12-05T14:34:52.072719-05:00"

	BeforeEach(func() {
		ts, err = time.Parse(time.RFC3339Nano, tested_at)
		Ω(err).ShouldNot(HaveOccurred())
	})

	It("should format a timestamp", func() {
		Ω(FormatTime(ts)).Should(Equal(tested_at))
	})

	It("should parse a timestamp", func() {
		val, err := ParseTime(tested_at)
		Ω(err).ShouldNot(HaveOccurred())
		Ω(val.Equal(ts)).Should(BeTrue())
	})

	It("should format a null time as an empty string", func() {
		Ω(FormatTime(time.Time{})).Should(Equal(""))
	})

	It("should parse an empty string as a null time", func() {
		val, err := ParseTime("")
		Ω(err).ShouldNot(HaveOccurred())
		Ω(val.IsZero()).Should(BeTrue())
	})

	It("should not parse a malformed timestamp", func() {
		_, err := ParseTime("yesterday")
		Ω(err).Should(HaveOccurred())
	})

})
