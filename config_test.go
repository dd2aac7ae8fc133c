package votally_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"

	. "github.com/bbengfort/votally"
)

var _ = Describe("Config", func() {

	It("should validate a correct configuration", func() {
		conf := &Config{
			Name:     "foo",
			Addr:     "127.0.0.1:50001",
			Method:   "approval",
			Choices:  []string{"A", "B", "C"},
			Timeout:  "300ms",
			Uptime:   "15m",
			Control:  ":50051",
			LogLevel: "debug",
			Metrics:  "metrics.json",
		}
		Ω(conf.Validate()).Should(Succeed())
		Ω(conf.GetLogLevel()).Should(Equal(zerolog.DebugLevel))
	})

	It("should be valid with loaded defaults", func() {
		conf := new(Config)

		confPath, err := conf.GetPath()
		Ω(confPath).Should(BeZero())
		Ω(err).Should(HaveOccurred())

		Ω(conf.Load()).Should(Succeed())

		// Validate configuration defaults
		Ω(conf.Addr).Should(Equal(":50001"))
		Ω(conf.Method).Should(Equal(PluralityMethod))
		Ω(conf.GetLogLevel()).Should(Equal(zerolog.InfoLevel))

		// Validate non configurations
		Ω(conf.Name).Should(BeZero())
		Ω(conf.Choices).Should(BeZero())
		Ω(conf.Timeout).Should(BeZero())
		Ω(conf.Uptime).Should(BeZero())
		Ω(conf.Control).Should(BeZero())
		Ω(conf.Metrics).Should(BeZero())
	})

	It("should be able to parse durations", func() {
		conf := &Config{Timeout: "10s", Uptime: "10s"}

		duration, err := conf.GetTimeout()
		Ω(err).ShouldNot(HaveOccurred())
		Ω(duration).Should(Equal(10 * time.Second))

		duration, err = conf.GetUptime()
		Ω(err).ShouldNot(HaveOccurred())
		Ω(duration).Should(Equal(10 * time.Second))
	})

	It("should treat empty durations as disabled", func() {
		conf := new(Config)

		duration, err := conf.GetTimeout()
		Ω(err).ShouldNot(HaveOccurred())
		Ω(duration).Should(BeZero())

		duration, err = conf.GetUptime()
		Ω(err).ShouldNot(HaveOccurred())
		Ω(duration).Should(BeZero())
	})

	DescribeTable("invalid configurations",
		func(conf *Config) {
			Ω(conf.Validate()).ShouldNot(Succeed())
		},
		Entry("unparseable timeout", &Config{Timeout: "soon"}),
		Entry("negative uptime", &Config{Uptime: "-5s"}),
		Entry("address without port", &Config{Addr: "localhost"}),
		Entry("unknown log level", &Config{LogLevel: "verbose"}),
		Entry("metrics in a missing directory", &Config{Metrics: "/does/not/exist/metrics.json"}),
	)

	It("should update the configuration with non-zero options", func() {
		conf := new(Config)
		Ω(conf.Load()).Should(Succeed())

		err := conf.Update(&Config{Method: ApprovalMethod, Choices: []string{"A", "B"}, Timeout: "1s"})
		Ω(err).ShouldNot(HaveOccurred())
		Ω(conf.Method).Should(Equal(ApprovalMethod))
		Ω(conf.Choices).Should(Equal([]string{"A", "B"}))
		Ω(conf.Timeout).Should(Equal("1s"))
		Ω(conf.Addr).Should(Equal(":50001"))
	})

	It("should not update with invalid options", func() {
		conf := new(Config)
		Ω(conf.Load()).Should(Succeed())
		Ω(conf.Update(&Config{Uptime: "forever"})).ShouldNot(Succeed())
	})

	It("should use the hostname if no name is configured", func() {
		name, err := (&Config{}).GetName()
		Ω(err).ShouldNot(HaveOccurred())
		Ω(name).ShouldNot(BeEmpty())

		name, err = (&Config{Name: "board"}).GetName()
		Ω(err).ShouldNot(HaveOccurred())
		Ω(name).Should(Equal("board"))
	})

})
