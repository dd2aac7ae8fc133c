package votally_test

import (
	"context"
	"encoding/json"
	"net"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/bbengfort/votally"
)

var _ = Describe("Benchmark", func() {

	var (
		poll *Poll
		addr string
		errc chan error
	)

	BeforeEach(func() {
		poll = newPoll(&Config{Control: "127.0.0.1:0"}, ApprovalMethod, "A", "B", "C")
		sock, err := net.Listen("tcp", "127.0.0.1:0")
		Ω(err).ShouldNot(HaveOccurred())
		addr = sock.Addr().String()

		errc = make(chan error, 1)
		go func() { errc <- poll.Serve(context.Background(), sock) }()
		Eventually(poll.ControlAddr).ShouldNot(BeNil())
	})

	AfterEach(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		Ω(poll.Shutdown(ctx)).Should(Succeed())
		Eventually(errc, 10*time.Second).Should(Receive(BeNil()))
	})

	It("should blast the poll with concurrent voters", func() {
		bench, err := NewBenchmark(addr, poll.ControlAddr().String(), 50, 10*time.Second)
		Ω(err).ShouldNot(HaveOccurred())

		csv, err := bench.CSV(true)
		Ω(err).ShouldNot(HaveOccurred())
		rows := strings.Split(csv, "\n")
		Ω(rows).Should(HaveLen(2))
		Ω(rows[0]).Should(Equal("requests,failures,duration,throughput,version,benchmark"))
		Ω(rows[1]).Should(HavePrefix("50,0,"))

		data, err := bench.JSON(0)
		Ω(err).ShouldNot(HaveOccurred())

		results := make(map[string]interface{})
		Ω(json.Unmarshal(data, &results)).Should(Succeed())
		Ω(results["voters"]).Should(BeEquivalentTo(50))
		Ω(results["benchmark"]).Should(Equal("blast"))

		result, err := poll.ComputeResult(context.Background())
		Ω(err).ShouldNot(HaveOccurred())
		Ω(result.Total).Should(Equal(uint64(50)))
	})

})
