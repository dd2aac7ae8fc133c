package votally_test

import (
	"bytes"
	"context"
	"net"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	. "github.com/bbengfort/votally"
)

var _ = Describe("Client", func() {

	var info *Info

	BeforeEach(func() {
		tally, _, err := Resolve(PluralityMethod, []string{"Rust", "Go", "Zig"})
		Ω(err).ShouldNot(HaveOccurred())
		info = NewInfo(tally)
	})

	Describe("Prompt", func() {

		It("should describe the election and read a ballot", func() {
			out := new(bytes.Buffer)
			ballot, err := Prompt(strings.NewReader("Go\n"), out, info)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(ballot).Should(Equal(UninominalBallot("Go")))
			Ω(out.String()).Should(HavePrefix("Vote plurality\nDifferent choices are Rust, Go, Zig\nType of ballots: Uninominal\n"))
			Ω(out.String()).Should(ContainSubstring("Enter your choice:"))
		})

		It("should ask again after an invalid ballot", func() {
			out := new(bytes.Buffer)
			ballot, err := Prompt(strings.NewReader("C\n\nZig\n"), out, info)
			Ω(err).ShouldNot(HaveOccurred())
			Ω(ballot).Should(Equal(UninominalBallot("Zig")))
			Ω(strings.Count(out.String(), "Enter your choice:")).Should(Equal(3))
			Ω(out.String()).Should(ContainSubstring(`unknown candidate "C", try again`))
		})

		It("should stop when the input is exhausted", func() {
			_, err := Prompt(strings.NewReader(""), new(bytes.Buffer), info)
			Ω(err).Should(HaveOccurred())
		})

	})

	Describe("Dial", func() {

		// Serve a single canned reply to the next connection.
		reply := func(lines string) string {
			sock, err := net.Listen("tcp", "127.0.0.1:0")
			Ω(err).ShouldNot(HaveOccurred())

			go func() {
				defer sock.Close()
				conn, err := sock.Accept()
				if err != nil {
					return
				}
				conn.Write([]byte(lines))
				time.Sleep(50 * time.Millisecond)
				conn.Close()
			}()

			return sock.Addr().String()
		}

		It("should refuse a malformed info record", func() {
			_, err := Dial(context.Background(), reply("{\"version\":\"votally/1\"}\n"))
			Ω(err).Should(MatchError(ContainSubstring("could not parse poll information")))
		})

		It("should refuse an empty info record", func() {
			_, err := Dial(context.Background(), reply("\n"))
			Ω(err).Should(MatchError(ContainSubstring("empty info record")))
		})

		It("should report a closed connection", func() {
			_, err := Dial(context.Background(), reply(""))
			Ω(err).Should(BeAssignableToTypeOf(&ConnectionError{}))
		})

		It("should return errors for repeated bad records", func() {
			sock, err := net.Listen("tcp", "127.0.0.1:0")
			Ω(err).ShouldNot(HaveOccurred())
			defer sock.Close()

			go func() {
				for {
					conn, err := sock.Accept()
					if err != nil {
						return
					}
					conn.Write([]byte("not json\n"))
					conn.Close()
				}
			}()

			for i := 0; i < 200; i++ {
				client, err := Dial(context.Background(), sock.Addr().String())
				Ω(client).Should(BeNil())
				Ω(err).Should(HaveOccurred())
			}
		})

		It("should not connect to a closed port", func() {
			sock, err := net.Listen("tcp", "127.0.0.1:0")
			Ω(err).ShouldNot(HaveOccurred())
			addr := sock.Addr().String()
			sock.Close()

			_, err = Dial(context.Background(), addr)
			Ω(err).Should(HaveOccurred())
		})

		It("should refuse ballots that do not match the election", func() {
			data, err := info.Encode()
			Ω(err).ShouldNot(HaveOccurred())

			client, err := Dial(context.Background(), reply(string(data)))
			Ω(err).ShouldNot(HaveOccurred())
			defer client.Close()

			Ω(client.Vote(UninominalBallot("C"))).Should(MatchError(&InvalidBallotError{Reason: UnknownCandidate}))
			Ω(client.Vote(ApprovedBallot{"Go"})).Should(MatchError(&InvalidBallotError{Reason: MalformedInput}))

			_, err = client.Result()
			Ω(err).Should(HaveOccurred(), "cannot read a result before voting")
		})

		It("should give up when the context is cancelled", func() {
			data, err := info.Encode()
			Ω(err).ShouldNot(HaveOccurred())

			ctx, cancel := context.WithCancel(context.Background())
			client, err := Dial(ctx, reply(string(data)))
			Ω(err).ShouldNot(HaveOccurred())
			defer client.Close()

			cancel()
			Ω(client.WaitOpen()).Should(HaveOccurred())
		})

	})

	It("should cast a ballot and return the winner", func() {
		poll := newPoll(&Config{}, PluralityMethod, "Rust", "Go", "Zig")
		sock, err := net.Listen("tcp", "127.0.0.1:0")
		Ω(err).ShouldNot(HaveOccurred())

		errc := make(chan error, 1)
		go func() { errc <- poll.Serve(context.Background(), sock) }()

		winner := make(chan string, 1)
		go func() {
			defer GinkgoRecover()
			w, err := Cast(context.Background(), sock.Addr().String(), "Zig")
			Ω(err).ShouldNot(HaveOccurred())
			winner <- w
		}()

		Eventually(poll.Metrics().Voters).Should(Equal(uint64(1)))
		Ω(poll.BeginBalloting()).Should(Succeed())
		Eventually(poll.Metrics().Accepted).Should(Equal(uint64(1)))
		Ω(poll.EndBalloting()).Should(Succeed())

		Eventually(winner).Should(Receive(Equal("Zig")))
		Ω(poll.Shutdown(context.Background())).Should(Succeed())
		Eventually(errc).Should(Receive(BeNil()))
	})

})
