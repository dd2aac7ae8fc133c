package votally

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Interval between status requests while waiting for ballots to be counted.
const benchmarkPollInterval = 10 * time.Millisecond

// NewBenchmark runs a blast benchmark: N voters connect to the poll server at
// addr, balloting is opened through the control service at control and every
// voter submits a random ballot simultaneously. The benchmark measures how
// long the server takes to count all N ballots, then closes balloting and
// checks that every voter received the result.
func NewBenchmark(addr, control string, N uint, timeout time.Duration) (bench Benchmark, err error) {
	bench = &BlastBenchmark{
		addr:      addr,
		remote:    NewRemote(control, timeout),
		voters:    N,
		timeout:   timeout,
		benchmark: benchmark{method: "blast"},
	}

	if err := bench.Run(); err != nil {
		return nil, err
	}
	return bench, nil
}

// Benchmark defines the interface for all benchmark runners, both for
// execution as well as the delivery of results. A single benchmark is
// executed once and stores its internal results to be saved to disk.
type Benchmark interface {
	Run() error                      // execute the benchmark, may return an error if already run
	CSV(header bool) (string, error) // returns a CSV representation of the results
	JSON(indent int) ([]byte, error) // returns a JSON representation of the results
}

//===========================================================================
// benchmark
//===========================================================================

// This embedded struct implements shared functionality between benchmarks,
// keeping track of the throughput and the number of ballots that were counted
// or failed.
type benchmark struct {
	method    string          // the name of the benchmark type
	requests  uint64          // the number of voters that received the result
	failures  uint64          // the number of voters that did not
	started   time.Time       // the time balloting was opened
	duration  time.Duration   // the time taken to count every ballot
	latencies []time.Duration // observed latency of sending each ballot
}

// Complete returns true if requests and duration is greater than 0.
func (b *benchmark) Complete() bool {
	return b.requests > 0 && b.duration > 0
}

// Throughput computes the number of ballots counted (excluding failures) by
// the total duration of the experiment, e.g. the ballots per second.
func (b *benchmark) Throughput() float64 {
	if b.duration == 0 {
		return 0.0
	}

	return float64(b.requests) / b.duration.Seconds()
}

// CSV returns a results row delimited by commas as:
//
//	requests,failures,duration,throughput,version,benchmark
//
// If header is specified then string contains two rows with the header first.
func (b *benchmark) CSV(header bool) (string, error) {
	if !b.Complete() {
		return "", errors.New("benchmark has not been run yet")
	}

	row := fmt.Sprintf(
		"%d,%d,%s,%0.4f,%s,%s",
		b.requests, b.failures, b.duration, b.Throughput(), Version(), b.method,
	)

	if header {
		return fmt.Sprintf("requests,failures,duration,throughput,version,benchmark\n%s", row), nil
	}

	return row, nil
}

// JSON returns a results row as a json object, formatted with or without the
// number of spaces specified by indent. Use no indent for JSON lines format.
func (b *benchmark) JSON(indent int) ([]byte, error) {
	data := b.serialize()

	if indent > 0 {
		indent := strings.Repeat(" ", indent)
		return json.MarshalIndent(data, "", indent)
	}

	return json.Marshal(data)
}

// serialize converts the benchmark into a map[string]interface{} -- useful
// for dumping the benchmark as JSON and used from structs that embed benchmark
// to include more data in the results.
func (b *benchmark) serialize() map[string]interface{} {
	data := make(map[string]interface{})

	data["requests"] = b.requests
	data["failures"] = b.failures
	data["duration"] = b.duration.String()
	data["throughput"] = b.Throughput()
	data["version"] = Version()
	data["benchmark"] = b.method

	return data
}

//===========================================================================
// Blast
//===========================================================================

// BlastBenchmark implements Benchmark by connecting n voters to the poll each
// in its own go routine. Once every voter is registered, balloting is opened
// and all of the voters submit a ballot at once; the benchmark records the
// total time it takes for the server to count all n ballots.
type BlastBenchmark struct {
	benchmark
	addr    string
	remote  *Remote
	voters  uint
	timeout time.Duration
}

// Run the blast benchmark against the poll server. The poll must be in the
// registering phase and its control service must be reachable.
func (b *BlastBenchmark) Run() (err error) {
	// N is the number of voters
	N := b.voters

	// Initialize the blast latencies and results (resetting if rerun)
	b.requests = 0
	b.failures = 0
	b.latencies = make([]time.Duration, N)
	results := make([]bool, N)

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	defer b.remote.Close()

	// Register every voter so that connecting is not part of the throughput.
	clients := make([]*Client, N)
	for i := uint(0); i < N; i++ {
		if clients[i], err = Dial(ctx, b.addr); err != nil {
			return fmt.Errorf("could not connect voter %d: %s", i, err)
		}
		defer clients[i].Close()
	}

	// Create the wait group for all threads
	group := new(sync.WaitGroup)
	group.Add(int(N))

	if _, err = b.remote.Begin(); err != nil {
		return fmt.Errorf("could not begin balloting: %s", err)
	}

	// Execute the blast operation against the server
	b.started = time.Now()
	for i := uint(0); i < N; i++ {
		go func(k uint) {
			defer group.Done()

			ballot, err := randomBallot(clients[k].info)
			if err != nil {
				return
			}

			start := time.Now()
			if err := clients[k].Vote(ballot); err == nil {
				results[k] = true
			}

			// Record the latency of sending the ballot, success or failure
			b.latencies[k] = time.Since(start)
		}(i)
	}

	group.Wait()

	// Wait for the server to count every ballot that was sent
	var sent uint64
	for _, r := range results {
		if r {
			sent++
		}
	}

	if err = b.waitCounted(ctx, sent); err != nil {
		return err
	}
	b.duration = time.Since(b.started)

	if _, err = b.remote.End(); err != nil {
		return fmt.Errorf("could not end balloting: %s", err)
	}

	// Every voter whose ballot was sent should receive the result
	for k, client := range clients {
		if results[k] {
			if _, err := client.Result(); err != nil {
				results[k] = false
			}
		}
	}

	// Compute successes and failures
	for _, r := range results {
		if r {
			b.requests++
		} else {
			b.failures++
		}
	}

	return nil
}

// waitCounted polls the status of the server until n ballots are handled.
func (b *BlastBenchmark) waitCounted(ctx context.Context, n uint64) error {
	ticker := time.NewTicker(benchmarkPollInterval)
	defer ticker.Stop()

	for {
		status, err := b.remote.Status()
		if err != nil {
			return fmt.Errorf("could not get poll status: %s", err)
		}

		if status.Total+status.Rejected >= n {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("only %d of %d ballots counted: %w", status.Total, n, ctx.Err())
		}
	}
}

// JSON returns a results row as a json object, adding the number of voters.
func (b *BlastBenchmark) JSON(indent int) ([]byte, error) {
	data := b.benchmark.serialize()
	data["voters"] = b.voters

	if indent > 0 {
		indent := strings.Repeat(" ", indent)
		return json.MarshalIndent(data, "", indent)
	}

	return json.Marshal(data)
}

// randomBallot selects a random valid ballot for the election.
func randomBallot(info *Info) (Ballot, error) {
	choices := info.Choices
	switch info.Form {
	case Uninominal:
		return NewBallot(info.Form, choices[rand.Intn(len(choices))])
	case Approved:
		selected := make([]string, 0, len(choices))
		for _, i := range rand.Perm(len(choices))[:1+rand.Intn(len(choices))] {
			selected = append(selected, choices[i])
		}
		return NewBallot(info.Form, selected...)
	default:
		return nil, fmt.Errorf("unknown ballot form %s", info.Form)
	}
}
