package votally

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bbengfort/x/stats"
)

// Metrics tracks the measurable statistics of a poll from the perspective of
// the poll server -- e.g. how many voters connected and how many of their
// ballots were counted, rejected or arrived too late.
type Metrics struct {
	sync.RWMutex
	started  time.Time         // The time the first voter connected
	finished time.Time         // The time the last ballot was handled
	voters   uint64            // Number of voter sessions opened
	accepted uint64            // Number of ballots applied to the tally
	rejected map[Reason]uint64 // Number of invalid ballots by reason
	late     uint64            // Number of ballots submitted after closing
	dropped  uint64            // Number of sessions lost to connection errors
	latency  *stats.Statistics // Seconds between a voter connecting and its ballot being counted
}

// NewMetrics creates the metrics data store
func NewMetrics() *Metrics {
	return &Metrics{
		rejected: make(map[Reason]uint64),
		latency:  new(stats.Statistics),
	}
}

// Connect registers a new voter session
func (m *Metrics) Connect() {
	m.Lock()
	defer m.Unlock()

	m.voters++
	if m.started.IsZero() {
		m.started = time.Now()
	}
}

// Accept is called when a ballot is applied to the tally. No need for
// synchronization of the latency since the stats object is synchronized.
func (m *Metrics) Accept(latency time.Duration) {
	m.latency.Update(latency.Seconds())

	m.Lock()
	defer m.Unlock()
	m.accepted++
	m.finished = time.Now()
}

// Reject is called when a ballot is found to be invalid
func (m *Metrics) Reject(reason Reason) {
	m.Lock()
	defer m.Unlock()
	m.rejected[reason]++
	m.finished = time.Now()
}

// Late is called when a ballot arrives after balloting has closed
func (m *Metrics) Late() {
	m.Lock()
	defer m.Unlock()
	m.late++
}

// Drop is called when a voter session ends with a connection error
func (m *Metrics) Drop() {
	m.Lock()
	defer m.Unlock()
	m.dropped++
}

// Voters returns the number of voter sessions opened.
func (m *Metrics) Voters() uint64 {
	m.RLock()
	defer m.RUnlock()
	return m.voters
}

// Accepted returns the number of ballots counted.
func (m *Metrics) Accepted() uint64 {
	m.RLock()
	defer m.RUnlock()
	return m.accepted
}

// Rejected returns the number of invalid ballots across all reasons.
func (m *Metrics) Rejected() uint64 {
	m.RLock()
	defer m.RUnlock()

	var total uint64
	for _, n := range m.rejected {
		total += n
	}
	return total
}

// LateBallots returns the number of ballots that arrived after closing.
func (m *Metrics) LateBallots() uint64 {
	m.RLock()
	defer m.RUnlock()
	return m.late
}

// Dump the metrics as a JSON line appended to the file at path.
func (m *Metrics) Dump(path string, extra map[string]interface{}) (err error) {
	m.RLock()
	defer m.RUnlock()

	data := make(map[string]interface{})

	// Append extra information
	for key, val := range extra {
		data[key] = val
	}

	rejected := make(map[string]uint64, len(m.rejected))
	for reason, n := range m.rejected {
		rejected[reason.String()] = n
	}

	data["metric"] = "poll"
	data["version"] = PackageVersion
	data["started"] = m.started.Format(time.RFC3339Nano)
	data["finished"] = m.finished.Format(time.RFC3339Nano)
	data["voters"] = m.voters
	data["accepted"] = m.accepted
	data["rejected"] = rejected
	data["late"] = m.late
	data["dropped"] = m.dropped
	data["throughput"] = m.throughput()
	data["duration"] = m.duration().String()
	data["latency"] = m.latency.Serialize()

	return appendJSON(path, data)
}

// String returns a summary of the poll metrics
func (m *Metrics) String() string {
	m.RLock()
	defer m.RUnlock()

	return fmt.Sprintf(
		"%d voters, %d ballots counted in %s -- %0.3f ballots/sec",
		m.voters, m.accepted, m.duration(), m.throughput(),
	)
}

// Duration computes the amount of time ballots were received.
func (m *Metrics) duration() time.Duration {
	if m.finished.IsZero() {
		return 0
	}
	return m.finished.Sub(m.started)
}

// Throughput computes the number of counted ballots per second.
func (m *Metrics) throughput() float64 {
	duration := m.duration()
	if duration == 0 || m.accepted == 0 {
		return 0.0
	}

	return float64(m.accepted) / duration.Seconds()
}

// appendJSON writes the data as a single JSON line to the end of the file.
func appendJSON(path string, data interface{}) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	var line []byte
	if line, err = json.Marshal(data); err != nil {
		return err
	}

	if _, err = f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("could not write metrics: %w", err)
	}
	return nil
}
