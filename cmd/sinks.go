package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ran-sim/ran-sim/engine"
)

// csvSink wraps one CSV file with a header already written. A nil
// *csvSink is valid and simply discards every row — the degrade-to-
// no-op behavior spec'd for sink open failures.
type csvSink struct {
	f *os.File
	w *csv.Writer
}

func newCSVSink(path string, header []string) *csvSink {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		logrus.Warnf("could not open %s: %v; this sink is disabled for the run", path, err)
		return nil
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		logrus.Warnf("could not write header to %s: %v; this sink is disabled for the run", path, err)
		_ = f.Close()
		return nil
	}
	return &csvSink{f: f, w: w}
}

func (s *csvSink) write(row []string) {
	if s == nil {
		return
	}
	if err := s.w.Write(row); err != nil {
		logrus.Warnf("write failed: %v", err)
	}
	s.w.Flush()
}

func (s *csvSink) close() {
	if s == nil {
		return
	}
	s.w.Flush()
	_ = s.f.Close()
}

var schedulerHeader = []string{"tti", "ue", "bits_sent", "rb_used", "cqi", "queue_after", "hol_deadline"}
var eventsHeader = []string{"tti", "event", "ue", "pkt_bits", "retx", "sinr_db", "cqi", "rb_alloc", "rb_perr"}
var channelHeader = []string{"tti", "ue", "sinr_db", "cqi", "bits_per_rb", "rb_err_prob"}

// sinkObserver fans every engine.Observer hook out to its backing CSV
// sink. Each sink degrades independently to a no-op on open failure,
// per the configured error-handling policy.
type sinkObserver struct {
	scheduler *csvSink
	events    *csvSink
	channel   *csvSink
}

// openSinks opens the scheduler log at schedulerPath (if non-empty) and
// the fixed events/channel logs under data/. phyMode controls whether
// the channel log is opened at all — it is PHY-mode only.
func openSinks(schedulerPath string, phyMode bool) (*sinkObserver, error) {
	scheduler := newCSVSink(schedulerPath, schedulerHeader)

	if err := os.MkdirAll("data", 0o755); err != nil {
		logrus.Warnf("could not create data/: %v; events and channel logs are disabled for the run", err)
		return &sinkObserver{scheduler: scheduler}, nil
	}

	so := &sinkObserver{
		scheduler: scheduler,
		events:    newCSVSink("data/events.csv", eventsHeader),
	}
	if phyMode {
		so.channel = newCSVSink("data/channel.csv", channelHeader)
	}
	return so, nil
}

func (o *sinkObserver) Close() {
	o.scheduler.close()
	o.events.close()
	o.channel.close()
}

func (o *sinkObserver) OnSchedule(tti, ueID, bitsSent, rbUsed, cqi, queueAfter, holDeadline int) {
	o.scheduler.write([]string{
		strconv.Itoa(tti),
		strconv.Itoa(ueID),
		strconv.Itoa(bitsSent),
		strconv.Itoa(rbUsed),
		strconv.Itoa(cqi),
		strconv.Itoa(queueAfter),
		strconv.Itoa(holDeadline),
	})
}

func (o *sinkObserver) OnHarqEvent(tti int, kind engine.HarqEventKind, ueID, pktBits, retx int, sinrDB float64, cqi, rbAlloc int, rbPErr float64) {
	o.events.write([]string{
		strconv.Itoa(tti),
		string(kind),
		strconv.Itoa(ueID),
		strconv.Itoa(pktBits),
		strconv.Itoa(retx),
		fmt.Sprintf("%.2f", sinrDB),
		strconv.Itoa(cqi),
		strconv.Itoa(rbAlloc),
		fmt.Sprintf("%.6f", rbPErr),
	})
}

func (o *sinkObserver) OnChannelSample(tti, ueID int, sinrDB float64, cqi, bitsPerRB int, rbErrProb float64) {
	o.channel.write([]string{
		strconv.Itoa(tti),
		strconv.Itoa(ueID),
		fmt.Sprintf("%.2f", sinrDB),
		strconv.Itoa(cqi),
		strconv.Itoa(bitsPerRB),
		fmt.Sprintf("%.6f", rbErrProb),
	})
}
