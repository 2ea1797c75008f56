package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() Config {
	return Config{
		TTIs:         200,
		RB:           20,
		UEs:          6,
		Seed:         1234,
		ArrivalRate:  0.3,
		PktBitsMin:   800,
		PktBitsMax:   12000,
		DeadlineTTIs: 20,
		BLER:         0.1,
		HarqRTT:      4,
	}
}

// recordingObserver captures every hook call for assertions about
// ordering and timing.
type recordingObserver struct {
	scheduleCalls int
	harqEvents    []recordedHarq
	channelCalls  int
}

type recordedHarq struct {
	tti     int
	kind    HarqEventKind
	ueID    int
	retx    int
	pktBits int
}

func (r *recordingObserver) OnSchedule(tti, ueID, bitsSent, rbUsed, cqi, queueAfter, holDeadline int) {
	r.scheduleCalls++
}
func (r *recordingObserver) OnHarqEvent(tti int, kind HarqEventKind, ueID, pktBits, retx int, sinrDB float64, cqi, rbAlloc int, rbPErr float64) {
	r.harqEvents = append(r.harqEvents, recordedHarq{tti: tti, kind: kind, ueID: ueID, retx: retx, pktBits: pktBits})
}
func (r *recordingObserver) OnChannelSample(tti, ueID int, sinrDB float64, cqi, bitsPerRB int, rbErrProb float64) {
	r.channelCalls++
}

func TestSimulator_Determinism_SameSeedProducesIdenticalMetrics(t *testing.T) {
	// GIVEN two simulators built from an identical config
	cfg := baseConfig()
	s1 := NewSimulator(cfg, NoopObserver{})
	s2 := NewSimulator(cfg, NoopObserver{})

	// WHEN both are run to completion
	s1.Run()
	s2.Run()

	// THEN their metrics are byte-identical
	assert.Equal(t, s1.Metrics, s2.Metrics)
}

func TestSimulator_Determinism_RecordedEventSequenceIsIdentical(t *testing.T) {
	cfg := baseConfig()
	obs1 := &recordingObserver{}
	obs2 := &recordingObserver{}
	s1 := NewSimulator(cfg, obs1)
	s2 := NewSimulator(cfg, obs2)

	s1.Run()
	s2.Run()

	assert.Equal(t, obs1.harqEvents, obs2.harqEvents)
	assert.Equal(t, obs1.scheduleCalls, obs2.scheduleCalls)
}

func TestSimulator_Conservation_PacketsAreFullyAccountedFor(t *testing.T) {
	// GIVEN a run with arrivals, misses, retries, and completions
	cfg := baseConfig()
	s := NewSimulator(cfg, NoopObserver{})
	s.Run()

	stillQueued := int64(0)
	for i := 0; i < cfg.UEs; i++ {
		stillQueued += int64(s.QueueLen(i))
	}
	inFlight := int64(s.InFlightCount())

	// THEN every arrival ends up exactly once across these four buckets
	total := s.Metrics.Delivered + s.Metrics.DeadlineMisses + stillQueued + inFlight
	assert.Equal(t, s.Metrics.TotalPackets, total)
}

func TestSimulator_NoArrivals_ProducesNoTrafficOrMisses(t *testing.T) {
	// GIVEN a config with arrival probability 0
	cfg := baseConfig()
	cfg.ArrivalRate = 0
	s := NewSimulator(cfg, NoopObserver{})

	// WHEN run to completion
	s.Run()

	// THEN nothing was ever queued, sent, or missed
	assert.Equal(t, int64(0), s.Metrics.TotalPackets)
	assert.Equal(t, int64(0), s.Metrics.TotalBitsSent)
	assert.Equal(t, int64(0), s.Metrics.DeadlineMisses)
	assert.Equal(t, int64(0), s.Metrics.Delivered)
	assert.Equal(t, 0, s.InFlightCount())
}

func TestSimulator_PerfectChannelLegacy_EveryTransmissionIsACKed(t *testing.T) {
	// GIVEN a legacy-mode run with zero transport-block error rate
	cfg := baseConfig()
	cfg.BLER = 0
	cfg.TTIs = 300
	cfg.DeadlineTTIs = 100 // generous enough that scheduling delay alone won't expire packets
	obs := &recordingObserver{}
	s := NewSimulator(cfg, obs)

	// WHEN run to completion
	s.Run()

	// THEN no transmission is ever NACKed or dropped — every HARQ
	// event recorded is an ACK
	require.NotEmpty(t, obs.harqEvents)
	for _, ev := range obs.harqEvents {
		assert.Equal(t, HarqACK, ev.kind)
	}
	assert.Equal(t, int64(len(obs.harqEvents)), s.Metrics.Delivered)
}

func TestSimulator_AllNACKTrap_DropsAfterRetryCapExhausted(t *testing.T) {
	// GIVEN a config where every transmission is NACKed
	cfg := baseConfig()
	cfg.UEs = 1
	cfg.ArrivalRate = 1.0
	cfg.BLER = 1.0
	cfg.HarqRTT = 1
	cfg.RB = 50
	cfg.PktBitsMin = 800
	cfg.PktBitsMax = 800
	cfg.DeadlineTTIs = 1000
	cfg.TTIs = 60
	obs := &recordingObserver{}
	s := NewSimulator(cfg, obs)

	// WHEN run
	s.Run()

	// THEN every transmitted packet is eventually dropped, and no ACKs
	// are ever recorded
	assert.Equal(t, int64(0), s.Metrics.Delivered)
	sawDrop := false
	for _, ev := range obs.harqEvents {
		assert.NotEqual(t, HarqACK, ev.kind)
		if ev.kind == HarqDrop {
			sawDrop = true
		}
	}
	assert.True(t, sawDrop, "expected at least one DROP event under BLER=1.0")
}

func TestSimulator_RetryCap_TracksRetxCountAcrossRequeues(t *testing.T) {
	// GIVEN one UE, one packet, guaranteed NACK every attempt, and an RB
	// budget generous enough to finish the packet in a single TTI even
	// at the worst-case (CQI 1) bits-per-RB
	cfg := Config{
		TTIs: 80, RB: 20, UEs: 1, Seed: 7,
		ArrivalRate: 0, PktBitsMin: 800, PktBitsMax: 800,
		DeadlineTTIs: 1000, BLER: 1.0, HarqRTT: 2,
	}
	obs := &recordingObserver{}
	s := NewSimulator(cfg, obs)
	s.ues[0].Queue.PushBack(Packet{Bits: 800, ArrivalTTI: 0, DeadlineTTI: 1000})

	// WHEN run long enough for MaxHarqRetries+1 round trips
	s.Run()

	// THEN the packet NACKs MaxHarqRetries times with strictly
	// increasing retx counts, then DROPs on the next (5th) attempt at
	// retx == MaxHarqRetries
	require.Len(t, obs.harqEvents, MaxHarqRetries+1)
	for i := 0; i < MaxHarqRetries; i++ {
		assert.Equal(t, HarqNACK, obs.harqEvents[i].kind)
		assert.Equal(t, i+1, obs.harqEvents[i].retx)
	}
	last := obs.harqEvents[MaxHarqRetries]
	assert.Equal(t, HarqDrop, last.kind)
	assert.Equal(t, MaxHarqRetries, last.retx)
}

func TestSimulator_DeadlineExpiryOnly_NoRBBudgetMeansOnlyExpiryMisses(t *testing.T) {
	// GIVEN a config where nothing can ever be scheduled (rb budget 0)
	cfg := baseConfig()
	cfg.RB = 0
	cfg.DeadlineTTIs = 5
	s := NewSimulator(cfg, NoopObserver{})

	// WHEN run
	s.Run()

	// THEN no bits are ever sent, and any packets that arrived end up
	// either missed (by expiry) or still queued — never delivered
	assert.Equal(t, int64(0), s.Metrics.TotalBitsSent)
	assert.Equal(t, int64(0), s.Metrics.Delivered)
	if s.Metrics.TotalPackets > 0 {
		assert.Greater(t, s.Metrics.DeadlineMisses, int64(0))
	}
}

func TestSimulator_PHYModeSmokeTest_RunsAndProducesChannelSamples(t *testing.T) {
	// GIVEN a PHY-mode config
	cfg := baseConfig()
	cfg.PHYMode = true
	cfg.PHY = PHYConfig{PathlossExp: 3.5, ShadowingStd: 6.0, FadingRho: 0.9, SNRRefDB: 18.0, RBFloorPErr: 1e-4}
	obs := &recordingObserver{}
	s := NewSimulator(cfg, obs)

	// WHEN run
	s.Run()

	// THEN a channel sample is recorded for every UE on every TTI
	assert.Equal(t, cfg.TTIs*cfg.UEs, obs.channelCalls)
}

func TestSimulator_SingleRBPerTTI_TieBreaksOnLowestUEID(t *testing.T) {
	// GIVEN RB budget of exactly 1 per TTI and multiple UEs with
	// identically-deadlined, multi-RB packets
	cfg := Config{
		TTIs: 1, RB: 1, UEs: 3, Seed: 1,
		ArrivalRate: 0, PktBitsMin: 800, PktBitsMax: 800,
		DeadlineTTIs: 100, BLER: 0, HarqRTT: 4,
	}
	s := NewSimulator(cfg, NoopObserver{})
	for i := 0; i < 3; i++ {
		s.ues[i].BitsPerRBCur = 48 // forces multi-RB completion, won't finish in 1 RB
		s.ues[i].Queue.PushBack(Packet{Bits: 800, ArrivalTTI: 0, DeadlineTTI: 50})
	}

	// WHEN scheduled directly (single TTI, single RB)
	bitsSent, rbUsed, _ := scheduleEDF(s.ues, cfg.RB)

	// THEN the single RB goes to UE 0, the lowest id among the tied deadlines
	assert.Equal(t, 1, rbUsed)
	assert.Greater(t, bitsSent, 0)
	assert.True(t, s.ues[0].scheduledThisTTI)
	assert.False(t, s.ues[1].scheduledThisTTI)
	assert.False(t, s.ues[2].scheduledThisTTI)
}

func TestSimulator_RBAccounting_NeverExceedsConfiguredBudgetPerTTI(t *testing.T) {
	// GIVEN a run with heavy load relative to RB budget
	cfg := baseConfig()
	cfg.ArrivalRate = 0.9
	cfg.RB = 5
	s := NewSimulator(cfg, NoopObserver{})

	for s.tti = 0; s.tti < cfg.TTIs; s.tti++ {
		before := s.Metrics.RBUsedTotal
		s.Step()
		usedThisTTI := s.Metrics.RBUsedTotal - before
		assert.LessOrEqual(t, usedThisTTI, int64(cfg.RB))
	}
}

func TestSimulator_HarqTiming_FeedbackArrivesExactlyAfterConfiguredRTT(t *testing.T) {
	// GIVEN a single UE, an RB budget generous enough to finish the
	// packet on the TTI it's first scheduled, and a guaranteed ACK
	cfg := Config{
		TTIs: 20, RB: 20, UEs: 1, Seed: 1,
		ArrivalRate: 0, PktBitsMin: 800, PktBitsMax: 800,
		DeadlineTTIs: 100, BLER: 0, HarqRTT: 5,
	}
	obs := &recordingObserver{}
	s := NewSimulator(cfg, obs)
	s.ues[0].Queue.PushBack(Packet{Bits: 800, ArrivalTTI: 0, DeadlineTTI: 100})

	var completionTTI = -1
	for s.tti = 0; s.tti < cfg.TTIs; s.tti++ {
		s.Step()
		if completionTTI < 0 && s.Metrics.TotalBitsSent > 0 {
			completionTTI = s.tti
		}
		if len(obs.harqEvents) > 0 {
			break
		}
	}

	// THEN feedback is processed exactly HarqRTT TTIs after completion
	require.Len(t, obs.harqEvents, 1)
	assert.Equal(t, HarqACK, obs.harqEvents[0].kind)
	assert.Equal(t, completionTTI+cfg.HarqRTT, obs.harqEvents[0].tti)
}

func TestSimulator_QueueFullOnArrival_DoesNotCountAsMiss(t *testing.T) {
	// GIVEN a UE whose queue is already saturated
	cfg := Config{
		TTIs: 1, RB: 0, UEs: 1, Seed: 1,
		ArrivalRate: 1.0, PktBitsMin: 800, PktBitsMax: 800,
		DeadlineTTIs: 1000, BLER: 0, HarqRTT: 4,
	}
	s := NewSimulator(cfg, NoopObserver{})
	for i := 0; i < DefaultQueueCapacity; i++ {
		require.True(t, s.ues[0].Queue.PushBack(Packet{Bits: 1, DeadlineTTI: 1000}))
	}
	require.True(t, s.ues[0].Queue.Full())

	// WHEN one more TTI runs an arrival attempt against the full queue
	s.Step()

	// THEN the dropped arrival is neither counted nor recorded as a miss
	assert.Equal(t, int64(0), s.Metrics.TotalPackets)
	assert.Equal(t, int64(0), s.Metrics.DeadlineMisses)
}

func TestSimulator_UESummaries_ReturnsOneEntryPerUEInIDOrder(t *testing.T) {
	cfg := baseConfig()
	s := NewSimulator(cfg, NoopObserver{})
	s.Run()

	summaries := s.UESummaries()
	require.Len(t, summaries, cfg.UEs)
	for i, sum := range summaries {
		assert.Equal(t, i, sum.ID)
	}
}
