package engine

// Simulator owns the per-TTI phase loop described in doc.go. It is the
// only component that mutates UE queues or the HARQ ring; the RNG
// Stream is drawn from in a fixed phase order so seeded runs are
// bit-identical.
type Simulator struct {
	cfg Config
	tti int

	ues []*UE
	rng *Stream
	phy *PHY

	harq *harqRing

	Metrics  *Metrics
	Observer Observer
}

// NewSimulator builds a Simulator ready to run cfg.TTIs steps. obs may
// be NoopObserver{} if nothing needs to watch per-TTI events.
func NewSimulator(cfg Config, obs Observer) *Simulator {
	rng := NewStream(cfg.Seed)

	ues := make([]*UE, cfg.UEs)
	for i := range ues {
		ues[i] = NewUE(i, cfg.QueueCapacity(), rng)
	}

	var phy *PHY
	if cfg.PHYMode {
		phy = NewPHY(cfg.PHY, cfg.UEs, rng)
	}

	return &Simulator{
		cfg:      cfg,
		ues:      ues,
		rng:      rng,
		phy:      phy,
		harq:     newHarqRing(cfg.harqRingCapacity()),
		Metrics:  NewMetrics(),
		Observer: obs,
	}
}

// Run executes cfg.TTIs steps from TTI 0.
func (s *Simulator) Run() {
	for s.tti = 0; s.tti < s.cfg.TTIs; s.tti++ {
		s.Step()
	}
}

// Step runs one TTI's fixed phase order: HARQ feedback, PHY advance
// (PHY mode), arrivals (with the legacy CQI walk folded in), deadline
// expiry, EDF scheduling, HARQ enqueue, and per-UE allocation logging.
func (s *Simulator) Step() {
	s.processHarqFeedback()

	if s.cfg.PHYMode {
		s.phy.Step(s.rng)
		for _, u := range s.ues {
			inst := s.phy.Instant(u.ID)
			u.CQI = inst.CQI
			u.BitsPerRBCur = inst.BitsPerRB
			u.SINRDBCur = inst.SINRDB
			u.RBErrProbCur = inst.RBErrProb
			s.Observer.OnChannelSample(s.tti, u.ID, inst.SINRDB, inst.CQI, inst.BitsPerRB, inst.RBErrProb)
		}
	}

	s.arrivals()
	s.expireDeadlines()

	for _, u := range s.ues {
		u.resetTTIDebug()
	}

	bitsSent, rbUsed, completions := scheduleEDF(s.ues, s.cfg.RB)
	s.Metrics.OnSchedule(bitsSent, rbUsed)

	for _, c := range completions {
		s.harq.Enqueue(HarqEvent{
			UEID:          c.UEID,
			FeedbackTTI:   s.tti + s.cfg.HarqRTT,
			ArrivalTTI:    c.ArrivalTTI,
			DeadlineTTI:   c.DeadlineTTI,
			PktSizeBits:   c.SizeBits,
			RetxCount:     c.RetxCount,
			RBAlloc:       c.RBAlloc,
			CQIAtTX:       c.CQI,
			SINRDBAtTX:    c.SINRDB,
			RBErrProbAtTX: c.RBErrProb,
		})
	}

	s.emitScheduleLog()
}

// arrivals draws Bernoulli packet arrivals per UE, plus the legacy-mode
// CQI random walk — both folded into one pass since each reads/writes
// per-UE state once per TTI.
func (s *Simulator) arrivals() {
	for _, u := range s.ues {
		if s.rng.Uniform01() < s.cfg.ArrivalRate {
			p := Packet{
				Bits:        s.rng.IntInclusive(s.cfg.PktBitsMin, s.cfg.PktBitsMax),
				ArrivalTTI:  s.tti,
				DeadlineTTI: s.tti + s.cfg.DeadlineTTIs,
			}
			if u.Queue.PushBack(p) {
				s.Metrics.OnArrival()
			}
			// Queue-full arrivals are silently dropped: not counted as
			// an arrival, not counted as a miss.
		}

		if !s.cfg.PHYMode {
			delta := s.rng.IntInclusive(-1, 1)
			u.CQI += delta
			if u.CQI < 1 {
				u.CQI = 1
			}
			if u.CQI > 15 {
				u.CQI = 15
			}
			u.BitsPerRBCur = 0
			u.SINRDBCur = 0
			// Captured for the events-log rb_perr column only; legacy
			// ACK/NACK sampling (sampleAck) reads cfg.BLER directly
			// rather than through this field, so the two modes' feedback
			// paths stay decision-independent.
			u.RBErrProbCur = s.cfg.BLER
		}
	}
}

// expireDeadlines drops expired packets. Only the head-of-line packet
// of each queue is inspected; a stale mid-queue packet is left alone
// until it reaches the head.
func (s *Simulator) expireDeadlines() {
	for _, u := range s.ues {
		for {
			pkt, ok := u.Queue.PeekFront()
			if !ok || pkt.DeadlineTTI >= s.tti {
				break
			}
			u.Queue.PopFront()
			u.PktsMissed++
			s.Metrics.OnMiss()
		}
	}
}

// processHarqFeedback processes every HARQ event due this TTI, in
// enqueue order. ACKs finalize the packet; NACKs either re-queue at
// the head or drop on retry exhaustion / queue-full.
func (s *Simulator) processHarqFeedback() {
	for {
		ev, ok := s.harq.PopDue(s.tti)
		if !ok {
			break
		}
		s.processOneHarqEvent(ev)
	}
}

func (s *Simulator) processOneHarqEvent(ev HarqEvent) {
	ack := s.sampleAck(ev)
	u := s.ues[ev.UEID]

	if ack {
		s.Metrics.OnDeliver(s.tti, ev.ArrivalTTI)
		u.PktsDelivered++
		s.Observer.OnHarqEvent(s.tti, HarqACK, ev.UEID, ev.PktSizeBits, ev.RetxCount, ev.SINRDBAtTX, ev.CQIAtTX, ev.RBAlloc, ev.RBErrProbAtTX)
		return
	}

	if ev.RetxCount >= MaxHarqRetries {
		u.PktsMissed++
		s.Metrics.OnMiss()
		s.Observer.OnHarqEvent(s.tti, HarqDrop, ev.UEID, ev.PktSizeBits, ev.RetxCount, ev.SINRDBAtTX, ev.CQIAtTX, ev.RBAlloc, ev.RBErrProbAtTX)
		return
	}

	retx := Packet{
		Bits:        ev.PktSizeBits,
		ArrivalTTI:  ev.ArrivalTTI,
		DeadlineTTI: ev.DeadlineTTI,
		RetxCount:   ev.RetxCount + 1,
	}
	if !u.Queue.PushFront(retx) {
		u.PktsMissed++
		s.Metrics.OnMiss()
		s.Observer.OnHarqEvent(s.tti, HarqDrop, ev.UEID, ev.PktSizeBits, ev.RetxCount, ev.SINRDBAtTX, ev.CQIAtTX, ev.RBAlloc, ev.RBErrProbAtTX)
		return
	}
	s.Observer.OnHarqEvent(s.tti, HarqNACK, ev.UEID, ev.PktSizeBits, ev.RetxCount+1, ev.SINRDBAtTX, ev.CQIAtTX, ev.RBAlloc, ev.RBErrProbAtTX)
}

// sampleAck draws ACK/NACK against the TX-time PHY context frozen in
// ev, never the UE's current state.
func (s *Simulator) sampleAck(ev HarqEvent) bool {
	if s.cfg.PHYMode {
		rb := ev.RBAlloc
		if rb <= 0 {
			rb = 1
		}
		for i := 0; i < rb; i++ {
			if s.rng.Uniform01() < ev.RBErrProbAtTX {
				return false
			}
		}
		return true
	}
	return s.rng.Uniform01() > s.cfg.BLER
}

// emitScheduleLog reports one row per UE that was scheduled this TTI.
func (s *Simulator) emitScheduleLog() {
	for _, u := range s.ues {
		if !u.scheduledThisTTI {
			continue
		}
		bprb := u.BitsPerRBCur
		if bprb <= 0 {
			bprb = bitsPerRBForCQI(u.CQI)
		}
		rbUsedEst := 0
		if bprb > 0 {
			rbUsedEst = u.txBitsThisTTI / bprb
		}
		holDeadline := 0
		if pkt, ok := u.Queue.PeekFront(); ok {
			holDeadline = pkt.DeadlineTTI
		}
		s.Observer.OnSchedule(s.tti, u.ID, u.txBitsThisTTI, rbUsedEst, u.CQI, u.Queue.Len(), holDeadline)
	}
}

// TTI returns the current (next-to-run) TTI index.
func (s *Simulator) TTI() int { return s.tti }

// QueueLen returns UE ueID's current queue length, for tests asserting
// conservation/bounds invariants.
func (s *Simulator) QueueLen(ueID int) int { return s.ues[ueID].Queue.Len() }

// InFlightCount returns the number of HARQ events still awaiting
// feedback, for conservation checks.
func (s *Simulator) InFlightCount() int { return s.harq.Len() }

// UESummary is a read-only snapshot of one UE's cumulative counters,
// for the summary printer's optional per-UE breakdown.
type UESummary struct {
	ID            int
	BitsSentTotal int64
	PktsDelivered int64
	PktsMissed    int64
	QueueLen      int
}

// UESummaries returns a snapshot of every UE's cumulative counters, in
// ID order.
func (s *Simulator) UESummaries() []UESummary {
	out := make([]UESummary, len(s.ues))
	for i, u := range s.ues {
		out[i] = UESummary{
			ID:            u.ID,
			BitsSentTotal: u.BitsSentTotal,
			PktsDelivered: u.PktsDelivered,
			PktsMissed:    u.PktsMissed,
			QueueLen:      u.Queue.Len(),
		}
	}
	return out
}
