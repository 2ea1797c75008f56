package engine

// UE models a single downlink user: its queue, current channel quality,
// and cumulative counters. Channel-quality fields (CQI, bits-per-RB,
// SINR, per-RB error probability) are the PHY snapshot valid for the
// current TTI only — Simulator.Step overwrites them every TTI from
// PHY.Instant (PHY mode) or the legacy CQI random walk (legacy mode).
type UE struct {
	ID    int
	Queue *PacketQueue

	CQI int // 1..15, current channel-quality indicator (legacy walk or PHY-derived)

	BitsPerRBCur int     // bits/RB usable this TTI (PHY mode); 0 in legacy mode, where the scheduler uses bitsPerRBForCQI(CQI)
	SINRDBCur    float64 // instantaneous SINR, dB (PHY mode only; 0 in legacy mode)
	RBErrProbCur float64 // per-RB error probability (PHY mode); the configured BLER in legacy mode, captured for logging only — legacy ACK/NACK sampling reads Config.BLER directly

	BitsSentTotal int64
	PktsDelivered int64
	PktsMissed    int64

	scheduledThisTTI bool
	txBitsThisTTI    int
}

// NewUE creates a UE with an empty queue of the given capacity and an
// initial legacy CQI drawn uniformly from [6, 12].
func NewUE(id, queueCapacity int, rng *Stream) *UE {
	return &UE{
		ID:    id,
		Queue: NewPacketQueue(queueCapacity),
		CQI:   rng.IntInclusive(6, 12),
	}
}

// resetTTIDebug clears the per-TTI scheduling bookkeeping the CSV sink
// reads after Simulator.Step runs the scheduler.
func (u *UE) resetTTIDebug() {
	u.scheduledThisTTI = false
	u.txBitsThisTTI = 0
}
