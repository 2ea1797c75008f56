package engine

// Completion is a transport block the scheduler finished transmitting
// this TTI: the originating packet's bits reached zero and it was
// popped from its UE's queue. It carries exactly the PHY context the
// HARQ pipeline needs to sample ACK/NACK later, frozen at TX time.
type Completion struct {
	UEID        int
	ArrivalTTI  int
	DeadlineTTI int
	SizeBits    int
	RetxCount   int

	RBAlloc   int
	CQI       int
	SINRDB    float64
	RBErrProb float64
}

// scheduleEDF consumes the RB budget for one TTI by repeatedly picking
// the UE whose head-of-line packet has the earliest absolute deadline
// and allocating RBs to finish (or partially serve) that packet.
//
// Ties are broken by lowest UE id (ues is iterated in ascending id
// order, and the first minimum found wins). A UE whose BitsPerRBCur is
// <= 0 (legacy mode never sets it) is served at bitsPerRBForCQI(CQI)
// instead; if that is also <= 0, one RB is burned from the budget and
// the loop continues — this keeps the loop provably terminating even
// under a degenerate channel state.
//
// Partial packets (not finished this TTI) remain at the queue head and
// resume next TTI; they do not produce a Completion until the TTI that
// finishes them, so at most one in-flight HARQ transport block exists
// per completed packet.
//
// Returns total bits sent, total RBs used, and the completions
// produced, in the order they completed.
func scheduleEDF(ues []*UE, rbBudget int) (bitsSent, rbUsed int, completions []Completion) {
	completions = make([]Completion, 0, len(ues))

	for rbBudget > 0 {
		idx := pickEarliestDeadline(ues)
		if idx < 0 {
			break
		}
		u := ues[idx]

		bprb := u.BitsPerRBCur
		if bprb <= 0 {
			bprb = bitsPerRBForCQI(u.CQI)
		}
		if bprb <= 0 {
			rbBudget--
			rbUsed++
			continue
		}

		pkt, _ := u.Queue.PeekFront()
		rbNeeded := ceilDiv(pkt.Bits, bprb)
		if rbNeeded < 1 {
			rbNeeded = 1
		}
		rbAlloc := rbNeeded
		if rbBudget < rbAlloc {
			rbAlloc = rbBudget
		}
		bitsThis := rbAlloc * bprb

		finished := false
		remainingAfter := 0
		u.Queue.MutateFront(func(p *Packet) {
			p.Bits -= bitsThis
			remainingAfter = p.Bits
			finished = p.Bits <= 0
		})
		u.BitsSentTotal += int64(bitsThis)
		u.scheduledThisTTI = true
		u.txBitsThisTTI += bitsThis

		if finished {
			// bitsThis may overshoot the packet's true remaining size
			// by the last RB's granularity; the actual transport-block
			// size transmitted is bounded to the bits that existed,
			// never negative.
			sizeBits := bitsThis + minInt(remainingAfter, 0)
			if sizeBits < 0 {
				sizeBits = 0
			}
			completions = append(completions, Completion{
				UEID:        u.ID,
				ArrivalTTI:  pkt.ArrivalTTI,
				DeadlineTTI: pkt.DeadlineTTI,
				SizeBits:    sizeBits,
				RetxCount:   pkt.RetxCount,
				RBAlloc:     rbAlloc,
				CQI:         u.CQI,
				SINRDB:      u.SINRDBCur,
				RBErrProb:   u.RBErrProbCur,
			})
			u.Queue.PopFront()
		}

		bitsSent += bitsThis
		rbBudget -= rbAlloc
		rbUsed += rbAlloc
	}
	return bitsSent, rbUsed, completions
}

// pickEarliestDeadline returns the index into ues of the non-empty
// queue whose head-of-line packet has the minimum absolute deadline,
// or -1 if every queue is empty. ues must be iterated in ascending UE
// id order so ties are broken by lowest UE id ("first found wins").
func pickEarliestDeadline(ues []*UE) int {
	best := -1
	bestDeadline := 0
	for i, u := range ues {
		pkt, ok := u.Queue.PeekFront()
		if !ok {
			continue
		}
		if best < 0 || pkt.DeadlineTTI < bestDeadline {
			best = i
			bestDeadline = pkt.DeadlineTTI
		}
	}
	return best
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
