package engine

// Packet is a unit of downlink traffic queued for a single UE.
//
// A Packet exists in exactly one place at a time: in a UE's queue, or
// in flight as a HarqEvent, or finalized (delivered or missed). It is
// "delivered" only when its transport-block transmission is eventually
// ACKed; it is "missed" if its deadline passes while still queued, if
// it exhausts the HARQ retry cap, or if the queue is full at
// re-injection.
//
// There is no persistent packet identity across a NACK: the re-queued
// copy is logically equivalent (same size, same arrival/deadline,
// carried-forward RetxCount) but is a fresh value, not a reference to
// the original.
type Packet struct {
	Bits        int // remaining payload, bits (mutable, decremented by the scheduler)
	ArrivalTTI  int // absolute TTI the packet arrived
	DeadlineTTI int // absolute TTI by which the packet must be delivered
	RetxCount   int // number of prior NACKs this packet has already survived
}
