// Package engine implements the core discrete-time cellular downlink
// link-layer simulator: TTI-driven traffic arrivals, an earliest-deadline
// first resource-block scheduler, a HARQ retransmission pipeline with
// delayed feedback, and an optional per-UE PHY channel model.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - packet.go, ue.go: the data model (Packet, UE); PhyUEState is in
//     phy.go and HarqEvent in harq.go
//   - queue.go: the bounded ring-buffer queue backing each UE's traffic
//   - simulator.go: the per-TTI phase loop that ties everything together
//
// # Architecture
//
// The engine owns no I/O. Every externally observable event (a
// scheduling decision, a HARQ outcome, a channel sample) is pushed
// through the Observer interface (observer.go) rather than written
// directly to a file; cmd/ supplies the CSV-backed Observer
// implementations. This keeps the engine a pure, deterministic state
// machine that two callers can run side-by-side and diff byte-for-byte.
//
// # Per-TTI phase order
//
// Simulator.Step runs, in this fixed order, every tick:
//  1. process due HARQ feedback (may re-inject packets)
//  2. advance PHY and snapshot (PHY mode only)
//  3. traffic arrivals; in legacy mode each UE's CQI random walk step
//     runs in this same pass, right after that UE's arrival draw
//  4. deadline expiry
//  5. EDF scheduling
//  6. enqueue completions as future HARQ events
//  7. emit per-UE allocation log rows
//
// Reordering these phases changes observable outcomes; see Simulator.Step.
package engine
