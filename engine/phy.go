package engine

import "math"

// cqiThresholdsDB are the SINR lower bounds (dB) for CQI 1..15,
// monotonically increasing.
var cqiThresholdsDB = [15]float64{
	-5, -2, 0, 1.5, 3, 5, 7, 9, 11, 13, 15, 17, 19, 21, 23,
}

// bitsPerRBTable maps CQI 0..15 to bits deliverable per resource block.
// Index 0 is unused (CQI is 1-indexed) but kept so CQI can index the
// table directly without an off-by-one.
var bitsPerRBTable = [16]int{
	0, 48, 72, 96, 120, 144, 192, 240, 288, 336, 408, 480, 552, 648, 744, 840,
}

// mapSINRToCQI maps an instantaneous SINR (dB) to CQI 1..15 using the
// thresholds above: CQI is the highest index whose threshold the SINR
// clears.
func mapSINRToCQI(sinrDB float64) int {
	cqi := 1
	for i, th := range cqiThresholdsDB {
		if sinrDB >= th {
			cqi = i + 1
		}
	}
	return cqi
}

// bitsPerRBForCQI looks up bitsPerRBTable, clamping CQI into [1, 15].
func bitsPerRBForCQI(cqi int) int {
	if cqi < 1 {
		cqi = 1
	}
	if cqi > 15 {
		cqi = 15
	}
	return bitsPerRBTable[cqi]
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// PhyUEState is a UE's persistent per-TTI-evolving channel state:
// pathloss and shadowing are fixed at initialization, fading evolves
// each TTI via an AR(1) process.
type PhyUEState struct {
	PathlossDB float64
	ShadowDB   float64
	Fading     float64 // AR(1) state, unitless
}

// PhyInstant is the per-TTI snapshot PHY.Step produces for one UE.
type PhyInstant struct {
	SINRDB    float64
	CQI       int
	BitsPerRB int
	RBErrProb float64
}

// PHYConfig groups the channel model's tunable parameters.
type PHYConfig struct {
	PathlossExp  float64 // alpha
	ShadowingStd float64 // sigma_sh, dB
	FadingRho    float64 // AR(1) correlation, clamped to [0, 0.999]
	SNRRefDB     float64
	RBFloorPErr  float64
}

// PHY is the per-UE channel model used when Config.PHYMode is enabled.
// Initialization draws each UE's distance, pathloss, and shadowing once;
// Step advances every UE's fading state by one TTI.
type PHY struct {
	cfg   PHYConfig
	state []PhyUEState
}

// NewPHY draws initial per-UE channel state: a radial distance
// area-uniform in the annulus [0.5, 1.5] cell radii, pathloss
// PL = 10*alpha*log10(d), and a log-normal shadowing draw
// sigma_sh * N(0,1). Fading starts at 0.
func NewPHY(cfg PHYConfig, numUEs int, rng *Stream) *PHY {
	cfg.FadingRho = clamp(cfg.FadingRho, 0.0, 0.999)
	p := &PHY{cfg: cfg, state: make([]PhyUEState, numUEs)}
	for i := range p.state {
		d := drawAnnulusDistance(rng)
		pl := 10.0 * cfg.PathlossExp * math.Log10(d)
		sh := cfg.ShadowingStd * rng.Normal()
		p.state[i] = PhyUEState{PathlossDB: pl, ShadowDB: sh, Fading: 0.0}
	}
	return p
}

// drawAnnulusDistance samples a distance area-uniform in [0.5, 1.5]
// cell radii via inverse-CDF: sqrt(u*(r2^2-r1^2) + r1^2).
func drawAnnulusDistance(rng *Stream) float64 {
	const r1, r2 = 0.5, 1.5
	u := rng.Uniform01()
	return math.Sqrt(u*(r2*r2-r1*r1) + r1*r1)
}

// Step advances every UE's fading state by one TTI via AR(1):
// f_t = rho*f_{t-1} + sqrt(1-rho^2)*N(0,1).
func (p *PHY) Step(rng *Stream) {
	rho := p.cfg.FadingRho
	sigma := math.Sqrt(math.Max(1e-9, 1.0-rho*rho))
	for i := range p.state {
		z := rng.Normal()
		p.state[i].Fading = rho*p.state[i].Fading + sigma*z
	}
}

// Instant computes the current-TTI snapshot for UE ueID:
// SINR_dB = SNRRefDB - pathloss - shadow + 3*fading, clamped to
// [-10, 30] dB; CQI and bits-per-RB follow from SINR; the per-RB error
// probability is a logistic curve centered at 8 dB floored at
// cfg.RBFloorPErr.
func (p *PHY) Instant(ueID int) PhyInstant {
	st := p.state[ueID]
	fadingDB := 3.0 * st.Fading
	sinrDB := clamp(p.cfg.SNRRefDB-st.PathlossDB-st.ShadowDB+fadingDB, -10.0, 30.0)
	cqi := mapSINRToCQI(sinrDB)
	return PhyInstant{
		SINRDB:    sinrDB,
		CQI:       cqi,
		BitsPerRB: bitsPerRBForCQI(cqi),
		RBErrProb: perRBErrorProbability(sinrDB, p.cfg.RBFloorPErr),
	}
}

// perRBErrorProbability is a logistic PER curve centered at 8 dB with
// slope 0.8, floored at floorPErr.
func perRBErrorProbability(sinrDB, floorPErr float64) float64 {
	const snr50, k = 8.0, 0.8
	p := 1.0 / (1.0 + math.Exp(k*(sinrDB-snr50)))
	if p < floorPErr {
		p = floorPErr
	}
	if p > 1.0 {
		p = 1.0
	}
	return p
}
