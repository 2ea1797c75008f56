// cmd/root.go
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ran-sim/ran-sim/engine"
)

var (
	ttis     int
	rb       int
	ues      int
	arrival  float64
	deadline int
	seed     int64
	bler     float64
	harq     int
	csvPath  string
	phyMode  bool

	pathlossExp  float64
	shadowingStd float64
	fadingRho    float64
	snrRefDB     float64
	rbFloorPErr  float64

	pktBitsMin int
	pktBitsMax int

	configPath string
	logLevel   string
	perUE      bool
)

var rootCmd = &cobra.Command{
	Use:   "ran-sim",
	Short: "Discrete-time downlink link-layer simulator",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return mergeFileConfig(cmd)
	},
	RunE: runSimulation,
}

// Execute runs the command tree. Returned errors are ConfigErrors or
// cobra's own flag-parsing errors; main.go exits 1 on any non-nil
// error rather than duplicating that logic here.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().IntVar(&ttis, "ttis", 0, "Number of TTIs to simulate (required)")
	rootCmd.Flags().IntVar(&rb, "rb", 0, "Resource blocks per TTI (required)")
	rootCmd.Flags().IntVar(&ues, "ues", 0, "Number of UEs (required)")

	rootCmd.Flags().Float64Var(&arrival, "arrival", 0.2, "Per-UE per-TTI packet arrival probability")
	rootCmd.Flags().IntVar(&deadline, "deadline", 8, "Packet deadline, in TTIs after arrival")
	rootCmd.Flags().Int64Var(&seed, "seed", 42, "RNG seed")
	rootCmd.Flags().Float64Var(&bler, "bler", 0.1, "Legacy-mode transport-block error rate")
	rootCmd.Flags().IntVar(&harq, "harq", 8, "HARQ round-trip time, in TTIs")
	rootCmd.Flags().StringVar(&csvPath, "csv", "", "Optional scheduler-log CSV path")
	rootCmd.Flags().BoolVar(&phyMode, "phy-mode", false, "Enable the PHY channel model instead of the legacy CQI walk")

	rootCmd.Flags().Float64Var(&pathlossExp, "pathloss-exp", 3.5, "Pathloss exponent (PHY mode)")
	rootCmd.Flags().Float64Var(&shadowingStd, "shadowing-std", 6.0, "Shadowing standard deviation, dB (PHY mode)")
	rootCmd.Flags().Float64Var(&fadingRho, "fading-rho", 0.9, "AR(1) fading correlation (PHY mode)")
	rootCmd.Flags().Float64Var(&snrRefDB, "snr-ref", 18.0, "Reference SNR, dB (PHY mode)")
	rootCmd.Flags().Float64Var(&rbFloorPErr, "rb-floor-perr", 1e-4, "Per-RB error probability floor (PHY mode)")

	rootCmd.Flags().IntVar(&pktBitsMin, "pkt-bits-min", 800, "Minimum arriving packet size, bits")
	rootCmd.Flags().IntVar(&pktBitsMax, "pkt-bits-max", 12000, "Maximum arriving packet size, bits")

	rootCmd.Flags().StringVar(&configPath, "config", "", "Optional YAML config file; explicit flags override it")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&perUE, "per-ue", false, "Print a per-UE breakdown in the summary")
}

// mergeFileConfig applies --config values for every flag the user did
// not set explicitly on the command line, then validates the required
// flags are present and positive.
func mergeFileConfig(cmd *cobra.Command) error {
	if configPath != "" {
		fc, err := loadFileConfig(configPath)
		if err != nil {
			return err
		}
		applyFileConfig(cmd, fc)
	}

	if ttis <= 0 {
		return configErrorf("--ttis must be a positive integer")
	}
	if rb <= 0 {
		return configErrorf("--rb must be a positive integer")
	}
	if ues <= 0 {
		return configErrorf("--ues must be a positive integer")
	}
	if pktBitsMin <= 0 || pktBitsMax < pktBitsMin {
		return configErrorf("--pkt-bits-min/--pkt-bits-max must satisfy 0 < min <= max")
	}
	return nil
}

func applyFileConfig(cmd *cobra.Command, fc *FileConfig) {
	changed := cmd.Flags().Changed

	if fc.TTIs != 0 && !changed("ttis") {
		ttis = fc.TTIs
	}
	if fc.RB != 0 && !changed("rb") {
		rb = fc.RB
	}
	if fc.UEs != 0 && !changed("ues") {
		ues = fc.UEs
	}
	if fc.Arrival != nil && !changed("arrival") {
		arrival = *fc.Arrival
	}
	if fc.Deadline != nil && !changed("deadline") {
		deadline = *fc.Deadline
	}
	if fc.Seed != nil && !changed("seed") {
		seed = *fc.Seed
	}
	if fc.BLER != nil && !changed("bler") {
		bler = *fc.BLER
	}
	if fc.Harq != nil && !changed("harq") {
		harq = *fc.Harq
	}
	if fc.CSV != nil && !changed("csv") {
		csvPath = *fc.CSV
	}
	if fc.PHYMode != nil && !changed("phy-mode") {
		phyMode = *fc.PHYMode
	}
	if fc.PathlossExp != nil && !changed("pathloss-exp") {
		pathlossExp = *fc.PathlossExp
	}
	if fc.ShadowingStd != nil && !changed("shadowing-std") {
		shadowingStd = *fc.ShadowingStd
	}
	if fc.FadingRho != nil && !changed("fading-rho") {
		fadingRho = *fc.FadingRho
	}
	if fc.SNRRefDB != nil && !changed("snr-ref") {
		snrRefDB = *fc.SNRRefDB
	}
	if fc.RBFloorPErr != nil && !changed("rb-floor-perr") {
		rbFloorPErr = *fc.RBFloorPErr
	}
	if fc.PktBitsMin != nil && !changed("pkt-bits-min") {
		pktBitsMin = *fc.PktBitsMin
	}
	if fc.PktBitsMax != nil && !changed("pkt-bits-max") {
		pktBitsMax = *fc.PktBitsMax
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return configErrorf("invalid --log-level %q", logLevel)
	}
	logrus.SetLevel(level)

	if phyMode && bler != 0.1 {
		logrus.Warn("--phy-mode is enabled; --bler is ignored in favor of the PHY channel model")
	}

	cfg := engine.Config{
		TTIs:         ttis,
		RB:           rb,
		UEs:          ues,
		Seed:         seed,
		ArrivalRate:  arrival,
		PktBitsMin:   pktBitsMin,
		PktBitsMax:   pktBitsMax,
		DeadlineTTIs: deadline,
		BLER:         bler,
		HarqRTT:      harq,
		PHYMode:      phyMode,
		PHY: engine.PHYConfig{
			PathlossExp:  pathlossExp,
			ShadowingStd: shadowingStd,
			FadingRho:    fadingRho,
			SNRRefDB:     snrRefDB,
			RBFloorPErr:  rbFloorPErr,
		},
	}

	logrus.Infof("starting run: ttis=%d rb=%d ues=%d seed=%d phy_mode=%t", cfg.TTIs, cfg.RB, cfg.UEs, cfg.Seed, cfg.PHYMode)

	sinks, err := openSinks(csvPath, cfg.PHYMode)
	if err != nil {
		return err
	}
	defer sinks.Close()

	sim := engine.NewSimulator(cfg, sinks)
	sim.Run()

	printSummary(cfg, sim.Metrics, perUE, sim)

	logrus.Info("run complete")
	return nil
}
