package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigError marks a configuration mistake: a bad flag value, a
// missing required flag, or a malformed --config file. Cobra prints
// usage when it is returned, and main exits 1 on it, as on any other
// error from Execute.
type ConfigError struct {
	msg string
}

func (e *ConfigError) Error() string { return e.msg }

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

// FileConfig mirrors every CLI flag so a run can be fully specified by
// --config PATH. Fields left zero keep the CLI default or flag value;
// a field set here is overridden by an explicit flag of the same name.
type FileConfig struct {
	TTIs int `yaml:"ttis"`
	RB   int `yaml:"rb"`
	UEs  int `yaml:"ues"`

	Arrival  *float64 `yaml:"arrival"`
	Deadline *int     `yaml:"deadline"`
	Seed     *int64   `yaml:"seed"`
	BLER     *float64 `yaml:"bler"`
	Harq     *int     `yaml:"harq"`
	CSV      *string  `yaml:"csv"`
	PHYMode  *bool    `yaml:"phy_mode"`

	PathlossExp  *float64 `yaml:"pathloss_exp"`
	ShadowingStd *float64 `yaml:"shadowing_std"`
	FadingRho    *float64 `yaml:"fading_rho"`
	SNRRefDB     *float64 `yaml:"snr_ref"`
	RBFloorPErr  *float64 `yaml:"rb_floor_perr"`

	PktBitsMin *int `yaml:"pkt_bits_min"`
	PktBitsMax *int `yaml:"pkt_bits_max"`
}

// loadFileConfig decodes a YAML config file with strict field checking,
// so a typo'd key is a load error rather than a silently-ignored field.
func loadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configErrorf("reading config file %s: %v", path, err)
	}
	var fc FileConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil {
		return nil, configErrorf("parsing config file %s: %v", path, err)
	}
	return &fc, nil
}
