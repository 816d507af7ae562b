package mdppst

/*------------------------------------------------------------------
 *
 * Purpose:   	Run-time configuration file.
 *
 * Description:	Clock constants depend on how the crate is wired (10 MHz or
 *		16 MHz scaler) and on the TDC resolution register, neither
 *		of which is visible in the data stream.  Rather than
 *		compiling them in, read a small YAML file at startup:
 *
 *			variant: mdpp16scp
 *			external_clock_period_ns: 62.5
 *			tdc_unit_ps: 24.41
 *
 *		All keys optional.  An explicit -c path must exist; the
 *		default search list may come up empty, in which case the
 *		built-in constants stand.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Variant               string  `yaml:"variant"`
	ExternalClockPeriodNs float64 `yaml:"external_clock_period_ns"`
	TDCUnitPs             float64 `yaml:"tdc_unit_ps"`
}

var configSearchLocations = []string{
	"mdppst.yaml", // Current working directory
	"/usr/local/share/mdppst/mdppst.yaml",
	"/usr/share/mdppst/mdppst.yaml",
}

/*------------------------------------------------------------------
 *
 * Name:	LoadConfig
 *
 * Purpose:	Read the configuration file.
 *
 * Inputs:	path - explicit file, or "" to walk the search list.
 *
 * Returns:	A Config (possibly all zero values) and an error for an
 *		explicit path that cannot be read, or for any file found
 *		that cannot be parsed.
 *
 *------------------------------------------------------------------*/

func LoadConfig(path string) (*Config, error) {
	var cfg = new(Config)

	var explicit = path != ""
	var locations = []string{path}
	if !explicit {
		locations = configSearchLocations
	}

	var data []byte
	for _, location := range locations {
		var b, err = os.ReadFile(location)
		if err == nil {
			data = b
			path = location
			break
		}
		if explicit {
			return nil, err
		}
	}

	if data == nil {
		// Nothing found; built-in constants stand.
		return cfg, nil
	}

	var err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	logger.Debug("configuration loaded", "file", path)
	return cfg, nil
}

/*------------------------------------------------------------------
 *
 * Name:	BuildVariant
 *
 * Purpose:	Turn a Config into a concrete Variant.
 *
 * Description:	The variant name picks the base table entry; clock constant
 *		overrides are applied on top.
 *
 *------------------------------------------------------------------*/

func (cfg *Config) BuildVariant() (*Variant, error) {
	var v *Variant

	switch cfg.Variant {
	case "", "mdpp16scp":
		v = NewVariant(MDPP16SCP)
	case "mdpp32scp":
		v = NewVariant(MDPP32SCP)
	default:
		return nil, fmt.Errorf("unknown variant %q", cfg.Variant)
	}

	if cfg.ExternalClockPeriodNs != 0 {
		if !v.HasExternalClock {
			return nil, fmt.Errorf("variant %s has no external clock to set a period for", v.Name)
		}
		if cfg.ExternalClockPeriodNs < 0 {
			return nil, fmt.Errorf("external clock period must be positive, not %g", cfg.ExternalClockPeriodNs)
		}
		v.ExternalClockPeriodNs = cfg.ExternalClockPeriodNs
	}

	if cfg.TDCUnitPs != 0 {
		if cfg.TDCUnitPs < 0 {
			return nil, fmt.Errorf("TDC unit must be positive, not %g", cfg.TDCUnitPs)
		}
		v.TDCUnitPs = cfg.TDCUnitPs
	}

	return v, nil
}
