package composition

import "mantrify/internal/config"

// Rules holds the limits a draft must respect.
type Rules struct {
	TitleMax        int
	DescriptionMax  int
	SpeedMin        float64
	SpeedMax        float64
	PauseMaxSeconds float64
}

// DefaultRules mirrors the limits enforced by the generation backend.
func DefaultRules() Rules {
	return RulesFromConfig(nil)
}

// RulesFromConfig reads the composition section of cfg, using defaults for nil.
func RulesFromConfig(cfg *config.Config) Rules {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	c := cfg.Composition
	return Rules{
		TitleMax:        c.TitleMax,
		DescriptionMax:  c.DescriptionMax,
		SpeedMin:        c.SpeedMin,
		SpeedMax:        c.SpeedMax,
		PauseMaxSeconds: c.PauseMaxSeconds,
	}
}
