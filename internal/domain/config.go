package domain

// MatchConfig contains the tunables for budget reconciliation. An explicit
// value is passed into every pipeline call; there is no process-wide
// configuration singleton.
type MatchConfig struct {
	// DateWindowDays is the ± window around the budget line's expected
	// date that still earns date-proximity points.
	DateWindowDays int `json:"dateWindowDays"`
	// AmountTolerancePct is the maximum percentage difference between the
	// movement amount and the line's monthly amount that still earns
	// amount-proximity points.
	AmountTolerancePct float64 `json:"amountTolerancePct"`
	// IgnoreAccount widens candidate filtering to budget lines of any
	// account. By default only the movement's account is considered.
	IgnoreAccount bool `json:"ignoreAccount"`

	// Score thresholds for status assignment.
	HighScore float64 `json:"highScore"` // >= HighScore -> conciliado
	GoodScore float64 `json:"goodScore"` // >= GoodScore -> confirmado (good match)
	MinScore  float64 `json:"minScore"`  // >= MinScore -> confirmado (acceptable match)

	// AmbiguityGap: when two or more candidates reach GoodScore and the
	// top two are closer than this gap, the result is forced to
	// no_planificado for human review.
	AmbiguityGap        float64 `json:"ambiguityGap"`
	AmbiguityConfidence int     `json:"ambiguityConfidence"`
	// NoCandidateConfidence is reported when no candidate exists at all:
	// high confidence that nothing matches, not low confidence in a match.
	NoCandidateConfidence int `json:"noCandidateConfidence"`
}

// TransferConfig contains the tunables for internal transfer detection.
type TransferConfig struct {
	// DateWindowDays is the ± window within which opposite legs may land.
	DateWindowDays int `json:"dateWindowDays"`
	// AmountTolerance is the maximum absolute difference between leg
	// magnitudes in currency units, intended for sub-cent rounding only.
	AmountTolerance float64 `json:"amountTolerance"`
	// Keywords flag a movement as a transfer leg on description match
	// alone, independent of amount/date pairing.
	Keywords []string `json:"keywords"`
}

// PipelineConfig bundles the per-run configuration for all stages.
type PipelineConfig struct {
	Match    MatchConfig    `json:"match"`
	Transfer TransferConfig `json:"transfer"`
}

// DefaultMatchConfig returns the default reconciliation tunables.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		DateWindowDays:        5,
		AmountTolerancePct:    15,
		HighScore:             80,
		GoodScore:             60,
		MinScore:              40,
		AmbiguityGap:          20,
		AmbiguityConfidence:   50,
		NoCandidateConfidence: 100,
	}
}

// DefaultTransferConfig returns the default transfer detection tunables.
func DefaultTransferConfig() TransferConfig {
	return TransferConfig{
		DateWindowDays:  2,
		AmountTolerance: 0.01,
		Keywords: []string{
			"TRASPASO",
			"TRANSFERENCIA",
			"TRANSFER",
			"ENVÍO ENTRE CUENTAS",
			"ENVIO",
		},
	}
}

// DefaultPipelineConfig returns the default configuration for a full run.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Match:    DefaultMatchConfig(),
		Transfer: DefaultTransferConfig(),
	}
}
