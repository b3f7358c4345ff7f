package srs

// Params defines all configurable parameters for the SM-2 scheduler
type Params struct {
	// Ease factor bounds
	MinEaseFactor     float64
	InitialEaseFactor float64

	// Fixed intervals for the first two successful repetitions
	FirstInterval  int
	SecondInterval int

	// Lowest quality that counts as a successful recall
	PassingQuality int

	// MaxIntervalDays caps computed intervals. Zero disables the cap.
	MaxIntervalDays int
}

// MinPassingQuality is the lowest configurable passing quality. Grades below
// it always reset the repetition count.
const MinPassingQuality = 3

// ParamsConfig allows overriding the default parameters when creating a new Params instance
type ParamsConfig struct {
	MinEaseFactor     float64
	InitialEaseFactor float64
	FirstInterval     int
	SecondInterval    int
	PassingQuality    int
	MaxIntervalDays   int
}

// NewDefaultParams creates a new Params instance with the classic SM-2 values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor:     1.3,
		InitialEaseFactor: 2.5,
		FirstInterval:     1,
		SecondInterval:    6,
		PassingQuality:    MinPassingQuality,
	}
}

// NewParams creates a new Params instance with custom configuration.
// Zero-valued fields keep their defaults.
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.InitialEaseFactor > 0 {
		params.InitialEaseFactor = config.InitialEaseFactor
	}
	if config.FirstInterval > 0 {
		params.FirstInterval = config.FirstInterval
	}
	if config.SecondInterval > 0 {
		params.SecondInterval = config.SecondInterval
	}
	if config.PassingQuality >= MinPassingQuality && config.PassingQuality <= MaxQuality {
		params.PassingQuality = config.PassingQuality
	}
	if config.MaxIntervalDays > 0 {
		params.MaxIntervalDays = config.MaxIntervalDays
	}

	return params
}
