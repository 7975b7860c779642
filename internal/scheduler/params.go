package scheduler

// Params are the tunables of the scheduling algebra. The defaults mirror the
// values the platform has always shipped; deployments may override them
// through configuration but the clamping and floor rules are not negotiable.
type Params struct {
	LearningStepsMinutes    []int32
	RelearningStepsMinutes  []int32
	GraduatingIntervalDays  int32
	EasyIntervalDays        int32
	LapseMinIntervalDays    int32
	EaseKnowDelta           float64
	EaseDoubtDelta          float64
	EaseLapseDelta          float64
	EaseMin                 float64
	EaseMax                 float64
	DoubtIntervalMultiplier float64
	KnowIntervalBonus       float64
	IntervalVariance        float64 // half-width of the uniform smear, e.g. 0.1 for ±10%
	LeechThreshold          int32
}

// DefaultParams returns the production tuning.
func DefaultParams() Params {
	return Params{
		LearningStepsMinutes:    []int32{1, 10},
		RelearningStepsMinutes:  []int32{10},
		GraduatingIntervalDays:  1,
		EasyIntervalDays:        4,
		LapseMinIntervalDays:    1,
		EaseKnowDelta:           0.15,
		EaseDoubtDelta:          -0.15,
		EaseLapseDelta:          -0.20,
		EaseMin:                 1.30,
		EaseMax:                 2.80,
		DoubtIntervalMultiplier: 1.2,
		KnowIntervalBonus:       1.3,
		IntervalVariance:        0.1,
		LeechThreshold:          8,
	}
}

func (p Params) normalize() Params {
	if len(p.LearningStepsMinutes) == 0 {
		p.LearningStepsMinutes = []int32{1, 10}
	}
	if len(p.RelearningStepsMinutes) == 0 {
		p.RelearningStepsMinutes = []int32{10}
	}
	if p.GraduatingIntervalDays < 1 {
		p.GraduatingIntervalDays = 1
	}
	if p.EasyIntervalDays < 1 {
		p.EasyIntervalDays = 1
	}
	if p.LapseMinIntervalDays < 1 {
		p.LapseMinIntervalDays = 1
	}
	if p.EaseMin <= 0 {
		p.EaseMin = 1.30
	}
	if p.EaseMax < p.EaseMin {
		p.EaseMax = p.EaseMin
	}
	if p.IntervalVariance < 0 || p.IntervalVariance >= 1 {
		p.IntervalVariance = 0.1
	}
	return p
}
