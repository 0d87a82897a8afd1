package metrics

// Evidence is one verification signal from one source.
type Evidence struct {
	Outcome    VerificationStatus `json:"outcome"`
	Confidence float64            `json:"confidence"`
	Source     string             `json:"source,omitempty"`
}

// evidenceRatios are the confidence-weighted shares of each outcome bucket.
// They depend only on accumulated weights, which is what makes the
// reduction invariant under reordering of the evidence list.
type evidenceRatios struct {
	verified     float64
	contradicted float64
	uncertain    float64
	absence      float64
}

// statusRule is one row of the reduction table: first predicate to hold,
// top to bottom, decides the outcome.
type statusRule struct {
	name    string
	applies func(r evidenceRatios, th StatusThresholds) bool
	outcome VerificationStatus
}

// statusRules is the explicit precedence order of the consensus decision.
// The order is load-bearing: contradiction outranks verification, strong
// disagreement outranks both, and positive residues outrank unverified.
var statusRules = []statusRule{
	{
		name: "strong_contradiction",
		applies: func(r evidenceRatios, th StatusThresholds) bool {
			return r.contradicted >= th.StrongContradiction
		},
		outcome: StatusContradicted,
	},
	{
		name: "mixed_strong_disagreement",
		applies: func(r evidenceRatios, th StatusThresholds) bool {
			return r.contradicted >= th.MixedDisagreement && r.verified >= th.MixedDisagreement
		},
		outcome: StatusUncertain,
	},
	{
		name: "verified_high",
		applies: func(r evidenceRatios, th StatusThresholds) bool {
			return r.verified >= th.VerifiedHigh
		},
		outcome: StatusVerified,
	},
	{
		name: "verified_low",
		applies: func(r evidenceRatios, th StatusThresholds) bool {
			return r.verified >= th.VerifiedLow
		},
		outcome: StatusPartiallyVerified,
	},
	{
		name: "uncertain_dominant",
		applies: func(r evidenceRatios, th StatusThresholds) bool {
			return r.uncertain >= th.UncertainDominant
		},
		outcome: StatusUncertain,
	},
	{
		name: "absence_dominant",
		applies: func(r evidenceRatios, th StatusThresholds) bool {
			return r.absence >= th.AbsenceDominant
		},
		outcome: StatusAbsenceOfInfo,
	},
	{
		name: "residual_verified",
		applies: func(r evidenceRatios, th StatusThresholds) bool {
			return r.verified > th.ResidualVerified
		},
		outcome: StatusPartiallyVerified,
	},
}

// StatusFromEvidence reduces multi-source evidence into one consensus
// status by confidence-weighted voting over outcome buckets, resolved
// through the ordered rule table above. Empty evidence is unverified.
//
// The reduction is permutation invariant: only accumulated weights per
// bucket enter the rules.
func (e *Engine) StatusFromEvidence(evidence []Evidence) VerificationStatus {
	var r evidenceRatios
	var total float64

	for _, ev := range evidence {
		w := ev.Confidence
		if w <= 0 {
			continue
		}
		if w > 1 {
			w = 1
		}
		total += w

		switch ev.Outcome {
		case StatusVerified:
			r.verified += w
		case StatusPartiallyVerified:
			// Partial verification is half a vote for verified.
			r.verified += w / 2
			r.uncertain += w / 2
		case StatusContradicted:
			r.contradicted += w
		case StatusUncertain, StatusInconclusive:
			r.uncertain += w
		case StatusAbsenceOfInfo:
			r.absence += w
		default:
			// unverified and unknown outcomes dilute every bucket.
		}
	}

	if total == 0 {
		return StatusUnverified
	}
	r.verified /= total
	r.contradicted /= total
	r.uncertain /= total
	r.absence /= total

	for _, rule := range statusRules {
		if rule.applies(r, e.config.Thresholds) {
			return rule.outcome
		}
	}
	return StatusUnverified
}

// StatusFromSignal maps a single confidence scalar plus contradiction and
// information-availability flags through fixed thresholds. This is the
// one-source call shape.
func (e *Engine) StatusFromSignal(confidence float64, contradicted, hasInformation bool) VerificationStatus {
	if contradicted {
		return StatusContradicted
	}
	if !hasInformation {
		return StatusAbsenceOfInfo
	}

	th := e.config.Thresholds
	switch {
	case confidence >= th.SignalVerified:
		return StatusVerified
	case confidence >= th.SignalPartial:
		return StatusPartiallyVerified
	case confidence > 0:
		return StatusUncertain
	}
	return StatusUnverified
}
