package metrics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orvandel/mentat/pkg/calcverify"
	"github.com/orvandel/mentat/pkg/graph"
)

var strongMetrics = graph.Metrics{Confidence: 0.9, Relevance: 0.9, Quality: 0.9}

func TestReliabilityStatusCeilings(t *testing.T) {
	e := NewEngine(nil)

	// Near-perfect metrics cannot push a weak status past its ceiling.
	tests := []struct {
		status  VerificationStatus
		ceiling float64
	}{
		{StatusContradicted, 0.30},
		{StatusUnverified, 0.50},
		{StatusAbsenceOfInfo, 0.50},
		{StatusUncertain, 0.60},
		{StatusPartiallyVerified, 0.80},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			got := e.Reliability(strongMetrics, tt.status, nil, nil)
			assert.LessOrEqual(t, got, tt.ceiling)
		})
	}

	t.Run("status ordering preserved", func(t *testing.T) {
		verified := e.Reliability(strongMetrics, StatusVerified, nil, nil)
		partial := e.Reliability(strongMetrics, StatusPartiallyVerified, nil, nil)
		contradicted := e.Reliability(strongMetrics, StatusContradicted, nil, nil)
		assert.Greater(t, verified, partial)
		assert.Greater(t, partial, contradicted)
	})
}

func TestReliabilityCalcBonus(t *testing.T) {
	e := NewEngine(nil)
	m := graph.Metrics{Confidence: 0.5, Relevance: 0.5, Quality: 0.5}

	base := e.Reliability(m, StatusPartiallyVerified, nil, nil)
	allCorrect := e.Reliability(m, StatusPartiallyVerified, []calcverify.Result{
		{IsCorrect: true}, {IsCorrect: true},
	}, nil)
	halfCorrect := e.Reliability(m, StatusPartiallyVerified, []calcverify.Result{
		{IsCorrect: true}, {IsCorrect: false},
	}, nil)

	assert.InDelta(t, base+0.10, allCorrect, 1e-9)
	assert.InDelta(t, base+0.05, halfCorrect, 1e-9)
}

func TestReliabilitySmoothing(t *testing.T) {
	e := NewEngine(nil)
	m := graph.Metrics{Confidence: 0.5, Relevance: 0.5, Quality: 0.5}

	fresh := e.Reliability(m, StatusVerified, nil, nil)

	prev := 0.2
	smoothed := e.Reliability(m, StatusVerified, nil, &prev)
	f := e.Config().SmoothingFactor
	assert.InDelta(t, f*fresh+(1-f)*prev, smoothed, 1e-9)
	assert.Less(t, smoothed, fresh, "low previous score must pull the result down")
}

func TestReliabilityBand(t *testing.T) {
	e := NewEngine(nil)
	zero := graph.Metrics{}
	got := e.Reliability(zero, StatusContradicted, nil, nil)
	assert.GreaterOrEqual(t, got, e.Config().Reliability.Min)
}

func TestCertaintySummary(t *testing.T) {
	e := NewEngine(nil)

	t.Run("deterministic", func(t *testing.T) {
		a := e.CertaintySummary(StatusVerified, 0.87, nil)
		b := e.CertaintySummary(StatusVerified, 0.87, nil)
		assert.Equal(t, a, b)
		assert.Contains(t, a, "87%")
	})

	t.Run("high unverified score carries a disclaimer", func(t *testing.T) {
		got := e.CertaintySummary(StatusUnverified, 0.6, nil)
		assert.Contains(t, got, "has not been verified")
	})

	t.Run("low unverified score has no disclaimer", func(t *testing.T) {
		got := e.CertaintySummary(StatusUnverified, 0.3, nil)
		assert.False(t, strings.Contains(got, "has not been verified"))
	})

	t.Run("arithmetic counts are appended", func(t *testing.T) {
		got := e.CertaintySummary(StatusPartiallyVerified, 0.7, []calcverify.Result{
			{IsCorrect: true}, {IsCorrect: false}, {IsCorrect: true},
		})
		assert.Contains(t, got, "2/3 correct")
	})
}
