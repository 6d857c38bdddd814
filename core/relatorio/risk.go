package relatorio

import (
	"math"

	"github.com/e-docBR/colaboraEdu-produc/core/nota"
)

const (
	passingTotal  = 60.0 // a positive total below this is a failure
	droppingTrend = -5.0 // a trend below this is a dropping grade

	failureWeight  = 0.1
	failureCap     = 0.5
	absenceWeight  = 0.1 // per 20 absences
	absenceCap     = 0.3
	absenceUnit    = 20.0
	droppingWeight = 0.1
	droppingCap    = 0.2
	maxRisk        = 0.99
)

// RiskFactors are the signals the dropout risk is scored on, aggregated over a student's records.
type RiskFactors struct {
	Failures       int // records with 0 < total < 60; a zero or missing total is no signal
	TotalAbsences  int // missing faltas count as 0
	DroppingGrades int // records with a trend below -5
}

func NewRiskFactors(notas []nota.Nota) RiskFactors {
	var f RiskFactors
	for _, n := range notas {
		total := n.Total.Float64 // 0 when missing
		if total > 0 && total < passingTotal {
			f.Failures++
		}
		if n.Faltas.Valid {
			f.TotalAbsences += n.Faltas.Int
		}
		if Trend(n) < droppingTrend {
			f.DroppingGrades++
		}
	}
	return f
}

// Score is a weighted scorecard, each factor capped on its own: 0.5 + 0.3 + 0.2,
// then the whole capped at 0.99 so it never reads as a certainty.
func (f RiskFactors) Score() float64 {
	risk := math.Min(failureCap, float64(f.Failures)*failureWeight)
	risk += math.Min(absenceCap, (float64(f.TotalAbsences)/absenceUnit)*absenceWeight)
	risk += math.Min(droppingCap, float64(f.DroppingGrades)*droppingWeight)
	return math.Min(maxRisk, risk)
}

// Risk scores the dropout risk of one student from all of their records.
func Risk(notas []nota.Nota) float64 {
	return NewRiskFactors(notas).Score()
}
