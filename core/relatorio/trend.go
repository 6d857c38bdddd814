package relatorio

import "github.com/e-docBR/colaboraEdu-produc/core/nota"

// Trend is the signed change between the two most recent trimesters a record has scores for.
// The first available pair wins: t3-t2, then t3-t1, then t2-t1. Fewer than two scores give 0.
func Trend(n nota.Nota) float64 {
	t1, t2, t3 := n.Trimestre1, n.Trimestre2, n.Trimestre3
	switch {
	case t3.Valid && t2.Valid:
		return t3.Float64 - t2.Float64
	case t3.Valid && t1.Valid:
		return t3.Float64 - t1.Float64
	case t2.Valid && t1.Valid:
		return t2.Float64 - t1.Float64
	default:
		return 0
	}
}
