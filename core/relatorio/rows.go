package relatorio

// Row is one line of a derived report: a RiskRow, a MoverRow or an EfficiencyRow.
type Row interface {
	isRow()
}

// RiskRow is a line of the dropout-risk radar. Risco is in [0, 0.99].
type RiskRow struct {
	Nome  string  `json:"nome"`
	Turma string  `json:"turma"`
	Risco float64 `json:"risco"`
}

// MoverRow is a line of the top movers: the student's average trend across subjects.
type MoverRow struct {
	Nome  string  `json:"nome"`
	Turma string  `json:"turma"`
	Delta float64 `json:"delta"`
}

// EfficiencyRow compares a class average with the school-wide average of the same scope.
type EfficiencyRow struct {
	Turma  string  `json:"turma"`
	Media  float64 `json:"media"`
	Escola float64 `json:"escola"`
	Delta  float64 `json:"delta"`
}

func (RiskRow) isRow()       {}
func (MoverRow) isRow()      {}
func (EfficiencyRow) isRow() {}
