package relatorio

import (
	"math"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/e-docBR/colaboraEdu-produc/core/nota"
)

const (
	riskThreshold  = 0.3 // strictly greater is kept
	riskLimit      = 50
	moverThreshold = 1.0 // |delta| greater or equal is kept
	moverLimit     = 20
)

// RadarAbandono ranks the students most at risk of dropping out.
func RadarAbandono(items []nota.Nota, f nota.Filter) []Row {
	groups := groupByAluno(f.Apply(items), nil)

	rows := make([]RiskRow, 0, len(groups))
	for _, g := range groups {
		risco := roundFixed(Risk(g.notas), 2)
		if risco > riskThreshold {
			rows = append(rows, RiskRow{Nome: g.nome, Turma: g.turma, Risco: risco})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Risco > rows[j].Risco })
	if len(rows) > riskLimit {
		rows = rows[:riskLimit]
	}

	res := make([]Row, len(rows))
	for i, r := range rows {
		res[i] = r
	}
	return res
}

// TopMovers ranks the students whose grades moved the most, up or down.
// Records without a trend do not weigh on the average.
func TopMovers(items []nota.Nota, f nota.Filter) []Row {
	groups := groupByAluno(f.Apply(items), func(n nota.Nota) bool { return Trend(n) != 0 })

	rows := make([]MoverRow, 0, len(groups))
	for _, g := range groups {
		var sum float64
		for _, n := range g.notas {
			sum += Trend(n)
		}
		delta := roundFixed(sum/float64(len(g.notas)), 1)
		if math.Abs(delta) >= moverThreshold {
			rows = append(rows, MoverRow{Nome: g.nome, Turma: g.turma, Delta: delta})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return math.Abs(rows[i].Delta) > math.Abs(rows[j].Delta)
	})
	if len(rows) > moverLimit {
		rows = rows[:moverLimit]
	}

	res := make([]Row, len(rows))
	for i, r := range rows {
		res[i] = r
	}
	return res
}

// ComparativoEficiencia compares each class average against the school average.
// The school average is computed on the disciplina and turno filters only, so
// narrowing to one turma never changes it.
func ComparativoEficiencia(items []nota.Nota, f nota.Filter) []Row {
	var (
		schoolSum   float64
		schoolCount int
		order       []string
		turmas      = make(map[string]*average)
	)
	for _, n := range items {
		if !f.MatchesBaseline(n) || !n.Total.Valid {
			continue
		}
		schoolSum += n.Total.Float64
		schoolCount++

		t := n.Turma()
		if t == "" {
			continue
		}
		avg, ok := turmas[t]
		if !ok {
			avg = new(average)
			turmas[t] = avg
			order = append(order, t)
		}
		avg.add(n.Total.Float64)
	}

	var escola float64
	if schoolCount > 0 {
		escola = roundFixed(schoolSum/float64(schoolCount), 1)
	}

	col := collate.New(language.BrazilianPortuguese)
	sort.SliceStable(order, func(i, j int) bool {
		return col.CompareString(order[i], order[j]) < 0
	})

	res := make([]Row, 0, len(order))
	for _, t := range order {
		if f.Turma != "" && t != f.Turma {
			continue
		}
		media := roundFixed(turmas[t].mean(), 1)
		res = append(res, EfficiencyRow{
			Turma:  t,
			Media:  media,
			Escola: escola,
			Delta:  roundFixed(media-escola, 1),
		})
	}
	return res
}

// Compute runs the derived report named by slug. It returns nil for other slugs.
func Compute(slug Slug, items []nota.Nota, f nota.Filter) []Row {
	switch slug {
	case SlugRadarAbandono:
		return RadarAbandono(items, f)
	case SlugTopMovers:
		return TopMovers(items, f)
	case SlugComparativoEficiencia:
		return ComparativoEficiencia(items, f)
	default:
		return nil
	}
}

type average struct {
	sum   float64
	count int
}

func (a *average) add(v float64) {
	a.sum += v
	a.count++
}

func (a *average) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

type alunoGroup struct {
	nome  string
	turma string
	notas []nota.Nota
}

// groupByAluno groups records by student in first-seen order.
// Records without a student id, or rejected by keep, are skipped.
func groupByAluno(items []nota.Nota, keep func(nota.Nota) bool) []*alunoGroup {
	index := make(map[int]*alunoGroup)
	groups := make([]*alunoGroup, 0)
	for _, n := range items {
		id := n.AlunoID()
		if id == 0 {
			continue
		}
		if keep != nil && !keep(n) {
			continue
		}
		g, ok := index[id]
		if !ok {
			g = &alunoGroup{nome: n.Aluno.Nome, turma: n.Aluno.Turma}
			index[id] = g
			groups = append(groups, g)
		}
		g.notas = append(g.notas, n)
	}
	return groups
}
