package nota

import (
	"sort"

	"github.com/volatiletech/null/v8"

	"github.com/e-docBR/colaboraEdu-produc/core"
)

// Nota is one student's record for one subject (disciplina).
// Missing scores are not zeros: every score is nullable.
type Nota struct {
	ID         int          `json:"id"`
	Disciplina string       `json:"disciplina"`
	Trimestre1 null.Float64 `json:"trimestre1"`
	Trimestre2 null.Float64 `json:"trimestre2"`
	Trimestre3 null.Float64 `json:"trimestre3"`
	Total      null.Float64 `json:"total"`
	Faltas     null.Int     `json:"faltas"`
	Situacao   null.String  `json:"situacao"`
	Aluno      *AlunoResumo `json:"aluno"`
}

// AlunoResumo is the owning student, as embedded in every Nota.
type AlunoResumo struct {
	ID     int         `json:"id"`
	Nome   string      `json:"nome"`
	Turma  string      `json:"turma"`
	Turno  string      `json:"turno"`
	Status null.String `json:"status"`
}

// AlunoID returns the owning student's ID, or 0 when the record has no student identity.
func (n Nota) AlunoID() int {
	if n.Aluno == nil {
		return 0
	}
	return n.Aluno.ID
}

// Turma returns the owning student's class ("" when unknown).
func (n Nota) Turma() string {
	if n.Aluno == nil {
		return ""
	}
	return n.Aluno.Turma
}

// Turno returns the owning student's shift ("" when unknown).
func (n Nota) Turno() string {
	if n.Aluno == nil {
		return ""
	}
	return n.Aluno.Turno
}

// ListResponse is the payload of the upstream `GET /notas`.
type ListResponse struct {
	Items []Nota `json:"items"`
	Total int    `json:"total"`
}

// Filter narrows the records a report is computed on.
// Every field is matched by exact equality; an empty field does not filter.
type Filter struct {
	Turma      string `json:"turma,omitempty" query:"turma" validate:"max=32"`
	Turno      string `json:"turno,omitempty" query:"turno" validate:"max=32"`
	Disciplina string `json:"disciplina,omitempty" query:"disciplina" validate:"max=80"`
}

func (f *Filter) Clean() {
	f.Turma = core.CleanString(f.Turma)
	f.Turno = core.CleanString(f.Turno)
	f.Disciplina = core.CleanString(f.Disciplina)
}

func (f Filter) IsEmpty() bool {
	return f.Turma == "" && f.Turno == "" && f.Disciplina == ""
}

// Matches applies the three fields. A record without a student fails any turma/turno filter.
func (f Filter) Matches(n Nota) bool {
	if f.Turma != "" && (n.Aluno == nil || n.Aluno.Turma != f.Turma) {
		return false
	}
	return f.MatchesBaseline(n)
}

// MatchesBaseline applies turno and disciplina only; turma is ignored.
func (f Filter) MatchesBaseline(n Nota) bool {
	if f.Turno != "" && (n.Aluno == nil || n.Aluno.Turno != f.Turno) {
		return false
	}
	if f.Disciplina != "" && n.Disciplina != f.Disciplina {
		return false
	}
	return true
}

// Apply returns the records matching f, in their original order.
func (f Filter) Apply(items []Nota) []Nota {
	if f.IsEmpty() {
		return items
	}
	res := make([]Nota, 0, len(items))
	for _, n := range items {
		if f.Matches(n) {
			res = append(res, n)
		}
	}
	return res
}

// Filtros lists the distinct values available to filter on.
type Filtros struct {
	Turmas      []string `json:"turmas"`
	Turnos      []string `json:"turnos"`
	Disciplinas []string `json:"disciplinas"`
}

func NewFiltros(items []Nota) Filtros {
	turmas := make(map[string]struct{})
	turnos := make(map[string]struct{})
	disciplinas := make(map[string]struct{})
	for _, n := range items {
		if n.Disciplina != "" {
			disciplinas[n.Disciplina] = struct{}{}
		}
		if t := n.Turma(); t != "" {
			turmas[t] = struct{}{}
		}
		if t := n.Turno(); t != "" {
			turnos[t] = struct{}{}
		}
	}
	return Filtros{
		Turmas:      sortedKeys(turmas),
		Turnos:      sortedKeys(turnos),
		Disciplinas: sortedKeys(disciplinas),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
