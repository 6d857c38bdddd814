package relatorio

// Slug identifies a report.
type Slug string

// Derived reports, computed in memory from the grade records.
const (
	SlugRadarAbandono         Slug = "radar-abandono"
	SlugTopMovers             Slug = "top-movers"
	SlugComparativoEficiencia Slug = "comparativo-eficiencia"
)

// Server-backed reports.
const (
	SlugTurmasMaisFaltas       Slug = "turmas-mais-faltas"
	SlugMelhoresMedias         Slug = "melhores-medias"
	SlugAlunosEmRisco          Slug = "alunos-em-risco"
	SlugDisciplinasNotasBaixas Slug = "disciplinas-notas-baixas"
	SlugMelhoresAlunos         Slug = "melhores-alunos"
	SlugPerformanceHeatmap     Slug = "performance-heatmap"
	SlugAttendanceCorrelation  Slug = "attendance-correlation"
	SlugClassRadar             Slug = "class-radar"
)

// Kind is how a report is presented.
type Kind string

const (
	KindTable   Kind = "table"
	KindHeatmap Kind = "heatmap"
	KindScatter Kind = "scatter"
	KindRadar   Kind = "radar"
	KindBar     Kind = "bar"
)

type Definition struct {
	Slug        Slug   `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Kind        Kind   `json:"type"`
	Derived     bool   `json:"derived"`
}

var catalog = []Definition{
	{Slug: SlugTurmasMaisFaltas, Kind: KindTable,
		Title:       "Turmas com Alta Evasão",
		Description: "Identifique turmas com índices críticos de faltas para intervenção."},
	{Slug: SlugAlunosEmRisco, Kind: KindTable,
		Title:       "Alunos em Risco",
		Description: "Estudantes com média global inferior a nota de corte."},
	{Slug: SlugDisciplinasNotasBaixas, Kind: KindTable,
		Title:       "Alertas de Disciplina",
		Description: "Mapeamento de desvios negativos de performance por matéria."},
	{Slug: SlugMelhoresMedias, Kind: KindTable,
		Title:       "Ranking de Turmas",
		Description: "Comparativo geral de desempenho acadêmico."},
	{Slug: SlugMelhoresAlunos, Kind: KindTable,
		Title:       "Quadro de Honra",
		Description: "Top 10 alunos com as maiores médias globais."},
	{Slug: SlugPerformanceHeatmap, Kind: KindHeatmap,
		Title:       "Mapa Térmico",
		Description: "Visão matricial macro de Notas x Disciplina x Turma."},
	{Slug: SlugAttendanceCorrelation, Kind: KindScatter,
		Title:       "Correlação: Freq. vs Notas",
		Description: "Análise gráfica do impacto da assiduidade no desempenho."},
	{Slug: SlugClassRadar, Kind: KindRadar,
		Title:       "Radar de Competências",
		Description: "Comparativo multidimensional entre turmas."},
	{Slug: SlugRadarAbandono, Kind: KindTable, Derived: true,
		Title:       "Radar de Abandono",
		Description: "PREDITIVO: Alunos com alto risco de evasão (Faltas + Queda de Notas)."},
	{Slug: SlugComparativoEficiencia, Kind: KindBar, Derived: true,
		Title:       "Eficiência Docente",
		Description: "DIAGNÓSTICO: Disparidade entre média da turma vs média da escola."},
	{Slug: SlugTopMovers, Kind: KindTable, Derived: true,
		Title:       "Top Movers (Tendência)",
		Description: "Alunos com maior crescimento ou queda súbita no período."},
}

// Catalog returns every known report definition.
func Catalog() []Definition {
	defs := make([]Definition, len(catalog))
	copy(defs, catalog)
	return defs
}

func Lookup(slug Slug) (Definition, bool) {
	for _, def := range catalog {
		if def.Slug == slug {
			return def, true
		}
	}
	return Definition{}, false
}

// IsDerived tells whether slug is computed by this package rather than by the server.
func IsDerived(slug Slug) bool {
	switch slug {
	case SlugRadarAbandono, SlugTopMovers, SlugComparativoEficiencia:
		return true
	}
	return false
}
