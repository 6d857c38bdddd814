package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

const listNotasQuery = `
SELECT n.id, n.disciplina, n.trimestre1, n.trimestre2, n.trimestre3, n.total, n.faltas, n.situacao,
       a.id AS aluno_id, a.nome AS aluno_nome, a.turma AS aluno_turma, a.turno AS aluno_turno,
       a.status AS aluno_status
FROM notas n
LEFT JOIN alunos a ON a.id = n.aluno_id
WHERE n.tenant_id = ? AND n.academic_year_id = ?
ORDER BY n.id`

// notaRow is a nota joined with its aluno, as scanned by sqlx.
type notaRow struct {
	ID          int          `db:"id"`
	Disciplina  string       `db:"disciplina"`
	Trimestre1  null.Float64 `db:"trimestre1"`
	Trimestre2  null.Float64 `db:"trimestre2"`
	Trimestre3  null.Float64 `db:"trimestre3"`
	Total       null.Float64 `db:"total"`
	Faltas      null.Int     `db:"faltas"`
	Situacao    null.String  `db:"situacao"`
	AlunoID     null.Int     `db:"aluno_id"`
	AlunoNome   null.String  `db:"aluno_nome"`
	AlunoTurma  null.String  `db:"aluno_turma"`
	AlunoTurno  null.String  `db:"aluno_turno"`
	AlunoStatus null.String  `db:"aluno_status"`
}

func (r notaRow) toNota() nota.Nota {
	n := nota.Nota{
		ID:         r.ID,
		Disciplina: r.Disciplina,
		Trimestre1: r.Trimestre1,
		Trimestre2: r.Trimestre2,
		Trimestre3: r.Trimestre3,
		Total:      r.Total,
		Faltas:     r.Faltas,
		Situacao:   r.Situacao,
	}
	if r.AlunoID.Valid {
		n.Aluno = &nota.AlunoResumo{
			ID:     r.AlunoID.Int,
			Nome:   r.AlunoNome.String,
			Turma:  r.AlunoTurma.String,
			Turno:  r.AlunoTurno.String,
			Status: r.AlunoStatus,
		}
	}
	return n
}

type notaRepository struct {
	db core.DBExecutor
}

var _ nota.Repository = (*notaRepository)(nil)

func NewNotaRepository(db core.DBExecutor) nota.Repository {
	return &notaRepository{db: db}
}

// ListNotas returns every record of the session's scope, ordered by id.
func (repo *notaRepository) ListNotas(ctx context.Context, sess session.Session) ([]nota.Nota, error) {
	var rows []notaRow
	err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(listNotasQuery),
		sess.Scope.TenantID, sess.Scope.AcademicYearID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting notas")
	}

	notas := make([]nota.Nota, len(rows))
	for i, r := range rows {
		notas[i] = r.toNota()
	}
	return notas, nil
}
