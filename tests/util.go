package testutil

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

var (
	TestKey   = []byte("secret")
	TestScope = session.Scope{TenantID: 1, AcademicYearID: 2024}
)

// Aluno returns the student summary embedded in records.
func Aluno(id int, nome, turma, turno string) *nota.AlunoResumo {
	return &nota.AlunoResumo{ID: id, Nome: nome, Turma: turma, Turno: turno}
}

// Nota builds a record. Scores are (trimestre1, trimestre2, trimestre3); a negative score is missing.
func Nota(aluno *nota.AlunoResumo, disciplina string, total float64, faltas int, scores ...float64) nota.Nota {
	n := nota.Nota{
		Disciplina: disciplina,
		Total:      null.Float64From(total),
		Faltas:     null.IntFrom(faltas),
		Aluno:      aluno,
	}
	fields := []*null.Float64{&n.Trimestre1, &n.Trimestre2, &n.Trimestre3}
	for i, s := range scores {
		if i < len(fields) && s >= 0 {
			*fields[i] = null.Float64From(s)
		}
	}
	return n
}

// Number assigns sequential ids to records that have none.
func Number(items []nota.Nota) []nota.Nota {
	for i := range items {
		if items[i].ID == 0 {
			items[i].ID = i + 1
		}
	}
	return items
}

// Token signs a token for a user acting on scope.
func Token(t *testing.T, scope session.Scope, ttl time.Duration) string {
	t.Helper()
	tkn, err := session.NewToken(session.UserClaims(1, "prof", scope, ttl, "professor"), TestKey)
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	return tkn
}

// Session returns an open user session on scope.
func Session(t *testing.T, scope session.Scope) session.Session {
	t.Helper()
	sess, err := session.Parse(Token(t, scope, time.Hour), TestKey)
	if err != nil {
		t.Fatalf("Session() failed: %v", err)
	}
	return sess
}

// Logger discards every message. It satisfies core.Logger.
type Logger struct{}

func (Logger) Debug(string, ...interface{}) {}
func (Logger) Info(string, ...interface{})  {}
func (Logger) Warn(string, ...interface{})  {}
func (Logger) Error(string, ...interface{}) {}
func (Logger) Fatal(string, ...interface{}) {}
