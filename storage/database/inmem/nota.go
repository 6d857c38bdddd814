package inmemdb

import (
	"context"

	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

// NotaRepository keeps records in memory, per scope. Used by tests and the demo server.
type NotaRepository struct {
	db *notaTable
}

var _ nota.Repository = (*NotaRepository)(nil)

func NewNotaRepository(db *DB) *NotaRepository {
	return &NotaRepository{db: db.nota}
}

// Add stores records in scope, assigning ids to those without one.
func (repo *NotaRepository) Add(scope session.Scope, notas ...nota.Nota) []nota.Nota {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	added := make([]nota.Nota, len(notas))
	for i, n := range notas {
		if n.ID == 0 {
			repo.db.pk++
			n.ID = repo.db.pk
		}
		if n.Aluno != nil {
			aluno := *n.Aluno
			n.Aluno = &aluno
		}
		added[i] = n
	}
	repo.db.table[scope] = append(repo.db.table[scope], added...)
	return added
}

// Reset drops the records of the given scopes, or of every scope when none is given.
func (repo *NotaRepository) Reset(scopes ...session.Scope) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if len(scopes) == 0 {
		repo.db.table = make(map[session.Scope][]nota.Nota)
		return
	}
	for _, scope := range scopes {
		delete(repo.db.table, scope)
	}
}

func (repo *NotaRepository) ListNotas(ctx context.Context, sess session.Session) ([]nota.Nota, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	stored := repo.db.table[sess.Scope]
	notas := make([]nota.Nota, len(stored))
	copy(notas, stored)
	return notas, nil
}
