package nota

import (
	"context"

	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

// Repository is any source of grade records (the school database, the upstream REST API, memory).
type Repository interface {
	// ListNotas returns every record of the session's scope, in a stable order.
	ListNotas(ctx context.Context, sess session.Session) ([]Nota, error)
}
