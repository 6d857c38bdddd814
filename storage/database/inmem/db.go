package inmemdb

import (
	"sync"

	"github.com/e-docBR/colaboraEdu-produc/core/nota"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

type (
	DB struct {
		nota *notaTable
	}

	notaTable struct {
		mutex sync.RWMutex
		pk    int
		table map[session.Scope][]nota.Nota
	}
)

func Open() *DB {
	return &DB{
		nota: &notaTable{table: make(map[session.Scope][]nota.Nota)},
	}
}
