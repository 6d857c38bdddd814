package relatorio

import "github.com/e-docBR/colaboraEdu-produc/core/nota"

// Data is the payload of a report: its rows under "dados".
type Data struct {
	Dados []Row `json:"dados"`
}

// Result is a derived report along with the load state of the records it was computed on.
type Result struct {
	Data       Data `json:"data"`
	IsLoading  bool `json:"isLoading"`
	IsFetching bool `json:"isFetching"`
	IsError    bool `json:"isError"`
}

func newResult(rows []Row, snap nota.Snapshot) Result {
	if rows == nil {
		rows = []Row{}
	}
	return Result{
		Data:       Data{Dados: rows},
		IsLoading:  snap.IsLoading,
		IsFetching: snap.IsFetching,
		IsError:    snap.IsError(),
	}
}
