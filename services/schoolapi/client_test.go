package schoolapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
	testutil "github.com/e-docBR/colaboraEdu-produc/tests"
)

const notasBody = `{
	"items": [
		{"id": 1, "disciplina": "Mat", "trimestre1": 60, "trimestre2": null, "trimestre3": 72.5, "total": 66,
		 "faltas": 4, "situacao": null, "aluno": {"id": 7, "nome": "Ana", "turma": "9A", "turno": "Manhã", "status": "ativo"}},
		{"id": 2, "disciplina": "Port", "total": null}
	],
	"total": 2
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(core.SourceConfig{BaseURL: srv.URL + "/", Timeout: time.Second, MaxRetries: 2}, testutil.Logger{})
}

func TestClient_ListNotas(t *testing.T) {
	sess := testutil.Session(t, testutil.TestScope)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notas", r.URL.Path)
		assert.Equal(t, "Bearer "+sess.Token, r.Header.Get("Authorization"))
		assert.Equal(t, "1", r.Header.Get("X-Tenant-ID"))
		assert.Equal(t, "2024", r.Header.Get("X-Academic-Year-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(notasBody))
	})

	notas, err := client.ListNotas(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, notas, 2)

	n := notas[0]
	assert.Equal(t, 60.0, n.Trimestre1.Float64)
	assert.False(t, n.Trimestre2.Valid, "null is not zero")
	assert.Equal(t, 72.5, n.Trimestre3.Float64)
	assert.Equal(t, 4, n.Faltas.Int)
	assert.False(t, n.Situacao.Valid)
	assert.Equal(t, "9A", n.Turma())
	assert.Equal(t, "ativo", n.Aluno.Status.String)

	assert.Nil(t, notas[1].Aluno)
	assert.False(t, notas[1].Total.Valid)
	assert.False(t, notas[1].Faltas.Valid)
}

func TestClient_ListNotasErrors(t *testing.T) {
	sess := testutil.Session(t, testutil.TestScope)

	tests := []struct {
		name      string
		statuses  []int // answered in turn; the last one repeats
		wantCalls int32
		wantErr   bool
	}{
		{name: "retried then ok", statuses: []int{http.StatusBadGateway, http.StatusOK}, wantCalls: 2},
		{name: "gives up", statuses: []int{http.StatusServiceUnavailable}, wantCalls: 3, wantErr: true},
		{name: "too many requests", statuses: []int{http.StatusTooManyRequests, http.StatusOK}, wantCalls: 2},
		{name: "unauthorized is final", statuses: []int{http.StatusUnauthorized}, wantCalls: 1, wantErr: true},
		{name: "forbidden is final", statuses: []int{http.StatusForbidden}, wantCalls: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				i := int(atomic.AddInt32(&calls, 1)) - 1
				if i >= len(tt.statuses) {
					i = len(tt.statuses) - 1
				}
				if status := tt.statuses[i]; status != http.StatusOK {
					http.Error(w, http.StatusText(status), status)
					return
				}
				_, _ = w.Write([]byte(notasBody))
			})

			_, err := client.ListNotas(context.Background(), sess)
			if (err != nil) != tt.wantErr {
				t.Errorf("ListNotas() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestClient_ListNotasNoToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := client.ListNotas(context.Background(), session.System(testutil.TestScope))
	assert.Equal(t, ErrNoToken, err)
}

func TestClient_ListNotasBadJSON(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"items": [`))
	})
	_, err := client.ListNotas(context.Background(), testutil.Session(t, testutil.TestScope))
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
