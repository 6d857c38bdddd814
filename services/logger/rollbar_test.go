package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/e-docBR/colaboraEdu-produc/core"
	"github.com/e-docBR/colaboraEdu-produc/core/session"
)

func TestRollbarLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	logger := NewRollbarLogger(log.New(buf, "API : ", 0), &core.Config{TestMode: true})

	sess := session.System(session.Scope{TenantID: 1, AcademicYearID: 2024})
	logger.Warn("loading notas", errors.New("boom"), sess)
	logger.Info("started")

	out := buf.String()
	assert.Contains(t, out, "API : WARN: loading notas")
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "system", "sessions are not printed")
	assert.Contains(t, out, "API : INFO: started")
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := RollbarLogger{}
	scope := session.Scope{TenantID: 1, AcademicYearID: 2024}
	err := errors.New("boom")

	tests := []struct {
		name string
		args []interface{}
		want []interface{}
	}{
		{name: "msg only", want: []interface{}{"msg"}},
		{name: "error", args: []interface{}{err}, want: []interface{}{"msg", err}},
		{
			name: "sessions",
			args: []interface{}{session.System(scope), err, session.System(scope)},
			want: []interface{}{"msg", map[string]interface{}{"tenant_id": 1, "academic_year_id": 2024}, err},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.prepare("msg", tt.args))
		})
	}
}
