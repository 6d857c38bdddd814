package emailsvc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e-docBR/colaboraEdu-produc/core"
	testutil "github.com/e-docBR/colaboraEdu-produc/tests"
)

func testConfig() *core.Config {
	return &core.Config{
		TestMode:         true,
		AppName:          "colaboraEdu",
		SendgridAPIKey:   "sg-key",
		DefaultFromEmail: mail.Address{Name: "colaboraEdu", Address: "noreply@school.test"},
		FrontendBaseURL:  "https://app.test",
	}
}

func TestConsoleService(t *testing.T) {
	conf := testConfig()
	out := new(bytes.Buffer)
	svc := newConsoleService(conf, testutil.Logger{}, out)

	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: "Coord", Address: "coord@school.test"}},
		Subject: "Hello",
		BodyStr: "plain body",
	}
	require.NoError(t, msg.Attach(strings.NewReader("a,b\n1,2\n"), "radar.csv", "text/csv"))
	svc.SendMessages(msg, &core.EmailMessage{Subject: "nobody"})
	svc.Wait()

	printed := out.String()
	assert.Contains(t, printed, "Subject: [colaboraEdu] Hello")
	assert.Contains(t, printed, `To: "Coord" <coord@school.test>`)
	assert.Contains(t, printed, "multipart/mixed; boundary=")
	assert.Contains(t, printed, "plain body")
	assert.Contains(t, printed, "filename=radar.csv")
	assert.Len(t, svc.sent, 1)
}

func TestConsoleServiceMock(t *testing.T) {
	conf := testConfig()
	core.ParseEmailTemplates(conf, testutil.Logger{})
	svc := NewConsoleServiceMock(conf, testutil.Logger{})

	tests := []struct {
		name     string
		msg      *core.EmailMessage
		wantSent bool
	}{
		{name: "no recipients", msg: &core.EmailMessage{Subject: "x", BodyStr: "x"}},
		{name: "no content", msg: &core.EmailMessage{To: []mail.Address{{Address: "a@school.test"}}, Subject: "x"}},
		{name: "text", msg: &core.EmailMessage{To: []mail.Address{{Address: "a@school.test"}}, Subject: "x", BodyStr: "x"}, wantSent: true},
		{
			name: "template",
			msg: &core.EmailMessage{
				To:           []mail.Address{{Address: "a@school.test"}},
				Subject:      "radar",
				TemplateName: "radar_abandono",
				TemplateData: map[string]interface{}{"Escopo": "tenant=1 year=2024", "Limiar": "30%", "Linhas": nil},
			},
			wantSent: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(svc.SentMessages())
			svc.SendMessages(tt.msg)
			if sent := len(svc.SentMessages()) > before; sent != tt.wantSent {
				t.Errorf("SendMessages() sent = %v, want %v", sent, tt.wantSent)
			}
		})
	}

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[1].TextContent, "Nenhum aluno acima do limiar")
	assert.Contains(t, sent[1].HTMLContent, "https://app.test/relatorios/radar-abandono")
}

func TestSendgridService(t *testing.T) {
	var calls int32
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, endpoint, r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	oldHost := host
	host = srv.URL
	defer func() { host = oldHost }()

	svc := NewSendgridService(testConfig(), testutil.Logger{})
	svc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: "Coord", Address: "coord@school.test"}},
		Subject: "Radar",
		BodyStr: "2 alunos",
	})
	svc.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.NotNil(t, payload)
	personalizations := payload["personalizations"].([]interface{})
	assert.Equal(t, "[colaboraEdu] Radar", personalizations[0].(map[string]interface{})["subject"])
}

func TestSendgridService_Permanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	oldHost := host
	host = srv.URL
	defer func() { host = oldHost }()

	svc := NewSendgridService(testConfig(), testutil.Logger{})
	err := svc.send(core.EmailMessage{To: []mail.Address{{Address: "a@school.test"}}, TextContent: "x"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
