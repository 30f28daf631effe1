package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/houzhh15/workrelay/cmd/server/internal/chat"
	"github.com/houzhh15/workrelay/cmd/server/internal/mailer"
	"github.com/houzhh15/workrelay/cmd/server/internal/webhook"
)

// hookServer 记录收到的 webhook 请求并以固定状态码应答
type hookServer struct {
	mu     sync.Mutex
	calls  int
	bodies []map[string]json.RawMessage
	status int
}

func newHookServer(t *testing.T, status int) (*hookServer, *webhook.Client) {
	h := &hookServer{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		h.mu.Lock()
		h.calls++
		h.bodies = append(h.bodies, body)
		h.mu.Unlock()
		w.WriteHeader(h.status)
		_, _ = io.WriteString(w, `{"attempt":"recorded"}`)
	}))
	t.Cleanup(srv.Close)
	return h, webhook.NewClient("test_hook", srv.URL, 2*time.Second, nil)
}

type fakeLister struct {
	channels []chat.ChannelSummary
	err      error
}

func (f *fakeLister) ListChannels(context.Context) ([]chat.ChannelSummary, error) {
	return f.channels, f.err
}

type fakeMessenger struct {
	channel, text string
	err           error
}

func (f *fakeMessenger) SendMessage(_ context.Context, channel, text string) error {
	f.channel, f.text = channel, text
	return f.err
}

type fakeVerifier struct{ err error }

func (f fakeVerifier) VerifyRequest(http.Header, []byte) error { return f.err }

// blockingSender 在 release 关闭前阻塞，模拟慢速邮件中继
type blockingSender struct {
	release chan struct{}
	err     error
	sent    int32
}

func (b *blockingSender) Send(ctx context.Context, _ *gomail.Message) error {
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	atomic.AddInt32(&b.sent, 1)
	return b.err
}

// recordingDispatcher 包装真实派发器以便测试拿到结果通道
type recordingDispatcher struct {
	inner   *mailer.Dispatcher
	mu      sync.Mutex
	results []<-chan mailer.Result
}

func (r *recordingDispatcher) Dispatch(c mailer.Contact) <-chan mailer.Result {
	ch := r.inner.Dispatch(c)
	r.mu.Lock()
	r.results = append(r.results, ch)
	r.mu.Unlock()
	return ch
}

func newRouter(deps Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, deps)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateMeeting_RenamesFields(t *testing.T) {
	hook, client := newHookServer(t, http.StatusOK)
	r := newRouter(Deps{MeetingHook: client})

	w := do(r, http.MethodPost, "/api/create-meeting",
		`{"title":"Sprint review","type":"zoom","date":"2024-05-01T10:00:00Z","duration":45,"channel":"C1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Meeting link created"}`, w.Body.String())

	require.Equal(t, 1, hook.calls)
	body := hook.bodies[0]
	assert.Len(t, body, 5)
	assert.JSONEq(t, `"Sprint review"`, string(body["meetingTitle"]))
	assert.JSONEq(t, `"zoom"`, string(body["meetingType"]))
	assert.JSONEq(t, `"2024-05-01T10:00:00Z"`, string(body["date"]))
	assert.Equal(t, "45", string(body["duration"]))
	assert.JSONEq(t, `"C1"`, string(body["channel"]))
	assert.NotContains(t, body, "title")
	assert.NotContains(t, body, "type")
}

func TestCreateMeeting_OmitsAbsentFields(t *testing.T) {
	hook, client := newHookServer(t, http.StatusOK)
	r := newRouter(Deps{MeetingHook: client})

	w := do(r, http.MethodPost, "/api/create-meeting", `{"title":"Only title"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, hook.calls)
	assert.Equal(t, map[string]json.RawMessage{"meetingTitle": json.RawMessage(`"Only title"`)}, hook.bodies[0])
}

func TestCreateMeeting_UpstreamUnavailable(t *testing.T) {
	hook, client := newHookServer(t, http.StatusServiceUnavailable)
	r := newRouter(Deps{MeetingHook: client})

	w := do(r, http.MethodPost, "/api/create-meeting", `{"title":"x"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"An error occurred"}`, w.Body.String())
	assert.Equal(t, 1, hook.calls)
}

func TestCreateMeeting_Non200Success(t *testing.T) {
	_, client := newHookServer(t, http.StatusCreated)
	r := newRouter(Deps{MeetingHook: client})

	w := do(r, http.MethodPost, "/api/create-meeting", `{"title":"x"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Error sending data to Zapier"}`, w.Body.String())
}

func TestCreateMeeting_InvalidJSON(t *testing.T) {
	hook, client := newHookServer(t, http.StatusOK)
	r := newRouter(Deps{MeetingHook: client})

	w := do(r, http.MethodPost, "/api/create-meeting", `{"title":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, hook.calls)
}

func TestCreateIssue_ForwardsVerbatim(t *testing.T) {
	hook, client := newHookServer(t, http.StatusOK)
	r := newRouter(Deps{IssueHook: client})

	in := `{"summary":"Fix login","desc":"Users cannot log in","project_id":10001,"priority":"High",
		"due_date":"2024-06-01","meeting_date":"2024-05-20","duration":30,"channel":"C2","extra":"dropped"}`
	w := do(r, http.MethodPost, "/api/create-issue", in)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Issue created on Jira"}`, w.Body.String())

	require.Equal(t, 1, hook.calls)
	body := hook.bodies[0]
	assert.Len(t, body, 8)
	assert.Equal(t, "10001", string(body["project_id"]))
	assert.JSONEq(t, `"Fix login"`, string(body["summary"]))
	assert.JSONEq(t, `"2024-05-20"`, string(body["meeting_date"]))
	assert.NotContains(t, body, "extra")
}

func TestCreateIssue_FailureReturns404WithRawError(t *testing.T) {
	_, client := newHookServer(t, http.StatusBadGateway)
	r := newRouter(Deps{IssueHook: client})

	w := do(r, http.MethodPost, "/api/create-issue", `{"summary":"x"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp struct {
		Err rawError `json:"err"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "StatusError", resp.Err.Name)
	assert.Equal(t, http.StatusBadGateway, resp.Err.Status)
	assert.Contains(t, resp.Err.Message, "502")
	assert.Equal(t, `{"attempt":"recorded"}`, resp.Err.Data)
}

func TestCreateIssue_NotConfigured(t *testing.T) {
	r := newRouter(Deps{IssueHook: webhook.NewClient("jira_hook", "", time.Second, nil)})

	w := do(r, http.MethodPost, "/api/create-issue", `{}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), webhook.ErrNotConfigured.Error())
}

func TestListChannels(t *testing.T) {
	lister := &fakeLister{channels: []chat.ChannelSummary{
		{ID: "C3", Name: "zeta"},
		{ID: "C1", Name: "alpha"},
	}}
	r := newRouter(Deps{Channels: lister})

	w := do(r, http.MethodGet, "/api/channels", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"C3","name":"zeta"},{"id":"C1","name":"alpha"}]`, w.Body.String())
}

func TestListChannels_Failure(t *testing.T) {
	r := newRouter(Deps{Channels: &fakeLister{err: errors.New("invalid_auth")}})

	w := do(r, http.MethodGet, "/api/channels", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"An error occurred."}`, w.Body.String())
}

func TestSendMessage(t *testing.T) {
	m := &fakeMessenger{}
	r := newRouter(Deps{Messages: m})

	w := do(r, http.MethodPost, "/send-message", `{"channel":"C1","text":"hello"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Message sent successfully."}`, w.Body.String())
	assert.Equal(t, "C1", m.channel)
	assert.Equal(t, "hello", m.text)
}

func TestSendMessage_Failure(t *testing.T) {
	r := newRouter(Deps{Messages: &fakeMessenger{err: errors.New("channel_not_found")}})

	w := do(r, http.MethodPost, "/send-message", `{"channel":"C404","text":"hello"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"An error occurred."}`, w.Body.String())
}

func TestSendMessage_NonStringFieldsFailLikePlatform(t *testing.T) {
	m := &fakeMessenger{}
	r := newRouter(Deps{Messages: m})

	w := do(r, http.MethodPost, "/send-message", `{"channel":42,"text":{"a":1}}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"An error occurred."}`, w.Body.String())
	assert.Empty(t, m.channel)
}

func TestSendMail_RespondsBeforeSendCompletes(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{}), err: errors.New("relay down")}
	d := &recordingDispatcher{inner: mailer.NewDispatcher(sender, mailer.DispatcherConfig{From: "bot@example.com", To: "ops@example.com", MaxConcurrent: 1}, nil)}
	r := newRouter(Deps{Mail: d})

	w := do(r, http.MethodPost, "/api/sendmail", `{"name":"Ada","email":"ada@example.com","message":"hi"}`)

	// 邮件仍阻塞在中继，但响应已返回
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Zero(t, atomic.LoadInt32(&sender.sent))

	close(sender.release)
	require.Len(t, d.results, 1)
	res := <-d.results[0]
	assert.EqualError(t, res.Err, "relay down")
	assert.Equal(t, "ada@example.com", res.Contact.Email)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sender.sent))
}

func TestSlackActions(t *testing.T) {
	payload := `payload=%7B%22type%22%3A%22block_actions%22%2C%22user%22%3A%7B%22id%22%3A%22U1%22%7D%2C%22actions%22%3A%5B%7B%22action_id%22%3A%22button_click%22%2C%22block_id%22%3A%22b1%22%2C%22type%22%3A%22button%22%7D%5D%7D`

	r := newRouter(Deps{Verifier: fakeVerifier{}})
	w := do(r, http.MethodPost, "/slack/actions", payload)
	assert.Equal(t, http.StatusOK, w.Code)

	r = newRouter(Deps{Verifier: fakeVerifier{err: errors.New("signature mismatch")}})
	w = do(r, http.MethodPost, "/slack/actions", payload)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r = newRouter(Deps{Verifier: fakeVerifier{}})
	w = do(r, http.MethodPost, "/slack/actions", "nothing=here")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	configured := false
	r := newRouter(Deps{
		Env: "dev",
		Readiness: []ReadinessProbe{
			{Name: "zoom_hook", Configured: func() bool { return configured }},
			{Name: "slack", Configured: func() bool { return false }},
		},
	})

	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var health HealthCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "dev", health.Env)

	w = do(r, http.MethodGet, "/readiness", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	configured = true
	w = do(r, http.MethodGet, "/readiness", "")
	assert.Equal(t, http.StatusOK, w.Code)
	var ready ReadinessCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ready))
	assert.True(t, ready.Ready)
	assert.Equal(t, []ReadinessCheck{{Name: "zoom_hook", Status: "ok"}, {Name: "slack", Status: "unconfigured"}}, ready.Checks)
}
