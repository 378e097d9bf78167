package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbox/pkg/chattypes"
)

func newTestChatAPI(t *testing.T, handler http.HandlerFunc) (*ChatAPIService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	service := NewChatAPIService(server.URL+"/api/", nil)
	require.NoError(t, service.Initialize())
	return service, server
}

func TestNewChatAPIService(t *testing.T) {
	service := NewChatAPIService("http://localhost:3001/api/", nil)
	assert.Equal(t, "chat_api", service.Name())
	assert.Equal(t, "http://localhost:3001/api", service.BaseURL())
	assert.Equal(t, DefaultRequestTimeout, service.timeout)
	assert.False(t, service.initialized)
	assert.Nil(t, service.client)
}

func TestChatAPIService_Initialize(t *testing.T) {
	service := NewChatAPIService("", nil)
	assert.Error(t, service.Initialize())

	service = NewChatAPIService("http://localhost:3001/api", nil)
	require.NoError(t, service.Initialize())
	assert.True(t, service.initialized)
	assert.Equal(t, DefaultRequestTimeout, service.client.Timeout)
}

func TestChatAPIService_SetTimeout(t *testing.T) {
	service := NewChatAPIService("http://localhost:3001/api", nil)
	service.SetTimeout(5 * time.Second)
	assert.Equal(t, 5*time.Second, service.timeout)

	require.NoError(t, service.Initialize())
	assert.Equal(t, 5*time.Second, service.client.Timeout)

	service.SetTimeout(time.Second)
	assert.Equal(t, time.Second, service.client.Timeout)
}

func TestChatAPIService_SendChat_NotInitialized(t *testing.T) {
	service := NewChatAPIService("http://localhost:3001/api", nil)
	_, err := service.SendChat(context.Background(), chattypes.ChatRequest{Message: "hi"})
	assert.EqualError(t, err, "chat api service not initialized")
}

func TestChatAPIService_SendChat_RequestShape(t *testing.T) {
	stamp := time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC)
	var received map[string]interface{}

	service, _ := newTestChatAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "chatbox"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply": "remote says hi"}`))
	})

	reply, err := service.SendChat(context.Background(), chattypes.ChatRequest{
		Message: "hello",
		History: []chattypes.HistoryEntry{{Role: "assistant", Content: "greeting", Timestamp: stamp}},
		ReplyTo: &chattypes.ReplyContext{Sender: chattypes.SenderAssistant, Text: "greeting", Timestamp: stamp},
	})
	require.NoError(t, err)
	assert.Equal(t, "remote says hi", reply)

	assert.Equal(t, "hello", received["message"])
	history := received["history"].([]interface{})
	require.Len(t, history, 1)
	entry := history[0].(map[string]interface{})
	assert.Equal(t, "assistant", entry["role"])
	assert.Equal(t, "greeting", entry["content"])
	assert.Equal(t, "2025-01-01T00:00:01Z", entry["timestamp"])
	replyTo := received["replyTo"].(map[string]interface{})
	assert.Equal(t, "assistant", replyTo["sender"])
	assert.Equal(t, "greeting", replyTo["text"])
}

func TestChatAPIService_SendChat_OmitsReplyToWhenAbsent(t *testing.T) {
	var received map[string]interface{}
	service, _ := newTestChatAPI(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"reply": "ok"}`))
	})

	_, err := service.SendChat(context.Background(), chattypes.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.NotContains(t, received, "replyTo")
}

func TestChatAPIService_SendChat_Responses(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      string
		wantErrIs error
		wantCode  int
	}{
		{name: "reply field", status: 200, body: `{"reply": "from reply"}`, want: "from reply"},
		{name: "message field", status: 200, body: `{"message": "from message"}`, want: "from message"},
		{name: "reply preferred", status: 200, body: `{"reply": "r", "message": "m"}`, want: "r"},
		{name: "created counts as success", status: 201, body: `{"reply": "made"}`, want: "made"},
		{name: "empty object", status: 200, body: `{}`, wantErrIs: ErrMalformedResponse},
		{name: "blank reply", status: 200, body: `{"reply": "  "}`, wantErrIs: ErrMalformedResponse},
		{name: "not json", status: 200, body: `<html>`, wantErrIs: ErrMalformedResponse},
		{name: "wrong type", status: 200, body: `{"reply": 42}`, wantErrIs: ErrMalformedResponse},
		{name: "server error", status: 500, body: `{"reply": "ignored"}`, wantCode: 500},
		{name: "not found", status: 404, body: ``, wantCode: 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _ := newTestChatAPI(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			reply, err := service.SendChat(context.Background(), chattypes.ChatRequest{Message: "hi"})
			switch {
			case tt.wantErrIs != nil:
				assert.ErrorIs(t, err, tt.wantErrIs)
				assert.Empty(t, reply)
			case tt.wantCode != 0:
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, tt.wantCode, statusErr.StatusCode)
				assert.Contains(t, err.Error(), "API error")
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, reply)
			}
		})
	}
}

func TestChatAPIService_SendChat_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	service := NewChatAPIService(url, nil)
	require.NoError(t, service.Initialize())

	_, err := service.SendChat(context.Background(), chattypes.ChatRequest{Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reach chat api")
}

func TestChatAPIService_SendChat_Timeout(t *testing.T) {
	release := make(chan struct{})
	service, _ := newTestChatAPI(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	service.SetTimeout(20 * time.Millisecond)

	_, err := service.SendChat(context.Background(), chattypes.ChatRequest{Message: "hi"})
	assert.Error(t, err)
}

func TestChatAPIService_UsesDebugTransport(t *testing.T) {
	transport := NewDebugTransportService()
	require.NoError(t, transport.Initialize())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply": "captured"}`))
	}))
	defer server.Close()

	service := NewChatAPIService(server.URL, transport)
	require.NoError(t, service.Initialize())

	reply, err := service.SendChat(context.Background(), chattypes.ChatRequest{Message: "trace me"})
	require.NoError(t, err)
	assert.Equal(t, "captured", reply)

	captured := transport.GetCapturedData()
	assert.Contains(t, captured, "trace me")
	assert.Contains(t, captured, `"status_code":200`)
}
