package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orchestratorx "github.com/tanpawarit/Chative-Banking-Assistant/agent/agents/orchestrator"
	statex "github.com/tanpawarit/Chative-Banking-Assistant/agent/state"
	"github.com/tanpawarit/Chative-Banking-Assistant/agent/tool/bank"
)

func TestChatEndToEnd(t *testing.T) {
	t.Parallel()

	svc := bank.NewService(nil)
	t.Cleanup(func() { _ = svc.Close() })

	o, err := orchestratorx.New(statex.NewManager(), nil, svc, nil, nil, orchestratorx.Config{},
		orchestratorx.WithKeyGenerator(func() string { return "abcdef12-0000-0000-0000-000000000000" }),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(NewHandler(o)))
	t.Cleanup(srv.Close)

	send := func(text string) chatResponse {
		t.Helper()
		body := `{"conversationId":"e2e","text":"` + text + `"}`
		resp, err := srv.Client().Post(srv.URL+"/chat", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out chatResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		return out
	}

	out := send("Block my card ending 1234")
	assert.Equal(t, "You're about to block the card ending ****1234. Proceed? (yes/no)", out.Response)
	assert.Equal(t, map[string]any{"cardLast4": "1234"}, out.Memory)

	out = send("yes")
	assert.Equal(t, "Card ****1234 blocked. Ref: REF-abcdef12.", out.Response)
	assert.Equal(t, "e2e", out.ConversationID)
}

func TestServerRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	srv := NewServer(ServerConfig{Addr: "127.0.0.1:0"}, http.NotFoundHandler())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * shutdownTimeout):
		t.Fatal("server did not stop")
	}
}
