package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/a2abridge/internal/a2a"
	"github.com/dusk-indust/a2abridge/internal/agent"
)

func TestRunCard(t *testing.T) {
	ts := httptest.NewUnstartedServer(nil)
	base := "http://" + ts.Listener.Addr().String() + "/a2a"
	ts.Config.Handler = agent.NewEchoAgent(agent.EchoCard(base+"/", "test"), time.Millisecond).Routes("/a2a")
	ts.Start()
	t.Cleanup(ts.Close)

	t.Setenv("APP_ENV", "test")
	t.Setenv("A2A_CLIENT", base)

	var buf bytes.Buffer
	require.NoError(t, runCard(cliFlags{ConfigDir: t.TempDir()}, &buf))

	var card a2a.AgentCard
	require.NoError(t, json.Unmarshal(buf.Bytes(), &card))
	assert.Equal(t, "echo", card.Name)
	assert.True(t, card.Capabilities.Streaming)
}

func TestRunCard_AgentDown(t *testing.T) {
	ts := httptest.NewServer(nil)
	base := ts.URL
	ts.Close()

	t.Setenv("APP_ENV", "test")
	t.Setenv("A2A_CLIENT", base)

	var buf bytes.Buffer
	assert.Error(t, runCard(cliFlags{ConfigDir: t.TempDir()}, &buf))
	assert.Empty(t, buf.String())
}

func TestRun_Version(t *testing.T) {
	assert.NoError(t, run([]string{"-version"}))
}

func TestRun_UnknownCommand(t *testing.T) {
	assert.Error(t, run([]string{"bogus"}))
}
