package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCard(url string) AgentCard {
	return AgentCard{
		Name:               "kgraph",
		Description:        "knowledge graph agent",
		URL:                url,
		Version:            "1.0.0",
		Capabilities:       AgentCapabilities{Streaming: true},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Skills:             []AgentSkill{{ID: "query", Name: "Query", Description: "answers questions", Tags: []string{"graph"}}},
	}
}

func TestResolveCard_HappyPath(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/a2a/.well-known/agent-card.json", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(testCard("http://agent.local/a2a/"))
	}))
	defer ts.Close()

	client := NewHTTPClient()
	card, err := client.ResolveCard(context.Background(), ts.URL+"/a2a/")

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "kgraph", card.Name)
	assert.True(t, card.Capabilities.Streaming)
	assert.Equal(t, "http://agent.local/a2a/", card.URL)
	require.Len(t, card.Skills, 1)
	assert.Equal(t, "query", card.Skills[0].ID)
}

func TestResolveCard_CustomPath(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/.well-known/agent.json", r.URL.Path)
		json.NewEncoder(w).Encode(testCard("http://agent.local/"))
	}))
	defer ts.Close()

	client := NewHTTPClient(WithCardPath("/.well-known/agent.json"))
	_, err := client.ResolveCard(context.Background(), ts.URL)
	require.NoError(t, err)
}

func TestResolveCard_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name: "non-200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", http.StatusNotFound)
			},
			wantMsg: "HTTP 404",
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{not json"))
			},
			wantMsg: "decode agent card",
		},
		{
			name: "no name",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"description":"anonymous"}`))
			},
			wantMsg: "no name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			card, err := NewHTTPClient().ResolveCard(context.Background(), ts.URL)
			assert.Nil(t, card)

			var resErr *ResolutionError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, ts.URL+DefaultCardPath, resErr.URL)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestResolveCard_ConnectionRefused(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := NewHTTPClient().ResolveCard(context.Background(), url)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCardURL(t *testing.T) {
	c := NewHTTPClient()
	assert.Equal(t, "http://h/a2a/.well-known/agent-card.json", c.CardURL("http://h/a2a"))
	assert.Equal(t, "http://h/a2a/.well-known/agent-card.json", c.CardURL("http://h/a2a/"))

	c = NewHTTPClient(WithCardPath("agent.json"))
	assert.Equal(t, "http://h/agent.json", c.CardURL("http://h"))
}
