package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bnema/chatctl/internal/application"
	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/session"
)

func sampleStatus() application.Status {
	return application.Status{
		Current:      "u-1",
		ConfigStatus: application.ConfigReady,
		Server: &domain.ServerConfig{
			Version:  "0.8.1",
			Features: map[string]bool{"voice": true, "autumn": true, "legacy": false},
		},
		Sessions: []application.SessionStatus{
			{AccountID: "u-1", Name: "alice", UserID: "user-1", State: session.StateOnline, Ready: true, Active: true},
			{AccountID: "u-2", Name: "bob", State: session.StateReady},
		},
	}
}

func TestRenderSessions(t *testing.T) {
	output, err := Render(sampleStatus(), RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "Chat Sessions")
	assert.Contains(t, output, "accounts: 2")
	assert.Contains(t, output, "server: ready v0.8.1")
	assert.Contains(t, output, "alice (u-1)")
	assert.Contains(t, output, "(active)")
	assert.Contains(t, output, "state: online")
	assert.Contains(t, output, "bob (u-2)")
	assert.Contains(t, output, "run retry to reconnect")
	assert.NotContains(t, output, "user-1")
	assert.NotContains(t, output, "features:")
}

func TestRenderVerboseShowsUsersAndFeatures(t *testing.T) {
	output, err := Render(sampleStatus(), RenderOptions{Verbose: true})

	require.NoError(t, err)
	assert.Contains(t, output, "user: user-1")
	assert.Contains(t, output, "features: autumn, voice")
	assert.NotContains(t, output, "legacy")
}

func TestRenderEmptyAndPending(t *testing.T) {
	output, err := Render(application.Status{ConfigStatus: application.ConfigPending}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "accounts: 0")
	assert.Contains(t, output, "server: pending")
	assert.Contains(t, output, "running degraded")
	assert.Contains(t, output, "No accounts signed in.")
}

func TestAccountTitleFallsBackToID(t *testing.T) {
	assert.Equal(t, "u-1", accountTitle(application.SessionStatus{AccountID: "u-1"}))
	assert.Equal(t, "u-1", accountTitle(application.SessionStatus{AccountID: "u-1", Name: "u-1"}))
	assert.Equal(t, "alice (u-1)", accountTitle(application.SessionStatus{AccountID: "u-1", Name: " alice "}))
}

func TestRenderYAML(t *testing.T) {
	status := sampleStatus()
	status.Sessions[0], status.Sessions[1] = status.Sessions[1], status.Sessions[0]

	output, err := RenderYAML(status)
	require.NoError(t, err)

	var doc yamlStatus
	require.NoError(t, yaml.Unmarshal([]byte(output), &doc))
	assert.Equal(t, "u-1", doc.Current)
	assert.Equal(t, yamlServer{Status: "ready", Version: "0.8.1", Features: []string{"autumn", "voice"}}, doc.Server)
	require.Len(t, doc.Sessions, 2)
	assert.Equal(t, yamlSession{ID: "u-1", Name: "alice", UserID: "user-1", State: "Online", Ready: true, Active: true}, doc.Sessions[0])
	assert.Equal(t, "u-2", doc.Sessions[1].ID)
	assert.Contains(t, output, "state: Ready")
}

func TestRenderYAMLWithoutServer(t *testing.T) {
	output, err := RenderYAML(application.Status{ConfigStatus: application.ConfigPending})

	require.NoError(t, err)
	assert.Contains(t, output, "status: pending")
	assert.Contains(t, output, "sessions: []")
	assert.NotContains(t, output, "current")
}
