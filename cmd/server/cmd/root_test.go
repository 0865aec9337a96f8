package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	out := &bytes.Buffer{}
	versionCmd.SetOut(out)
	versionCmd.Run(versionCmd, nil)

	require.Contains(t, out.String(), "GatherHub Server")
	require.Contains(t, out.String(), "Version:")
}

func TestHealthcheckCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	healthcheckURL = server.URL
	defer func() { healthcheckURL = "" }()

	out := &bytes.Buffer{}
	healthcheckCmd.SetOut(out)
	require.NoError(t, runHealthcheck(healthcheckCmd, nil))
	require.Contains(t, out.String(), "healthy")
}

func TestHealthcheckCommandUnhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	healthcheckURL = server.URL
	defer func() { healthcheckURL = "" }()

	require.Error(t, runHealthcheck(healthcheckCmd, nil))
}
