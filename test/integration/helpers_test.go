// Package integration exercises a running bufr-resolve server:
//
//	bufr-resolve serve --definition-path /path/to/wmo
//	BUFR_RESOLVE_URL=http://localhost:8787 go test ./test/integration/...
//
// The suite is skipped when no server answers on the configured address.
package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// testServer holds the base URL of a running server instance for tests.
var testServer string

func init() {
	testServer = os.Getenv("BUFR_RESOLVE_URL")
	if testServer == "" {
		testServer = "http://localhost:8787"
	}
	// Ensure the URL has a scheme.
	if !strings.HasPrefix(testServer, "http://") && !strings.HasPrefix(testServer, "https://") {
		testServer = "http://" + testServer
	}
}

func TestMain(m *testing.M) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(strings.TrimRight(testServer, "/") + "/healthz")
	if err != nil {
		fmt.Printf("skipping integration tests: no server at %s (%v)\n", testServer, err)
		os.Exit(0)
	}
	resp.Body.Close()
	os.Exit(m.Run())
}

// apiURL builds a full URL for the given API path.
func apiURL(path string) string {
	return strings.TrimRight(testServer, "/") + "/v1/" + path
}

// getJSON fetches url, checks the status code and decodes the body.
func getJSON(t *testing.T, url string, wantStatus int, out interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("HTTP error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: expected %d, got %d: %s", url, wantStatus, resp.StatusCode, body)
	}
	if out == nil {
		return
	}
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("GET %s: decode error: %v (%s)", url, err, body)
	}
}

// listSequences returns every sequence id the server knows.
func listSequences(t *testing.T) []string {
	t.Helper()
	var result struct {
		Sequences []string `json:"sequences"`
	}
	getJSON(t, apiURL("sequences"), http.StatusOK, &result)
	if len(result.Sequences) == 0 {
		t.Skip("server has no sequences defined")
	}
	return result.Sequences
}
