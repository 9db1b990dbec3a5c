package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/alphatex-go"
)

const sampleText = `\tempo 60 . \track "Lead" \staff {score} :4 c4 d4 | r e4`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(newHandler(alphatex.NewTranslator(), []string{"*"}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestTranslateJSON(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/translate", "text/plain", strings.NewReader(sampleText))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body struct {
		Pitches []struct {
			MIDIValue int     `json:"midiValue"`
			Duration  float64 `json:"duration"`
		} `json:"pitches"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Pitches, 4)
	assert.Equal(t, 60, body.Pitches[0].MIDIValue)
	assert.Equal(t, -1, body.Pitches[2].MIDIValue)
	assert.InDelta(t, 4.0, body.Pitches[3].Duration, 1e-9)
}

func TestTranslateMIDI(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/translate?format=midi", "text/plain", strings.NewReader(sampleText))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/midi", resp.Header.Get("Content-Type"))

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	s, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Len(t, s.Tracks, 2)
}

func TestTranslateRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		query  string
		body   string
		status int
		line   int
	}{
		{"unknown format", "?format=xml", sampleText, http.StatusBadRequest, 0},
		{"syntax error", "", "\\title x\n\\track a", http.StatusBadRequest, 2},
		{"missing duration", "", ". \\track a \\staff {score} c4", http.StatusBadRequest, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/translate"+tt.query, "text/plain", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			var body errorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.line, body.Line)
		})
	}
}

func TestTranslateRequiresPost(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/translate")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/translate", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
