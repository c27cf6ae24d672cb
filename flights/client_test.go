package flights

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStates has one nearby jet, one distant helicopter, and one aircraft on
// the ground. Center of the test box is downtown Toronto.
const testStates = `{"time": 1700000000, "states": [
	["def456", "HELI1   ", "Canada", 1700000000, 1700000000, -80.0, 44.2, 500.0, false, 50.0, 180.0, null, null, null, null, false, 0, 8],
	["abc123", "ACA101  ", "Canada", 1700000000, 1700000000, -79.40, 43.70, 3000.0, false, 200.0, 90.0, null, null, null, null, false, 0, 4],
	["ghi789", "GND1    ", "Canada", 1700000000, 1700000000, -79.39, 43.68, null, true, 0.0, 0.0, null, null, null, null, false, 0, 2]
]}`

func newTestClient(t *testing.T, statesBody string, statusCode int) (*Client, *atomic.Int32) {
	t.Helper()

	var tokenRequests atomic.Int32
	auth := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "test-id", r.Form.Get("client_id"))
		assert.Equal(t, "test-secret", r.Form.Get("client_secret"))
		fmt.Fprint(w, `{"access_token": "test-token", "expires_in": 1800}`)
	}))
	t.Cleanup(auth.Close)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/states/all"):
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			for _, param := range []string{"lamin", "lamax", "lomin", "lomax"} {
				assert.NotEmpty(t, r.URL.Query().Get(param), "missing %s", param)
			}
			w.WriteHeader(statusCode)
			fmt.Fprint(w, statesBody)
		case strings.HasPrefix(r.URL.Path, "/api/metadata/aircraft/icao/def456"):
			fmt.Fprint(w, `{"manufacturerName": "Airbus", "model": "H125"}`)
		case strings.HasPrefix(r.URL.Path, "/api/metadata/aircraft/icao/"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasPrefix(r.URL.Path, "/api/flights/aircraft"):
			fmt.Fprint(w, `[{"estArrivalAirport": "CYUL"}, {"estArrivalAirport": "CYYZ"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(api.Close)

	c := New("test-id", "test-secret")
	c.AuthURL = auth.URL
	c.APIBase = api.URL
	return c, &tokenRequests
}

func TestStatesWithin(t *testing.T) {
	c, _ := newTestClient(t, testStates, http.StatusOK)

	states, err := c.StatesWithin(context.Background(), 43.6532, -79.3832, 50)
	require.NoError(t, err)
	require.Len(t, states, 3)

	jet := states[1]
	assert.Equal(t, "abc123", jet.ICAO24)
	assert.Equal(t, "ACA101", jet.Callsign)
	assert.Equal(t, "Canada", jet.OriginCountry)
	assert.False(t, jet.OnGround)
	require.NotNil(t, jet.BaroAltitudeM)
	assert.Equal(t, 3000.0, *jet.BaroAltitudeM)
	require.NotNil(t, jet.Category)
	assert.Equal(t, 4, *jet.Category)

	ground := states[2]
	assert.True(t, ground.OnGround)
	assert.Nil(t, ground.BaroAltitudeM)
}

func TestTokenIsCached(t *testing.T) {
	c, tokenRequests := newTestClient(t, testStates, http.StatusOK)

	_, err := c.StatesWithin(context.Background(), 43.6532, -79.3832, 50)
	require.NoError(t, err)
	_, err = c.StatesWithin(context.Background(), 43.6532, -79.3832, 50)
	require.NoError(t, err)

	assert.Equal(t, int32(1), tokenRequests.Load())
}

func TestStatesUnauthorized(t *testing.T) {
	c, _ := newTestClient(t, `{}`, http.StatusUnauthorized)

	_, err := c.StatesWithin(context.Background(), 43.6532, -79.3832, 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "30 minutes")
}

func TestReport(t *testing.T) {
	c, _ := newTestClient(t, testStates, http.StatusOK)

	report, err := c.Report(context.Background(), 43.6532, -79.3832, 50)
	require.NoError(t, err)

	assert.Contains(t, report, "Total airborne flights found: 2")
	assert.Contains(t, report, "ACA101")
	assert.Contains(t, report, "HELI1")
	assert.NotContains(t, report, "GND1") // on the ground

	// Nearest first: the jet over the city before the helicopter near Barrie.
	assert.Less(t, strings.Index(report, "ACA101"), strings.Index(report, "HELI1"))

	assert.Contains(t, report, "Airbus H125")  // metadata hit
	assert.Contains(t, report, "Unknown Model") // metadata 404
	assert.Contains(t, report, "🚁")
	assert.Contains(t, report, "✈️")
	assert.Contains(t, report, "Speed: 720 km/h")
	assert.Contains(t, report, "Altitude: 9843 feet")
}

func TestReportEmptySky(t *testing.T) {
	c, _ := newTestClient(t, `{"time": 1700000000, "states": []}`, http.StatusOK)

	report, err := c.Report(context.Background(), 43.6532, -79.3832, 25)
	require.NoError(t, err)
	assert.Contains(t, report, "No flight information found within 25 km radius")
}

func TestReportAllOnGround(t *testing.T) {
	grounded := `{"time": 1700000000, "states": [
		["ghi789", "GND1    ", "Canada", 1700000000, 1700000000, -79.39, 43.68, null, true, 0.0, 0.0, null, null, null, null, false, 0, 2]
	]}`
	c, _ := newTestClient(t, grounded, http.StatusOK)

	report, err := c.Report(context.Background(), 43.6532, -79.3832, 25)
	require.NoError(t, err)
	assert.Contains(t, report, "No airborne flight information found within 25 km radius")
}

func TestMetadataIsCached(t *testing.T) {
	var metaRequests atomic.Int32
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metaRequests.Add(1)
		fmt.Fprint(w, `{"manufacturerName": "Boeing", "model": "737-800"}`)
	}))
	t.Cleanup(api.Close)

	c := New("id", "secret")
	c.APIBase = api.URL

	ctx := context.Background()
	assert.Equal(t, "Boeing 737-800", c.Metadata(ctx, "abc123"))
	assert.Equal(t, "Boeing 737-800", c.Metadata(ctx, "abc123"))
	assert.Equal(t, int32(1), metaRequests.Load())
}

func TestDestination(t *testing.T) {
	c, _ := newTestClient(t, testStates, http.StatusOK)

	dest := c.Destination(context.Background(), "abc123", 1700000000)
	assert.Equal(t, "CYYZ", dest)
}

func TestDestinationFailureReadsNA(t *testing.T) {
	c := New("id", "secret")
	c.APIBase = "http://127.0.0.1:0" // nothing listening

	assert.Equal(t, "N/A", c.Destination(context.Background(), "abc123", 1700000000))
}
