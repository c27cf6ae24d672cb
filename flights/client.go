// Package flights answers "what is flying over me right now" with data from
// the OpenSky Network.
package flights

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultAPIBase = "https://opensky-network.org"
	defaultAuthURL = "https://auth.opensky-network.org/auth/realms/opensky-network/protocol/openid-connect/token"
)

// Client talks to the OpenSky Network API using OAuth2 client credentials.
type Client struct {
	// APIBase and AuthURL are overridable for tests.
	APIBase    string
	AuthURL    string
	HTTPClient *http.Client

	clientID     string
	clientSecret string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
	// metadata lookups are one API call per unique airframe, so cache them
	metaCache map[string]string
}

// New returns a Client authenticating with the given OpenSky credentials.
func New(clientID, clientSecret string) *Client {
	return &Client{
		APIBase:      defaultAPIBase,
		AuthURL:      defaultAuthURL,
		HTTPClient:   &http.Client{Timeout: 15 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		metaCache:    make(map[string]string),
	}
}

// State is one aircraft state vector. Pointer fields are nil when OpenSky
// reported null.
type State struct {
	ICAO24        string
	Callsign      string
	OriginCountry string
	LastContact   int64
	Longitude     *float64
	Latitude      *float64
	BaroAltitudeM *float64
	OnGround      bool
	VelocityMPS   *float64
	HeadingDeg    *float64
	Category      *int
}

// accessToken returns a cached OAuth2 token, fetching a fresh one when the
// cached token is within a minute of its expiry. OpenSky tokens live 30
// minutes.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Until(c.tokenExp) > time.Minute {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting OpenSky access token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenSky auth returned status %d: check flight_id and flight_secret", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding OpenSky token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("OpenSky auth response had no access token")
	}

	c.token = body.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return c.token, nil
}

// StatesWithin fetches all state vectors inside a square bounding box of
// radiusKm around lat/lon.
func (c *Client) StatesWithin(ctx context.Context, lat, lon, radiusKm float64) ([]State, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	minLat, maxLat, minLon, maxLon := boundingBox(lat, lon, radiusKm)
	q := url.Values{
		"lamin": {fmt.Sprintf("%f", minLat)},
		"lamax": {fmt.Sprintf("%f", maxLat)},
		"lomin": {fmt.Sprintf("%f", minLon)},
		"lomax": {fmt.Sprintf("%f", maxLon)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBase+"/api/states/all?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching flight data: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("OpenSky returned 401 Unauthorized: the access token may be invalid or expired (tokens time out after 30 minutes)")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenSky returned status %d", resp.StatusCode)
	}

	var body struct {
		States [][]json.RawMessage `json:"states"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding OpenSky states response: %w", err)
	}

	states := make([]State, 0, len(body.States))
	for _, raw := range body.States {
		states = append(states, parseState(raw))
	}
	return states, nil
}

// parseState reads the positional fields of a state vector. The category
// code at index 17 is only present on extended responses.
func parseState(raw []json.RawMessage) State {
	s := State{
		ICAO24:        rawString(raw, 0),
		Callsign:      strings.TrimSpace(rawString(raw, 1)),
		OriginCountry: rawString(raw, 2),
		Longitude:     rawFloat(raw, 5),
		Latitude:      rawFloat(raw, 6),
		BaroAltitudeM: rawFloat(raw, 7),
		VelocityMPS:   rawFloat(raw, 9),
		HeadingDeg:    rawFloat(raw, 10),
	}
	if v := rawFloat(raw, 4); v != nil {
		s.LastContact = int64(*v)
	}
	if len(raw) > 8 {
		var b bool
		if json.Unmarshal(raw[8], &b) == nil {
			s.OnGround = b
		}
	}
	if v := rawFloat(raw, 17); v != nil {
		code := int(*v)
		s.Category = &code
	}
	return s
}

func rawString(raw []json.RawMessage, i int) string {
	if i >= len(raw) {
		return ""
	}
	var s string
	if json.Unmarshal(raw[i], &s) != nil {
		return ""
	}
	return s
}

func rawFloat(raw []json.RawMessage, i int) *float64 {
	if i >= len(raw) {
		return nil
	}
	var f float64
	if json.Unmarshal(raw[i], &f) != nil {
		return nil
	}
	return &f
}

// Metadata returns "manufacturer model" for an airframe from the public
// OpenSky aircraft database, which needs no authentication. Lookups are
// cached for the client's lifetime.
func (c *Client) Metadata(ctx context.Context, icao24 string) string {
	c.mu.Lock()
	if cached, ok := c.metaCache[icao24]; ok {
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	result := c.fetchMetadata(ctx, icao24)

	c.mu.Lock()
	c.metaCache[icao24] = result
	c.mu.Unlock()
	return result
}

func (c *Client) fetchMetadata(ctx context.Context, icao24 string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBase+"/api/metadata/aircraft/icao/"+url.PathEscape(icao24), nil)
	if err != nil {
		return "Metadata N/A"
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "Metadata N/A"
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "Unknown Model"
	}
	if resp.StatusCode != http.StatusOK {
		return "Metadata N/A"
	}

	var meta struct {
		ManufacturerName string `json:"manufacturerName"`
		Model            string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "Metadata N/A"
	}
	name := strings.TrimSpace(strings.TrimSpace(meta.ManufacturerName) + " " + strings.TrimSpace(meta.Model))
	if name == "" {
		return "Unknown Model"
	}
	return name
}

// Destination returns the estimated arrival airport for an airframe, looking
// in a 12-hour window either side of its last contact. Failures read as
// "N/A"; a missing destination must not stop the report.
func (c *Client) Destination(ctx context.Context, icao24 string, lastContact int64) string {
	const window = 43200 // 12 hours in seconds
	q := url.Values{
		"icao24": {icao24},
		"begin":  {fmt.Sprintf("%d", lastContact-window)},
		"end":    {fmt.Sprintf("%d", lastContact+window)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBase+"/api/flights/aircraft?"+q.Encode(), nil)
	if err != nil {
		return "N/A"
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "N/A"
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "N/A"
	}

	var legs []struct {
		EstArrivalAirport string `json:"estArrivalAirport"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&legs); err != nil || len(legs) == 0 {
		return "N/A"
	}
	if dest := legs[len(legs)-1].EstArrivalAirport; dest != "" {
		return dest
	}
	return "N/A"
}
