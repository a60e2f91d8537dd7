package ephem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// HorizonsAPIURL is the JPL Horizons JSON API endpoint.
	HorizonsAPIURL = "https://ssd.jpl.nasa.gov/api/horizons.api"

	// RequestTimeout is the HTTP request timeout.
	RequestTimeout = 30 * time.Second

	// DefaultRequestInterval spaces consecutive Horizons queries.
	DefaultRequestInterval = 250 * time.Millisecond
)

// HorizonsClient builds snapshots from heliocentric ecliptic state vectors.
type HorizonsClient struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	targets []TargetInfo
	now     func() time.Time
}

// HorizonsOption configures a HorizonsClient.
type HorizonsOption func(*HorizonsClient)

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(u string) HorizonsOption {
	return func(c *HorizonsClient) {
		c.baseURL = u
	}
}

// WithHorizonsHTTPClient sets a custom HTTP client.
func WithHorizonsHTTPClient(client *http.Client) HorizonsOption {
	return func(c *HorizonsClient) {
		c.client = client
	}
}

// WithRequestInterval sets the minimum spacing between queries.
// Zero disables pacing.
func WithRequestInterval(d time.Duration) HorizonsOption {
	return func(c *HorizonsClient) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithTargets restricts the bodies queried.
func WithTargets(targets []TargetInfo) HorizonsOption {
	return func(c *HorizonsClient) {
		c.targets = targets
	}
}

// WithClock overrides the clock used by Load.
func WithClock(now func() time.Time) HorizonsOption {
	return func(c *HorizonsClient) {
		c.now = now
	}
}

// NewHorizonsClient creates a Horizons client.
func NewHorizonsClient(opts ...HorizonsOption) *HorizonsClient {
	c := &HorizonsClient{
		baseURL: HorizonsAPIURL,
		limiter: rate.NewLimiter(rate.Every(DefaultRequestInterval), 1),
		targets: Targets,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: RequestTimeout}
	}
	return c
}

// Load implements Loader by building a snapshot for today (UTC midnight).
func (c *HorizonsClient) Load(ctx context.Context) (*Snapshot, error) {
	return c.Build(ctx, c.now().UTC().Truncate(24*time.Hour))
}

// Build queries every target for its position at date.
func (c *HorizonsClient) Build(ctx context.Context, date time.Time) (*Snapshot, error) {
	bodies := make(map[string]Point, len(c.targets))
	for _, target := range c.targets {
		p, err := c.Position(ctx, target.NAIFID, date)
		if err != nil {
			return nil, fmt.Errorf("horizons request failed for %s: %w", target.Name, err)
		}
		bodies[target.Name] = p
	}
	return &Snapshot{
		Source:          SourceHorizons,
		GeneratedAt:     c.now().UTC(),
		ValidAt:         date.UTC(),
		CoordinateFrame: FrameHeliocentricAU,
		Bodies:          bodies,
	}, nil
}

// Position returns the heliocentric ecliptic position of target in AU.
func (c *HorizonsClient) Position(ctx context.Context, target TargetID, t time.Time) (Point, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Point{}, err
	}

	reqURL := c.baseURL + "?" + vectorParams(target, t).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Point{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Point{}, fmt.Errorf("horizons vector request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Point{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Point{}, fmt.Errorf("horizons returned status %d: %s", resp.StatusCode, string(body))
	}

	return parseVectorResponse(body)
}

// vectorParams builds a VECTORS query centered on the Sun body center, in
// the ecliptic plane, in AU and days. Values must be single-quoted.
func vectorParams(target TargetID, t time.Time) url.Values {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("COMMAND", fmt.Sprintf("'%d'", target))
	params.Set("OBJ_DATA", "NO")
	params.Set("MAKE_EPHEM", "YES")
	params.Set("EPHEM_TYPE", "VECTORS")
	params.Set("CENTER", "'500@10'")
	params.Set("REF_PLANE", "'ECLIPTIC'")
	params.Set("VEC_TABLE", "'1'")
	params.Set("OUT_UNITS", "'AU-D'")
	params.Set("START_TIME", fmt.Sprintf("'%s'", formatHorizonsDate(t)))
	params.Set("STOP_TIME", fmt.Sprintf("'%s'", formatHorizonsDate(t.Add(24*time.Hour))))
	params.Set("STEP_SIZE", "'1 d'")
	return params
}

// horizonsResponse represents the JSON API response.
type horizonsResponse struct {
	Signature struct {
		Version string `json:"version"`
		Source  string `json:"source"`
	} `json:"signature"`
	Result string `json:"result"`
	Error  string `json:"error"`
}

// parseVectorResponse extracts the first position from a JSON response.
func parseVectorResponse(body []byte) (Point, error) {
	var resp horizonsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Point{}, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if resp.Error != "" {
		return Point{}, fmt.Errorf("horizons error: %s", strings.TrimSpace(resp.Error))
	}
	return parseVectorTable(resp.Result)
}

// parseVectorTable finds the first position row between the $$SOE and
// $$EOE markers. Rows look like:
//
//	2460310.500000000 = A.D. 2024-Jan-01 00:00:00.0000 TDB
//	 X =-1.684585471473582E-01 Y = 9.687298612786372E-01 Z =-6.155744101017007E-05
func parseVectorTable(result string) (Point, error) {
	soeIdx := strings.Index(result, "$$SOE")
	eoeIdx := strings.Index(result, "$$EOE")
	if soeIdx == -1 || eoeIdx == -1 || soeIdx >= eoeIdx {
		return Point{}, fmt.Errorf("could not find vector data markers")
	}

	for _, line := range strings.Split(result[soeIdx+5:eoeIdx], "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "X =") || strings.HasPrefix(line, "X=") {
			return parseVectorLabeled(line)
		}
	}
	return Point{}, fmt.Errorf("could not parse vector data")
}

// parseVectorLabeled parses: X = 1.23E+00 Y =-2.34E+00 Z = 3.45E-01
func parseVectorLabeled(line string) (Point, error) {
	parts := strings.Split(line, "=")
	if len(parts) < 4 {
		return Point{}, fmt.Errorf("invalid labeled format")
	}

	var vals [3]float64
	for i := 0; i < 3; i++ {
		fields := strings.Fields(parts[i+1])
		if len(fields) == 0 {
			return Point{}, fmt.Errorf("missing value %d", i)
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return Point{}, err
		}
		vals[i] = v
	}
	return Point{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// formatHorizonsDate formats a date for the Horizons API.
func formatHorizonsDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
