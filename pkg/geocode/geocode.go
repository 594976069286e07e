// Package geocode resolves place names and UK postcodes to coordinates
// using postcodes.io. Results are cached by normalized input; a cache hit
// never re-queries the external source.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"homescout/pkg/model"
	"homescout/pkg/request"
)

// ErrUnresolvableLocation indicates the source returned no match for the
// given place name or postcode.
var ErrUnresolvableLocation = errors.New("unresolvable location")

// Normalized full UK postcode, spaces stripped (e.g. "AL11AA").
var postcodeRe = regexp.MustCompile(`^[A-Z]{1,2}\d[A-Z\d]?\d[A-Z]{2}$`)

// Client resolves locations against postcodes.io.
type Client struct {
	request *request.Client
	policy  request.Policy
	baseURL string
}

// NewClient creates a geocoding client. baseURL overrides the live API,
// mainly for tests; empty means the public postcodes.io instance.
func NewClient(r *request.Client, policy request.Policy, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.postcodes.io"
	}
	return &Client{request: r, policy: policy, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Resolve converts a place name or postcode to a coordinate.
func (c *Client) Resolve(ctx context.Context, placeOrPostcode string) (model.Coordinate, error) {
	input := strings.TrimSpace(placeOrPostcode)
	if input == "" {
		return model.Coordinate{}, fmt.Errorf("%w: empty input", ErrUnresolvableLocation)
	}

	compact := strings.ToUpper(strings.ReplaceAll(input, " ", ""))
	if postcodeRe.MatchString(compact) {
		return c.resolvePostcode(ctx, compact)
	}
	return c.resolvePlace(ctx, input)
}

func (c *Client) resolvePostcode(ctx context.Context, postcode string) (model.Coordinate, error) {
	u := fmt.Sprintf("%s/postcodes/%s", c.baseURL, url.PathEscape(postcode))
	cacheKey := "geocode:postcode:" + strings.ToLower(postcode)

	body, err := c.get(ctx, u, cacheKey)
	if err != nil {
		return model.Coordinate{}, err
	}

	var resp struct {
		Status int `json:"status"`
		Result struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Coordinate{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if resp.Status != 200 {
		return model.Coordinate{}, fmt.Errorf("%w: %s", ErrUnresolvableLocation, postcode)
	}
	return model.Coordinate{Lat: resp.Result.Latitude, Lon: resp.Result.Longitude}, nil
}

func (c *Client) resolvePlace(ctx context.Context, place string) (model.Coordinate, error) {
	q := url.Values{}
	q.Set("q", place)
	q.Set("limit", "1")
	u := fmt.Sprintf("%s/places?%s", c.baseURL, q.Encode())
	cacheKey := "geocode:place:" + strings.ToLower(strings.ReplaceAll(place, " ", "_"))

	body, err := c.get(ctx, u, cacheKey)
	if err != nil {
		return model.Coordinate{}, err
	}

	var resp struct {
		Status int `json:"status"`
		Result []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Coordinate{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if resp.Status != 200 || len(resp.Result) == 0 {
		return model.Coordinate{}, fmt.Errorf("%w: %s", ErrUnresolvableLocation, place)
	}
	return model.Coordinate{Lat: resp.Result[0].Latitude, Lon: resp.Result[0].Longitude}, nil
}

// get wraps the request in the retry policy and maps a 404 to not-found.
func (c *Client) get(ctx context.Context, u, cacheKey string) ([]byte, error) {
	var body []byte
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		body, err = c.request.Get(ctx, u, cacheKey)
		return err
	})
	if err != nil {
		var se *request.StatusError
		if errors.As(err, &se) && se.Code == 404 {
			return nil, fmt.Errorf("%w: no match", ErrUnresolvableLocation)
		}
		return nil, err
	}
	return body, nil
}

// Ping verifies the geocoding API answers, bypassing the cache.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.request.Get(ctx, c.baseURL+"/postcodes/"+url.PathEscape("SW1A 1AA"), "")
	return err
}

// ReverseLookup finds the nearest postcode for a coordinate.
func (c *Client) ReverseLookup(ctx context.Context, coord model.Coordinate) (string, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", coord.Lat))
	q.Set("lon", fmt.Sprintf("%f", coord.Lon))
	q.Set("limit", "1")
	u := fmt.Sprintf("%s/postcodes?%s", c.baseURL, q.Encode())
	cacheKey := fmt.Sprintf("geocode:reverse:%.4f:%.4f", coord.Lat, coord.Lon)

	body, err := c.get(ctx, u, cacheKey)
	if err != nil {
		return "", err
	}

	var resp struct {
		Result []struct {
			Postcode string `json:"postcode"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(resp.Result) == 0 {
		return "", fmt.Errorf("%w: no postcode near %.4f,%.4f", ErrUnresolvableLocation, coord.Lat, coord.Lon)
	}
	return resp.Result[0].Postcode, nil
}
