// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package soulboardsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/soulboard/ledger/pkg/campaign"
	"github.com/soulboard/ledger/pkg/events"
	"github.com/soulboard/ledger/pkg/fees"
	"github.com/soulboard/ledger/pkg/ids"
	"github.com/soulboard/ledger/pkg/oracle"
	"github.com/soulboard/ledger/pkg/provider"
)

// Client talks to a soulboardd daemon. The authority address is attached to
// every mutating call; transaction signing itself happens host-side.
type Client struct {
	baseURL    string
	authority  ids.Address
	httpClient *http.Client
}

// NewClient creates a new client acting as the given authority
func NewClient(baseURL string, authority ids.Address) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authority: authority,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// InitializeRegistry bootstraps the singleton provider registry
func (c *Client) InitializeRegistry(ctx context.Context) error {
	return c.post(ctx, "/v1/registry", nil, nil)
}

// RegisterProvider registers the client's authority as a provider
func (c *Client) RegisterProvider(ctx context.Context, name, location, contactEmail string) error {
	body := map[string]string{"name": name, "location": location, "contact_email": contactEmail}
	return c.post(ctx, "/v1/providers", body, nil)
}

// UpdateProvider updates the caller's descriptive fields
func (c *Client) UpdateProvider(ctx context.Context, update provider.Update) error {
	return c.post(ctx, "/v1/providers/update", update, nil)
}

// ClaimDevice adds a device to the caller's inventory
func (c *Client) ClaimDevice(ctx context.Context, deviceID uint32) error {
	return c.post(ctx, "/v1/devices", map[string]uint32{"device_id": deviceID}, nil)
}

// InitializeDeviceFeed creates the telemetry feed for a device
func (c *Client) InitializeDeviceFeed(ctx context.Context, deviceID uint32) error {
	return c.post(ctx, "/v1/feeds", map[string]uint32{"device_id": deviceID}, nil)
}

// UpdateDeviceFeed pushes one telemetry delta to a device feed
func (c *Client) UpdateDeviceFeed(ctx context.Context, deviceID, entryID uint32, deltaViews, deltaTaps uint64) error {
	body := map[string]uint64{
		"entry_id":    uint64(entryID),
		"delta_views": deltaViews,
		"delta_taps":  deltaTaps,
	}
	return c.post(ctx, fmt.Sprintf("/v1/feeds/%d/updates", deviceID), body, nil)
}

// CreateCampaign creates a campaign under the caller's authority
func (c *Client) CreateCampaign(ctx context.Context, campaignID uint32, name, description string, runningDays, hoursPerDay uint16, baseFeePerHour uint64) error {
	body := map[string]interface{}{
		"campaign_id":       campaignID,
		"name":              name,
		"description":       description,
		"running_days":      runningDays,
		"hours_per_day":     hoursPerDay,
		"base_fee_per_hour": baseFeePerHour,
	}
	return c.post(ctx, "/v1/campaigns", body, nil)
}

// AddBudget funds the caller's campaign
func (c *Client) AddBudget(ctx context.Context, campaignID uint32, amount uint64) error {
	return c.post(ctx, fmt.Sprintf("/v1/campaigns/%d/budget", campaignID), map[string]uint64{"amount": amount}, nil)
}

// AddLocation books a provider's device for the caller's campaign
func (c *Client) AddLocation(ctx context.Context, campaignID uint32, providerAddr ids.Address, deviceID uint32) error {
	body := map[string]interface{}{"provider": providerAddr.String(), "device_id": deviceID}
	return c.post(ctx, fmt.Sprintf("/v1/campaigns/%d/locations", campaignID), body, nil)
}

// RemoveLocation releases a booked device from the caller's campaign
func (c *Client) RemoveLocation(ctx context.Context, campaignID uint32, providerAddr ids.Address, deviceID uint32) error {
	body := map[string]interface{}{"provider": providerAddr.String(), "device_id": deviceID}
	return c.post(ctx, fmt.Sprintf("/v1/campaigns/%d/locations/remove", campaignID), body, nil)
}

// UpdateCampaignPerformance pulls the device feed's totals into the
// caller's campaign
func (c *Client) UpdateCampaignPerformance(ctx context.Context, campaignID, deviceID uint32) error {
	return c.post(ctx, fmt.Sprintf("/v1/campaigns/%d/performance", campaignID), map[string]uint32{"device_id": deviceID}, nil)
}

// CompleteCampaign marks the caller's campaign completed
func (c *Client) CompleteCampaign(ctx context.Context, campaignID uint32) error {
	return c.post(ctx, fmt.Sprintf("/v1/campaigns/%d/complete", campaignID), nil, nil)
}

// CalculateAndDistributeFees runs fee distribution on the caller's
// completed campaign and returns the statement
func (c *Client) CalculateAndDistributeFees(ctx context.Context, campaignID uint32) (*fees.StatementReport, error) {
	var report fees.StatementReport
	if err := c.post(ctx, fmt.Sprintf("/v1/campaigns/%d/distribute", campaignID), nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// WithdrawEarnings settles the caller's earned balance for one campaign
func (c *Client) WithdrawEarnings(ctx context.Context, advertiser ids.Address, campaignID uint32) (uint64, error) {
	var resp struct {
		Amount uint64 `json:"amount"`
	}
	path := fmt.Sprintf("/v1/campaigns/%s/%d/withdraw", advertiser, campaignID)
	if err := c.post(ctx, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Amount, nil
}

// GetAllProviders lists every registered provider authority
func (c *Client) GetAllProviders(ctx context.Context) ([]ids.Address, error) {
	var resp struct {
		Providers []ids.Address `json:"providers"`
	}
	if err := c.get(ctx, "/v1/providers", &resp); err != nil {
		return nil, err
	}
	return resp.Providers, nil
}

// GetProvider fetches a provider's directory
func (c *Client) GetProvider(ctx context.Context, authority ids.Address) (*provider.Directory, error) {
	var dir provider.Directory
	if err := c.get(ctx, "/v1/providers/"+authority.String(), &dir); err != nil {
		return nil, err
	}
	return &dir, nil
}

// GetCampaign fetches a campaign by advertiser and id
func (c *Client) GetCampaign(ctx context.Context, advertiser ids.Address, campaignID uint32) (*campaign.Campaign, error) {
	var camp campaign.Campaign
	if err := c.get(ctx, fmt.Sprintf("/v1/campaigns/%s/%d", advertiser, campaignID), &camp); err != nil {
		return nil, err
	}
	return &camp, nil
}

// GetDeviceFeed fetches a device's oracle feed
func (c *Client) GetDeviceFeed(ctx context.Context, deviceID uint32) (*oracle.DeviceFeed, error) {
	var feed oracle.DeviceFeed
	if err := c.get(ctx, fmt.Sprintf("/v1/feeds/%d", deviceID), &feed); err != nil {
		return nil, err
	}
	return &feed, nil
}

// SubscribeEvents opens a websocket to the daemon's event stream and
// delivers events on the returned channel until ctx is done
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan events.Event, error) {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/v1/events/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}

	ch := make(chan events.Event, 64)
	go func() {
		defer close(ch)
		defer conn.Close()
		for {
			var ev events.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Soulboard-Authority", c.authority.String())

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
