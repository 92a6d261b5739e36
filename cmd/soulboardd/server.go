// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/soulboard/ledger/pkg/campaign"
	"github.com/soulboard/ledger/pkg/events"
	"github.com/soulboard/ledger/pkg/fees"
	"github.com/soulboard/ledger/pkg/ids"
	"github.com/soulboard/ledger/pkg/log"
	"github.com/soulboard/ledger/pkg/marketplace"
	"github.com/soulboard/ledger/pkg/metric"
	"github.com/soulboard/ledger/pkg/oracle"
	"github.com/soulboard/ledger/pkg/provider"
)

// authorityHeader carries the hex-encoded signer address. Signature
// verification belongs to the host transaction layer, not this daemon.
const authorityHeader = "X-Soulboard-Authority"

type server struct {
	market  *marketplace.Marketplace
	bus     *events.Bus
	metrics *metric.Metrics
	log     log.Logger

	upgrader websocket.Upgrader
}

func newServer(market *marketplace.Marketplace, bus *events.Bus, metrics *metric.Metrics, logger log.Logger) *server {
	return &server{
		market:  market,
		bus:     bus,
		metrics: metrics,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *server) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/v1/events/ws", s.handleEventStream).Methods(http.MethodGet)

	r.HandleFunc("/v1/registry", s.handleInitRegistry).Methods(http.MethodPost)
	r.HandleFunc("/v1/providers", s.handleRegisterProvider).Methods(http.MethodPost)
	r.HandleFunc("/v1/providers", s.handleListProviders).Methods(http.MethodGet)
	r.HandleFunc("/v1/providers/update", s.handleUpdateProvider).Methods(http.MethodPost)
	r.HandleFunc("/v1/providers/{addr}", s.handleGetProvider).Methods(http.MethodGet)
	r.HandleFunc("/v1/devices", s.handleClaimDevice).Methods(http.MethodPost)

	r.HandleFunc("/v1/feeds", s.handleInitFeed).Methods(http.MethodPost)
	r.HandleFunc("/v1/feeds/{deviceID}", s.handleGetFeed).Methods(http.MethodGet)
	r.HandleFunc("/v1/feeds/{deviceID}/updates", s.handleUpdateFeed).Methods(http.MethodPost)

	r.HandleFunc("/v1/campaigns", s.handleCreateCampaign).Methods(http.MethodPost)
	r.HandleFunc("/v1/campaigns/{advertiser}/{id}", s.handleGetCampaign).Methods(http.MethodGet)
	r.HandleFunc("/v1/campaigns/{id}/budget", s.handleAddBudget).Methods(http.MethodPost)
	r.HandleFunc("/v1/campaigns/{id}/locations", s.handleAddLocation).Methods(http.MethodPost)
	r.HandleFunc("/v1/campaigns/{id}/locations/remove", s.handleRemoveLocation).Methods(http.MethodPost)
	r.HandleFunc("/v1/campaigns/{id}/performance", s.handleUpdatePerformance).Methods(http.MethodPost)
	r.HandleFunc("/v1/campaigns/{id}/complete", s.handleCompleteCampaign).Methods(http.MethodPost)
	r.HandleFunc("/v1/campaigns/{id}/distribute", s.handleDistributeFees).Methods(http.MethodPost)
	r.HandleFunc("/v1/campaigns/{advertiser}/{id}/withdraw", s.handleWithdraw).Methods(http.MethodPost)

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEventStream upgrades to a websocket and forwards ledger events
func (s *server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch, cancel := s.bus.Subscribe()
	defer cancel()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *server) handleInitRegistry(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	s.respond(w, s.market.InitializeRegistry(actor), nil)
}

func (s *server) handleRegisterProvider(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Name         string `json:"name"`
		Location     string `json:"location"`
		ContactEmail string `json:"contact_email"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.market.RegisterProvider(actor, req.Name, req.Location, req.ContactEmail), nil)
}

func (s *server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := s.market.GetAllProviders()
	s.respond(w, err, map[string]interface{}{"providers": providers})
}

func (s *server) handleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req provider.Update
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.market.UpdateProvider(actor, req), nil)
}

func (s *server) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	addr, err := ids.FromString(mux.Vars(r)["addr"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dir, err := s.market.GetProvider(addr)
	s.respond(w, err, dir)
}

func (s *server) handleClaimDevice(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		DeviceID uint32 `json:"device_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.market.ClaimDevice(actor, req.DeviceID), nil)
}

func (s *server) handleInitFeed(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		DeviceID uint32 `json:"device_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.market.InitializeDeviceFeed(actor, req.DeviceID), nil)
}

func (s *server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := pathUint32(w, r, "deviceID")
	if !ok {
		return
	}
	feed, err := s.market.GetDeviceFeed(deviceID)
	s.respond(w, err, feed)
}

func (s *server) handleUpdateFeed(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	deviceID, ok := pathUint32(w, r, "deviceID")
	if !ok {
		return
	}
	var req struct {
		EntryID    uint32 `json:"entry_id"`
		DeltaViews uint64 `json:"delta_views"`
		DeltaTaps  uint64 `json:"delta_taps"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.market.UpdateDeviceFeed(actor, deviceID, req.EntryID, req.DeltaViews, req.DeltaTaps), nil)
}

func (s *server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req struct {
		CampaignID     uint32 `json:"campaign_id"`
		Name           string `json:"name"`
		Description    string `json:"description"`
		RunningDays    uint16 `json:"running_days"`
		HoursPerDay    uint16 `json:"hours_per_day"`
		BaseFeePerHour uint64 `json:"base_fee_per_hour"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.market.CreateCampaign(actor, req.CampaignID, req.Name, req.Description, req.RunningDays, req.HoursPerDay, req.BaseFeePerHour), nil)
}

func (s *server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	advertiser, err := ids.FromString(mux.Vars(r)["advertiser"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, ok := pathUint32(w, r, "id")
	if !ok {
		return
	}
	c, err := s.market.GetCampaign(advertiser, id)
	s.respond(w, err, c)
}

func (s *server) handleAddBudget(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathUint32(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.market.AddBudget(actor, id, req.Amount), nil)
}

type locationRequest struct {
	Provider string `json:"provider"`
	DeviceID uint32 `json:"device_id"`
}

func (s *server) handleAddLocation(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathUint32(w, r, "id")
	if !ok {
		return
	}
	var req locationRequest
	if !decode(w, r, &req) {
		return
	}
	providerAddr, err := ids.FromString(req.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.respond(w, s.market.AddLocation(actor, id, providerAddr, req.DeviceID), nil)
}

func (s *server) handleRemoveLocation(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathUint32(w, r, "id")
	if !ok {
		return
	}
	var req locationRequest
	if !decode(w, r, &req) {
		return
	}
	providerAddr, err := ids.FromString(req.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.respond(w, s.market.RemoveLocation(actor, id, providerAddr, req.DeviceID), nil)
}

func (s *server) handleUpdatePerformance(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathUint32(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		DeviceID uint32 `json:"device_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.respond(w, s.market.UpdateCampaignPerformance(actor, id, req.DeviceID), nil)
}

func (s *server) handleCompleteCampaign(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathUint32(w, r, "id")
	if !ok {
		return
	}
	s.respond(w, s.market.CompleteCampaign(actor, id), nil)
}

func (s *server) handleDistributeFees(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathUint32(w, r, "id")
	if !ok {
		return
	}
	st, err := s.market.CalculateAndDistributeFees(actor, id)
	if err != nil {
		s.respond(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, st.Report())
}

func (s *server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	advertiser, err := ids.FromString(mux.Vars(r)["advertiser"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, ok := pathUint32(w, r, "id")
	if !ok {
		return
	}
	amount, err := s.market.WithdrawEarnings(actor, advertiser, id)
	if err != nil {
		s.respond(w, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"amount":         amount,
		"amount_decimal": fees.ToDecimal(amount),
	})
}

// actor extracts the signer address from the authority header
func (s *server) actor(w http.ResponseWriter, r *http.Request) (ids.Address, bool) {
	raw := r.Header.Get(authorityHeader)
	if raw == "" {
		writeError(w, http.StatusUnauthorized, errors.New("missing authority header"))
		return ids.Address{}, false
	}
	addr, err := ids.FromString(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return ids.Address{}, false
	}
	return addr, true
}

// respond maps ledger errors onto HTTP statuses
func (s *server) respond(w http.ResponseWriter, err error, body interface{}) {
	if err == nil {
		if body == nil {
			body = map[string]string{"status": "ok"}
		}
		writeJSON(w, http.StatusOK, body)
		return
	}
	writeError(w, statusFor(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, provider.ErrProviderNotFound),
		errors.Is(err, campaign.ErrCampaignNotFound),
		errors.Is(err, oracle.ErrFeedNotFound),
		errors.Is(err, provider.ErrDeviceNotFound),
		errors.Is(err, campaign.ErrDeviceNotFound):
		return http.StatusNotFound
	case errors.Is(err, marketplace.ErrRegistryInitialized),
		errors.Is(err, provider.ErrProviderExists),
		errors.Is(err, provider.ErrDeviceAlreadyClaimed),
		errors.Is(err, campaign.ErrCampaignExists),
		errors.Is(err, oracle.ErrFeedExists),
		errors.Is(err, provider.ErrDeviceNotAvailable),
		errors.Is(err, provider.ErrDeviceNotBooked),
		errors.Is(err, campaign.ErrCampaignNotActive),
		errors.Is(err, campaign.ErrCampaignNotCompleted),
		errors.Is(err, fees.ErrFeesAlreadyDistributed):
		return http.StatusConflict
	case errors.Is(err, oracle.ErrBadAuthority):
		return http.StatusForbidden
	case errors.Is(err, oracle.ErrNoNewData),
		errors.Is(err, fees.ErrNoViews),
		errors.Is(err, fees.ErrInsufficientBudget),
		errors.Is(err, fees.ErrNoEarningsToWithdraw),
		errors.Is(err, fees.ErrProviderNotInCampaign):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func pathUint32(w http.ResponseWriter, r *http.Request, name string) (uint32, bool) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return 0, false
	}
	return uint32(v), true
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
