// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package fees

import (
	"errors"
	"math"
	"math/bits"

	"github.com/soulboard/ledger/pkg/campaign"
	"github.com/soulboard/ledger/pkg/ids"
	"github.com/soulboard/ledger/pkg/log"
	"github.com/soulboard/ledger/pkg/provider"
)

var (
	ErrNoViews                = errors.New("no views recorded")
	ErrInsufficientBudget     = errors.New("insufficient budget")
	ErrFeesAlreadyDistributed = errors.New("fees already distributed")
	ErrNoEarningsToWithdraw   = errors.New("no earnings to withdraw")
	ErrProviderNotInCampaign  = errors.New("provider not in campaign")
	ErrCalculation            = errors.New("fee calculation overflow")
	ErrMissingDirectory       = errors.New("provider directory not found")
)

// Transferrer is the host ledger's value-transfer primitive. Transfers are
// fire-and-forget within the same atomic unit as the state change that
// authorizes them.
type Transferrer interface {
	Transfer(from, to ids.Address, amount uint64) error
}

// NoopTransferrer satisfies Transferrer without moving value; used when the
// host transfer hook is not wired.
type NoopTransferrer struct{}

// Transfer implements Transferrer
func (NoopTransferrer) Transfer(from, to ids.Address, amount uint64) error { return nil }

// Engine computes and applies the budget split for completed campaigns:
// a flat base fee per booked location, the accrued platform cut off the
// top, and the remaining pool divided proportionally by measured views.
type Engine struct {
	log log.Logger
}

// NewEngine creates a fee engine
func NewEngine(logger log.Logger) *Engine {
	return &Engine{log: logger}
}

// Payout is one provider's share of a campaign's budget
type Payout struct {
	Provider       ids.Address `json:"provider"`
	DeviceID       uint32      `json:"device_id"`
	Views          uint64      `json:"views"`
	BaseFee        uint64      `json:"base_fee"`
	PerformanceFee uint64      `json:"performance_fee"`
	Total          uint64      `json:"total"`
}

// Statement is the full breakdown of one campaign's distribution
type Statement struct {
	CampaignID         uint32   `json:"campaign_id"`
	BaseFeePerProvider uint64   `json:"base_fee_per_provider"`
	TotalBaseFees      uint64   `json:"total_base_fees"`
	PlatformFee        uint64   `json:"platform_fee"`
	DistributionPool   uint64   `json:"distribution_pool"`
	TotalViews         uint64   `json:"total_views"`
	Payouts            []Payout `json:"payouts"`
	TotalDistributed   uint64   `json:"total_distributed"`
	Remainder          uint64   `json:"remainder"`
}

// Calculate computes the distribution for a completed campaign without
// mutating any state.
//
// payout_i = baseFeePerProvider + floor(pool * views_i / totalViews)
//
// Distribution weights strictly by views; taps are carried on the records
// but carry no weight. Integer truncation can leave part of the pool
// undistributed; that remainder is reported explicitly and stays with the
// campaign rather than leaking.
func (e *Engine) Calculate(c *campaign.Campaign) (*Statement, error) {
	if c.Status != campaign.StatusCompleted {
		return nil, campaign.ErrCampaignNotCompleted
	}

	totalViews, err := c.TotalViews()
	if err != nil {
		return nil, ErrCalculation
	}
	if totalViews == 0 {
		return nil, ErrNoViews
	}

	totalHours := uint64(c.RunningDays) * uint64(c.HoursPerDay)
	baseFeePerProvider, ok := checkedMul(c.BaseFeePerHour, totalHours)
	if !ok {
		return nil, ErrCalculation
	}
	totalBaseFees, ok := checkedMul(baseFeePerProvider, uint64(len(c.Locations)))
	if !ok {
		return nil, ErrCalculation
	}
	required, ok := checkedAdd(totalBaseFees, c.PlatformFee)
	if !ok {
		return nil, ErrCalculation
	}
	if c.Budget < required {
		return nil, ErrInsufficientBudget
	}
	pool := c.Budget - required

	st := &Statement{
		CampaignID:         c.CampaignID,
		BaseFeePerProvider: baseFeePerProvider,
		TotalBaseFees:      totalBaseFees,
		PlatformFee:        c.PlatformFee,
		DistributionPool:   pool,
		TotalViews:         totalViews,
		Payouts:            make([]Payout, 0, len(c.Performance)),
	}

	var distributed, distributedShares uint64
	for i := range c.Performance {
		rec := &c.Performance[i]

		// floor(pool * views / totalViews) via a 128-bit intermediate.
		// TotalViews returned without wrapping, so views <= totalViews
		// and the quotient never exceeds pool.
		hi, lo := bits.Mul64(pool, rec.TotalViews)
		share, _ := bits.Div64(hi, lo, totalViews)

		total, ok := checkedAdd(baseFeePerProvider, share)
		if !ok {
			return nil, ErrCalculation
		}

		st.Payouts = append(st.Payouts, Payout{
			Provider:       rec.Provider,
			DeviceID:       rec.DeviceID,
			Views:          rec.TotalViews,
			BaseFee:        baseFeePerProvider,
			PerformanceFee: share,
			Total:          total,
		})
		distributed += total
		distributedShares += share
	}

	st.TotalDistributed = distributed
	st.Remainder = pool - distributedShares
	return st, nil
}

// Distribute calculates the split and applies it: each payout is credited
// to the provider's pending balance, the per-record earnings breakdown is
// written, and the campaign latches FeesDistributed so a re-run cannot
// double-credit providers. dirs must contain a directory for every booked
// provider.
func (e *Engine) Distribute(c *campaign.Campaign, dirs map[ids.Address]*provider.Directory) (*Statement, error) {
	if c.FeesDistributed {
		return nil, ErrFeesAlreadyDistributed
	}

	st, err := e.Calculate(c)
	if err != nil {
		return nil, err
	}

	for i := range st.Payouts {
		p := &st.Payouts[i]
		dir, ok := dirs[p.Provider]
		if !ok {
			return nil, ErrMissingDirectory
		}
		if err := dir.CreditPending(p.Total); err != nil {
			return nil, err
		}

		rec := &c.Performance[i]
		rec.BaseFeeEarned = p.BaseFee
		rec.PerformanceFeeEarned = p.PerformanceFee
		rec.CalculatedEarnings = p.Total
	}

	c.TotalDistributed = st.TotalDistributed
	c.UndistributedRemainder = st.Remainder
	c.FeesDistributed = true

	e.log.Info("fees distributed",
		"campaign", c.CampaignID,
		"providers", len(st.Payouts),
		"distributed", st.TotalDistributed,
		"remainder", st.Remainder)
	return st, nil
}

// Withdraw settles a provider's earned balance for one campaign: the
// un-withdrawn calculated earnings move from pending to total earnings and
// each settled record is latched so the same balance cannot be withdrawn
// twice.
func (e *Engine) Withdraw(c *campaign.Campaign, dir *provider.Directory) (uint64, error) {
	if !c.HasProvider(dir.Authority) {
		return 0, ErrProviderNotInCampaign
	}

	var amount uint64
	for i := range c.Performance {
		rec := &c.Performance[i]
		if rec.Provider != dir.Authority || rec.Withdrawn || rec.CalculatedEarnings == 0 {
			continue
		}
		if rec.CalculatedEarnings > math.MaxUint64-amount {
			return 0, ErrCalculation
		}
		amount += rec.CalculatedEarnings
		rec.Withdrawn = true
	}
	if amount == 0 {
		return 0, ErrNoEarningsToWithdraw
	}

	if err := dir.SettlePending(amount); err != nil {
		return 0, err
	}

	e.log.Info("earnings withdrawn",
		"campaign", c.CampaignID,
		"provider", dir.Authority.Short(),
		"amount", amount)
	return amount, nil
}

func checkedMul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxUint64/b {
		return 0, false
	}
	return a * b, true
}

func checkedAdd(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}
