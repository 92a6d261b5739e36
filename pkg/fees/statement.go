// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package fees

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// NativeUnitDecimals is the precision of the host ledger's native unit
const NativeUnitDecimals = 9

// ToDecimal renders a native-unit amount as a decimal value. Ledger math is
// uint64 only; decimals exist for statements, APIs, and logs.
func ToDecimal(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -NativeUnitDecimals)
}

// PayoutReport is the human-readable form of one payout
type PayoutReport struct {
	Provider       string          `json:"provider"`
	DeviceID       uint32          `json:"device_id"`
	Views          uint64          `json:"views"`
	BaseFee        decimal.Decimal `json:"base_fee"`
	PerformanceFee decimal.Decimal `json:"performance_fee"`
	Total          decimal.Decimal `json:"total"`
}

// StatementReport is the human-readable form of a distribution statement
type StatementReport struct {
	CampaignID         uint32          `json:"campaign_id"`
	BaseFeePerProvider decimal.Decimal `json:"base_fee_per_provider"`
	TotalBaseFees      decimal.Decimal `json:"total_base_fees"`
	PlatformFee        decimal.Decimal `json:"platform_fee"`
	DistributionPool   decimal.Decimal `json:"distribution_pool"`
	TotalViews         uint64          `json:"total_views"`
	Payouts            []PayoutReport  `json:"payouts"`
	TotalDistributed   decimal.Decimal `json:"total_distributed"`
	Remainder          decimal.Decimal `json:"remainder"`
}

// Report converts the raw statement into decimal native units
func (s *Statement) Report() *StatementReport {
	r := &StatementReport{
		CampaignID:         s.CampaignID,
		BaseFeePerProvider: ToDecimal(s.BaseFeePerProvider),
		TotalBaseFees:      ToDecimal(s.TotalBaseFees),
		PlatformFee:        ToDecimal(s.PlatformFee),
		DistributionPool:   ToDecimal(s.DistributionPool),
		TotalViews:         s.TotalViews,
		Payouts:            make([]PayoutReport, 0, len(s.Payouts)),
		TotalDistributed:   ToDecimal(s.TotalDistributed),
		Remainder:          ToDecimal(s.Remainder),
	}
	for _, p := range s.Payouts {
		r.Payouts = append(r.Payouts, PayoutReport{
			Provider:       p.Provider.String(),
			DeviceID:       p.DeviceID,
			Views:          p.Views,
			BaseFee:        ToDecimal(p.BaseFee),
			PerformanceFee: ToDecimal(p.PerformanceFee),
			Total:          ToDecimal(p.Total),
		})
	}
	return r
}
