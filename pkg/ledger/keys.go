// Copyright (C) 2025, Soulboard Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"fmt"

	"github.com/soulboard/ledger/pkg/ids"
)

// Record keys are deterministic from stable seeds, mirroring the seed-based
// account addressing of the host chain.
const (
	KeyRegistry = "registry"

	PrefixProvider     = "provider/"
	PrefixProviderMeta = "providermeta/"
	PrefixCampaign     = "campaign/"
	PrefixFeed         = "feed/"
)

// ProviderKey addresses a provider directory by its authority
func ProviderKey(authority ids.Address) string {
	return PrefixProvider + authority.String()
}

// ProviderMetaKey addresses a provider's companion metadata record
func ProviderMetaKey(authority ids.Address) string {
	return PrefixProviderMeta + authority.String()
}

// CampaignKey addresses a campaign by (authority, campaignID)
func CampaignKey(authority ids.Address, campaignID uint32) string {
	return fmt.Sprintf("%s%s/%d", PrefixCampaign, authority, campaignID)
}

// FeedKey addresses a device's oracle feed by device id
func FeedKey(deviceID uint32) string {
	return fmt.Sprintf("%s%d", PrefixFeed, deviceID)
}
