// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package contest

import "strings"

// Platform is the slug of the platform a game was played on.
type Platform string

const (
	PlatformXbox360        Platform = "xbox-360"
	PlatformXboxOne        Platform = "xbox-one"
	PlatformXboxSeries     Platform = "xbox-series-x|s"
	PlatformWindows        Platform = "windows"
	PlatformAndroid        Platform = "android"
	PlatformIOS            Platform = "ios"
	PlatformNintendoSwitch Platform = "nintendo-switch"
	PlatformWeb            Platform = "web"
)

var knownPlatforms = map[Platform]struct{}{
	PlatformXbox360:        {},
	PlatformXboxOne:        {},
	PlatformXboxSeries:     {},
	PlatformWindows:        {},
	PlatformAndroid:        {},
	PlatformIOS:            {},
	PlatformNintendoSwitch: {},
	PlatformWeb:            {},
}

// platformAliases maps tokens that name a known platform under another label.
var platformAliases = map[string]Platform{
	"xbox-360-(backwards-compatible)": PlatformXbox360,
	"xbox-series-x":                   PlatformXboxSeries,
	"pc":                              PlatformWindows,
}

// ParsePlatform resolves a platform label or slug. Labels are lowercased and
// spaces become hyphens before lookup, so "Xbox 360" and "xbox-360" agree.
func ParsePlatform(s string) (Platform, bool) {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
	if p, ok := platformAliases[slug]; ok {
		return p, true
	}
	p := Platform(slug)
	if _, ok := knownPlatforms[p]; ok {
		return p, true
	}
	return "", false
}

// Ownership is the player's ownership status for a game.
type Ownership string

const (
	OwnershipOwned        Ownership = "Owned"
	OwnershipNotOwned     Ownership = "Not owned"
	OwnershipNoLongerHave Ownership = "No longer have"
	OwnershipBorrowed     Ownership = "Borrowed"
	OwnershipRented       Ownership = "Rented"
	OwnershipGamePass     Ownership = "Game Pass"
)

var knownOwnership = []Ownership{
	OwnershipOwned,
	OwnershipNotOwned,
	OwnershipNoLongerHave,
	OwnershipBorrowed,
	OwnershipRented,
	OwnershipGamePass,
}

// ParseOwnership resolves an ownership label case-insensitively.
func ParseOwnership(s string) (Ownership, bool) {
	s = strings.TrimSpace(s)
	for _, o := range knownOwnership {
		if strings.EqualFold(string(o), s) {
			return o, true
		}
	}
	return "", false
}
