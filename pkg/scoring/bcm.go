// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package scoring

import (
	"math"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
)

const (
	// DefaultMaximumGameScore caps the value of a single completion.
	DefaultMaximumGameScore = 1500

	xbox360RatioBoost  = 0.5
	xbox360PointsBoost = 1.5
)

// Engine computes BCM point values.
type Engine struct {
	MaximumGameScore int
}

// NewEngine returns an engine with the given cap, or the default when max <= 0.
func NewEngine(max int) Engine {
	if max <= 0 {
		max = DefaultMaximumGameScore
	}
	return Engine{MaximumGameScore: max}
}

// CalcBcmValue returns the capped point value of a completion. A nil estimate
// has no value and reports ok=false; callers score it as zero. A nil ratio
// counts as 0 after the Xbox 360 boost is applied.
func (e Engine) CalcBcmValue(platform contest.Platform, ratio, estimate *float64) (value int, ok bool) {
	if estimate == nil {
		return 0, false
	}

	is360 := platform == contest.PlatformXbox360

	var r float64
	if ratio != nil {
		r = *ratio
		if is360 {
			r += xbox360RatioBoost
		}
	}

	raw := math.Pow(r, 1.5) * *estimate
	if is360 {
		raw *= xbox360PointsBoost
	}

	if math.IsNaN(raw) || raw <= 0 {
		return 0, true
	}
	if raw >= float64(e.MaximumGameScore) {
		return e.MaximumGameScore, true
	}
	return int(math.Floor(raw)), true
}

// Value scores a completion using its game's site ratio and full estimate.
func (e Engine) Value(c contest.Completion, g contest.Game) int {
	ratio := g.SiteRatio
	v, _ := e.CalcBcmValue(c.Platform, &ratio, g.FullCompletionEstimate)
	return v
}
