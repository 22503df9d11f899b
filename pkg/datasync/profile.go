// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package datasync

import (
	"strings"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/source"
)

var profiles = []contest.SyncProfile{
	contest.SyncProfileFull,
	contest.SyncProfileCustom,
	contest.SyncProfileLastMonthsCompleted,
	contest.SyncProfileIncompleteOnly,
}

// ParseProfile resolves a profile name case-insensitively.
func ParseProfile(name string) (contest.SyncProfile, error) {
	for _, p := range profiles {
		if strings.EqualFold(string(p), strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return "", contest.InvalidStatef("unknown sync profile %q", name)
}

// ProfileOptions returns the fetch options of a profile. Custom requires
// caller-supplied options.
func ProfileOptions(profile contest.SyncProfile, now time.Time, custom *source.Options) (source.Options, error) {
	switch profile {
	case contest.SyncProfileFull:
		return source.Options{CompletionStatus: source.CompletionAll}, nil

	case contest.SyncProfileCustom:
		if custom == nil {
			return source.Options{}, contest.InvalidStatef("custom sync profile needs options")
		}
		return *custom, nil

	case contest.SyncProfileLastMonthsCompleted:
		cutoff := lastMonthsCutoff(now)
		return source.Options{
			CompletionStatus: source.CompletionAll,
			UnlockCutoff:     &cutoff,
			ContestStatus:    source.ContestAll,
			Timezone:         source.TimezoneEST,
		}, nil

	case contest.SyncProfileIncompleteOnly:
		return source.Options{CompletionStatus: source.CompletionIncomplete}, nil
	}
	return source.Options{}, contest.InvalidStatef("unknown sync profile %q", profile)
}

// lastMonthsCutoff is the last day of the month before the previous month.
func lastMonthsCutoff(now time.Time) time.Time {
	y, m, _ := now.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, -1)
}

// SelectPlayers narrows the roster for a profile. Full and IncompleteOnly
// only pick players that were never synced.
func SelectPlayers(profile contest.SyncProfile, players []contest.Player) []contest.Player {
	switch profile {
	case contest.SyncProfileFull, contest.SyncProfileIncompleteOnly:
		var out []contest.Player
		for _, p := range players {
			if p.LastSync == nil {
				out = append(out, p)
			}
		}
		return out
	}
	return players
}
