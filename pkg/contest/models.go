// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package contest

import "time"

// Player is a registered contest participant.
type Player struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	Gamertag     string     `gorm:"size:64;not null" json:"gamertag"`
	ExternalID   int        `gorm:"index" json:"externalId"`
	RegisteredAt time.Time  `json:"registeredAt"`
	LastSync     *time.Time `json:"lastSync,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Genre is a tag attached to games.
type Genre struct {
	ID   int    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"size:64" json:"name"`
}

// Game holds canonical game metadata. The ID is the external source's game id.
type Game struct {
	ID                     int        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Title                  string     `gorm:"size:256" json:"title"`
	URL                    *string    `json:"url,omitempty"`
	TrueAchievement        int        `json:"trueAchievement"`
	Gamerscore             int        `json:"gamerscore"`
	AchievementCount       int        `json:"achievementCount"`
	Publisher              string     `json:"publisher"`
	Developer              string     `json:"developer"`
	ReleaseDate            *time.Time `json:"releaseDate,omitempty"`
	GamersWithGame         int        `json:"gamersWithGame"`
	GamersCompleted        int        `json:"gamersCompleted"`
	BaseCompletionEstimate *float64   `json:"baseCompletionEstimate,omitempty"`
	SiteRatio              float64    `json:"siteRatio"`
	SiteRating             float64    `json:"siteRating"`
	Unobtainable           bool       `json:"unobtainable"`
	ServerClosure          *time.Time `json:"serverClosure,omitempty"`
	InstallSize            *float64   `json:"installSize,omitempty"`
	FullCompletionEstimate *float64   `json:"fullCompletionEstimate,omitempty"`
	Genres                 []Genre    `gorm:"many2many:game_genres" json:"genres,omitempty"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// ServerClosed reports whether the game has an announced server closure.
func (g Game) ServerClosed() bool {
	return g.ServerClosure != nil
}

// HasGenre reports whether the game is tagged with genreID.
func (g Game) HasGenre(genreID int) bool {
	for _, genre := range g.Genres {
		if genre.ID == genreID {
			return true
		}
	}
	return false
}

// Completion is a player's record for one game. At most one exists per
// (PlayerID, GameID); CompletionDate is nil while the game is incomplete.
type Completion struct {
	PlayerID         int64      `gorm:"primaryKey;autoIncrement:false" json:"playerId"`
	GameID           int        `gorm:"primaryKey;autoIncrement:false" json:"gameId"`
	Game             *Game      `gorm:"foreignKey:GameID" json:"game,omitempty"`
	Platform         Platform   `gorm:"size:32" json:"platform"`
	Ownership        Ownership  `gorm:"size:32" json:"ownership"`
	NotForContests   bool       `json:"notForContests"`
	StartedDate      *time.Time `json:"startedDate,omitempty"`
	CompletionDate   *time.Time `gorm:"index" json:"completionDate,omitempty"`
	LastUnlock       *time.Time `json:"lastUnlock,omitempty"`
	AchievementCount int        `json:"achievementCount"`
	Gamerscore       int        `json:"gamerscore"`
	Points           int        `json:"points"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Completed reports whether the record has a completion date.
func (c Completion) Completed() bool {
	return c.CompletionDate != nil
}

// ExclusionRule marks a completion as consumed by a challenge.
type ExclusionRule struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	Challenge int   `gorm:"index" json:"challenge"`
	PlayerID  int64 `gorm:"index" json:"playerId"`
	GameID    int   `json:"gameId"`
}

// MonthlyRecap is one player's standing in a monthly challenge.
type MonthlyRecap struct {
	ID               uint     `gorm:"primaryKey" json:"-"`
	Challenge        int      `gorm:"uniqueIndex:idx_recap_challenge_player" json:"challenge"`
	PlayerID         int64    `gorm:"uniqueIndex:idx_recap_challenge_player" json:"playerId"`
	Gamertag         string   `json:"gamertag"`
	AchievementCount int      `json:"achievementCount"`
	Completions      int      `json:"completions"`
	BasePoints       int      `json:"basePoints"`
	CommunityBonus   int      `json:"communityBonus"`
	TotalPoints      int      `json:"totalPoints"`
	Participation    bool     `json:"participation"`
	Tributes         []string `gorm:"serializer:json" json:"tributes"`
	Rank             int      `json:"rank"`
}

// YearlyStat is one player's row in the yearly leaderboard.
type YearlyStat struct {
	PlayerID        int64   `gorm:"primaryKey;autoIncrement:false" json:"playerId"`
	Gamertag        string  `json:"gamertag"`
	Completions     int     `json:"completions"`
	AverageRatio    float64 `json:"averageRatio"`
	HighestRatio    float64 `json:"highestRatio"`
	AverageEstimate float64 `json:"averageEstimate"`
	HighestEstimate float64 `json:"highestEstimate"`
	BasePoints      int     `json:"basePoints"`
	AveragePoints   float64 `json:"averagePoints"`
	BonusPoints     int     `json:"bonusPoints"`
	TotalPoints     int     `json:"totalPoints"`
	Rank            int     `json:"rank"`
	RankMovement    int     `json:"rankMovement"`
}

// RandomChallengeIssue is one random game assignment. A nil GameID is a
// placeholder recorded when the pool was too small.
type RandomChallengeIssue struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	PlayerID       int64      `gorm:"index" json:"playerId"`
	GameID         *int       `json:"gameId,omitempty"`
	PreviousGameID *int       `json:"previousGameId,omitempty"`
	Challenge      int        `json:"challenge"`
	IssuedAt       time.Time  `json:"issuedAt"`
	Rerolled       bool       `json:"rerolled"`
	RerollDate     *time.Time `json:"rerollDate,omitempty"`
	PoolSize       int        `json:"poolSize"`
}

// Placeholder reports whether the issue carries no game.
func (i RandomChallengeIssue) Placeholder() bool {
	return i.GameID == nil
}

// Active reports whether the issue still holds its game.
func (i RandomChallengeIssue) Active() bool {
	return !i.Rerolled
}

// SyncProfile names a preset of source fetch options.
type SyncProfile string

const (
	SyncProfileFull                SyncProfile = "Full"
	SyncProfileCustom              SyncProfile = "Custom"
	SyncProfileLastMonthsCompleted SyncProfile = "LastMonthsCompleted"
	SyncProfileIncompleteOnly      SyncProfile = "IncompleteOnly"
)

// PlayerFailure records why one player could not be synced.
type PlayerFailure struct {
	PlayerID int64  `json:"playerId"`
	Error    string `json:"error"`
}

// SyncRun summarizes one synchronizer run.
type SyncRun struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	RunID            string          `gorm:"size:36;uniqueIndex" json:"runId"`
	Profile          SyncProfile     `gorm:"size:32" json:"profile"`
	Start            time.Time       `json:"start"`
	End              time.Time       `json:"end"`
	PlayerCount      int             `json:"playerCount"`
	SyncedPlayers    int             `json:"syncedPlayers"`
	DroppedFragments int             `json:"droppedFragments"`
	Cancelled        bool            `json:"cancelled"`
	Failures         []PlayerFailure `gorm:"serializer:json" json:"failures"`
}

// YearlyCategory groups yearly sub-challenges.
type YearlyCategory string

const (
	YearlyCommunityStar YearlyCategory = "community_star"
	YearlySignature     YearlyCategory = "signature"
	YearlyRetirement    YearlyCategory = "retirement"
)

// YearlyChallenge is a player's submission for a yearly sub-challenge.
type YearlyChallenge struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	PlayerID   int64          `gorm:"index" json:"playerId"`
	Category   YearlyCategory `gorm:"size:32" json:"category"`
	Title      string         `json:"title"`
	Approved   bool           `json:"approved"`
	ApprovedAt *time.Time     `json:"approvedAt,omitempty"`
}
