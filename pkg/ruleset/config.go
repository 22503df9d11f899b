// Package ruleset loads the contest rule table: contest dates, tribute rules,
// monthly challenges, odd jobs, yearly bonuses and random challenge policy.
package ruleset

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/rule"
	"github.com/AccelByte/extend-completion-contest/pkg/scoring"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMinPoolSize  = 50
	DefaultCooldownDays = 25
)

// Config represents the complete contest rule table.
type Config struct {
	Contest          ContestConfig                              `yaml:"contest"`
	Rules            []rule.RuleConfig                          `yaml:"rules"`
	Months           []MonthConfig                              `yaml:"months"`
	OddJobs          []contest.OddJob                           `yaml:"odd_jobs"`
	OddJobBonus      int                                        `yaml:"odd_job_bonus"`
	YearlyChallenges map[contest.YearlyCategory]YearlyThreshold `yaml:"yearly_challenges"`
	RandomChallenge  RandomChallengeConfig                      `yaml:"random_challenge"`
}

// ContestConfig holds contest-wide settings.
type ContestConfig struct {
	Name             string          `yaml:"name"`
	Start            time.Time       `yaml:"start"`
	MaximumGameScore int             `yaml:"maximum_game_score"`
	Exclusions       ExclusionConfig `yaml:"exclusions"`
}

// ExclusionConfig lists games that never count toward the contest.
type ExclusionConfig struct {
	GameIDs []int    `yaml:"game_ids"`
	Titles  []string `yaml:"titles"`
}

// Tier is a gamerscore band and its point multiplier.
type Tier struct {
	MinGamerscore int     `yaml:"min_gamerscore"`
	Multiplier    float64 `yaml:"multiplier"`
}

// BonusGames are games whose achievements count extra toward the month's
// achievement totals.
type BonusGames struct {
	GameIDs               []int `yaml:"game_ids"`
	AchievementMultiplier int   `yaml:"achievement_multiplier"`
}

// CommunityKind selects how a community goal is measured.
type CommunityKind string

const (
	// CommunityTugOfWar weighs the community's achievements against the
	// reference players' achievements.
	CommunityTugOfWar CommunityKind = "tug_of_war"
	// CommunityPopularGames counts games completed by many players.
	CommunityPopularGames CommunityKind = "popular_games"
)

// CommunityGoal is a roster-wide goal that adds a flat bonus to every
// participant once reached.
type CommunityGoal struct {
	Kind             CommunityKind `yaml:"kind"`
	ReferencePlayers []int64       `yaml:"reference_players"`
	Weight           float64       `yaml:"weight"`
	Goal             int           `yaml:"goal"`
	Bonus            int           `yaml:"bonus"`
	MinCompletions   int           `yaml:"min_completions"`
	Games            int           `yaml:"games"`
}

// MonthConfig is the rule table of one monthly challenge.
type MonthConfig struct {
	Challenge     int            `yaml:"challenge"`
	Name          string         `yaml:"name"`
	From          time.Time      `yaml:"from"`
	To            time.Time      `yaml:"to"` // exclusive
	MinGamerscore int            `yaml:"min_gamerscore"`
	Tiers         []Tier         `yaml:"tiers"`
	Tributes      []string       `yaml:"tributes"`
	BonusGames    BonusGames     `yaml:"bonus_games"`
	Community     *CommunityGoal `yaml:"community,omitempty"`
}

// YearlyThreshold pays Bonus when exactly Count sub-challenges of a
// category are approved.
type YearlyThreshold struct {
	Count int `yaml:"count"`
	Bonus int `yaml:"bonus"`
}

// RandomChallengeConfig is the random challenge pool policy.
type RandomChallengeConfig struct {
	MaxEstimate          float64  `yaml:"max_estimate"`
	Platforms            []string `yaml:"platforms"`
	MinPoolSize          int      `yaml:"min_pool_size"`
	CooldownDays         int      `yaml:"cooldown_days"`
	CompletionMultiplier float64  `yaml:"completion_multiplier"`
}

// LoadConfig loads the rule table from a YAML file.
// Supports environment variable expansion in the form ${VAR_NAME} or ${VAR_NAME:default}.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a rule table.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Contest.MaximumGameScore <= 0 {
		c.Contest.MaximumGameScore = scoring.DefaultMaximumGameScore
	}
	if c.RandomChallenge.MinPoolSize <= 0 {
		c.RandomChallenge.MinPoolSize = DefaultMinPoolSize
	}
	if c.RandomChallenge.CooldownDays <= 0 {
		c.RandomChallenge.CooldownDays = DefaultCooldownDays
	}
	for i := range c.Months {
		// Highest band first so the first match wins.
		sort.SliceStable(c.Months[i].Tiers, func(a, b int) bool {
			return c.Months[i].Tiers[a].MinGamerscore > c.Months[i].Tiers[b].MinGamerscore
		})
	}
}

// Qualifier builds the shared qualification predicate.
func (c *Config) Qualifier() contest.Qualifier {
	return contest.NewQualifier(c.Contest.Start, c.Contest.Exclusions.GameIDs, c.Contest.Exclusions.Titles)
}

// Scorer builds the scoring engine with the configured cap.
func (c *Config) Scorer() scoring.Engine {
	return scoring.NewEngine(c.Contest.MaximumGameScore)
}

// Month returns the rule table of a challenge.
func (c *Config) Month(challenge int) (MonthConfig, bool) {
	for _, m := range c.Months {
		if m.Challenge == challenge {
			return m, true
		}
	}
	return MonthConfig{}, false
}

// RandomPlatforms returns the platforms allowed in the random challenge pool.
func (c *Config) RandomPlatforms() ([]contest.Platform, error) {
	out := make([]contest.Platform, 0, len(c.RandomChallenge.Platforms))
	for _, name := range c.RandomChallenge.Platforms {
		p, ok := contest.ParsePlatform(name)
		if !ok {
			return nil, fmt.Errorf("unknown random challenge platform %q", name)
		}
		out = append(out, p)
	}
	return out, nil
}

// Contains reports whether t falls in the month window.
func (m MonthConfig) Contains(t time.Time) bool {
	return !t.Before(m.From) && t.Before(m.To)
}

// Multiplier returns the tier multiplier for a game's gamerscore. A month
// without tiers scores at full value; a game below every tier scores zero.
func (m MonthConfig) Multiplier(gamerscore int) float64 {
	if len(m.Tiers) == 0 {
		return 1
	}
	for _, t := range m.Tiers {
		if gamerscore >= t.MinGamerscore {
			return t.Multiplier
		}
	}
	return 0
}

// IsBonusGame reports whether a game's achievements are multiplied.
func (m MonthConfig) IsBonusGame(gameID int) bool {
	for _, id := range m.BonusGames.GameIDs {
		if id == gameID {
			return true
		}
	}
	return false
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}.
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		// Support ${VAR:default} syntax
		parts := strings.SplitN(key, ":", 2)
		varName := parts[0]
		defaultValue := ""
		if len(parts) == 2 {
			defaultValue = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
