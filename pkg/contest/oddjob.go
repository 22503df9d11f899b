// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package contest

// OddJob is satisfied by one completed game tagged with every listed genre.
type OddJob struct {
	Name   string `yaml:"name" json:"name"`
	Genres []int  `yaml:"genres" json:"genres"`
}

// SatisfiedBy reports whether the game carries all of the job's genres.
func (j OddJob) SatisfiedBy(g Game) bool {
	if len(j.Genres) == 0 {
		return false
	}
	for _, id := range j.Genres {
		if !g.HasGenre(id) {
			return false
		}
	}
	return true
}

// OddJobResult pairs a job with the first completion that satisfied it.
type OddJobResult struct {
	Job  OddJob `json:"job"`
	Game *Game  `json:"game,omitempty"`
}

// Satisfied reports whether a game was found for the job.
func (r OddJobResult) Satisfied() bool {
	return r.Game != nil
}

// MatchOddJobs evaluates every job against completions in the given order.
// Completions without a loaded game are ignored.
func MatchOddJobs(jobs []OddJob, completions []Completion) []OddJobResult {
	results := make([]OddJobResult, len(jobs))
	for i, job := range jobs {
		results[i].Job = job
		for _, c := range completions {
			if c.Game != nil && job.SatisfiedBy(*c.Game) {
				results[i].Game = c.Game
				break
			}
		}
	}
	return results
}

// AllOddJobsDone reports whether every job in a non-empty list is satisfied.
func AllOddJobsDone(results []OddJobResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Satisfied() {
			return false
		}
	}
	return true
}
