// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package datasync

import (
	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/parser"
	"github.com/AccelByte/extend-completion-contest/pkg/source"
)

// rowParser accumulates the first parse failure of a row.
type rowParser struct {
	row source.Row
	err error
}

func (r *rowParser) raw(col source.Column) string {
	return r.row[col]
}

func (r *rowParser) text(col source.Column) string {
	return parser.Text(r.row[col])
}

func (r *rowParser) keep(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}

func (r *rowParser) count(field string, col source.Column, total bool) int {
	parse := parser.PlayerValue
	if total {
		parse = parser.TotalValue
	}
	v, err := parse(field, r.text(col))
	r.keep(err)
	if v == nil {
		return 0
	}
	return *v
}

func (r *rowParser) decimal(field string, col source.Column) float64 {
	v, err := parser.Decimal(field, r.text(col))
	r.keep(err)
	return v
}

func (r *rowParser) gamers(col source.Column) int {
	v, err := parser.GamersCount(r.text(col))
	r.keep(err)
	return v
}

// parseRow turns one row of fragments into a game and the player's record
// for it. Any field failure drops the whole row with a *parser.ParseError.
func parseRow(p *parser.Parser, playerID int64, row source.Row) (*contest.Game, *contest.Completion, error) {
	r := &rowParser{row: row}

	idFragment := r.raw(source.ColumnRowID)
	if idFragment == "" {
		idFragment = r.raw(source.ColumnPlatform)
	}
	gameID, err := parser.GameID(idFragment)
	if err != nil {
		return nil, nil, err
	}
	platform, err := parser.Platform(r.raw(source.ColumnPlatform))
	if err != nil {
		return nil, nil, err
	}

	g := &contest.Game{
		ID:               gameID,
		Title:            r.text(source.ColumnTitle),
		URL:              parser.GameURL(r.raw(source.ColumnTitle)),
		Publisher:        r.text(source.ColumnPublisher),
		Developer:        r.text(source.ColumnDeveloper),
		AchievementCount: r.count(parser.FieldAchievements, source.ColumnAchievements, true),
		Gamerscore:       r.count(parser.FieldGamerscore, source.ColumnGamerscore, true),
		TrueAchievement:  r.count(parser.FieldTrueAchievement, source.ColumnTrueAchievement, true),
		SiteRatio:        r.decimal(parser.FieldDecimal, source.ColumnRatio),
		SiteRating:       r.decimal(parser.FieldDecimal, source.ColumnSiteRating),
		GamersWithGame:   r.gamers(source.ColumnGamersWithGame),
		GamersCompleted:  r.gamers(source.ColumnGamersCompleted),
	}

	g.ReleaseDate, err = p.Date(parser.FieldDate, r.text(source.ColumnReleaseDate))
	r.keep(err)
	g.ServerClosure, err = p.Date(parser.FieldDate, r.text(source.ColumnServerClosure))
	r.keep(err)
	g.BaseCompletionEstimate, err = parser.BaseCompletionEstimate(r.text(source.ColumnBaseEstimate))
	r.keep(err)
	g.FullCompletionEstimate, err = parser.CompletionEstimate(r.text(source.ColumnFullEstimate))
	r.keep(err)
	g.InstallSize, err = parser.InstallSize(r.text(source.ColumnInstallSize))
	r.keep(err)
	g.Unobtainable, err = parser.Unobtainable(r.raw(source.ColumnUnobtainables))
	r.keep(err)

	c := &contest.Completion{
		PlayerID:         playerID,
		GameID:           gameID,
		Platform:         platform,
		AchievementCount: r.count(parser.FieldAchievements, source.ColumnAchievements, false),
		Gamerscore:       r.count(parser.FieldGamerscore, source.ColumnGamerscore, false),
	}
	c.Ownership, err = parser.Ownership(r.raw(source.ColumnOwnership))
	r.keep(err)
	c.NotForContests, err = parser.NotForContests(r.raw(source.ColumnNotForContests))
	r.keep(err)
	c.StartedDate, err = p.Date(parser.FieldDate, r.text(source.ColumnStarted))
	r.keep(err)
	c.CompletionDate, err = p.Date(parser.FieldDate, r.text(source.ColumnCompleted))
	r.keep(err)
	c.LastUnlock, err = p.Date(parser.FieldDate, r.text(source.ColumnLastUnlock))
	r.keep(err)

	if r.err != nil {
		return nil, nil, r.err
	}
	return g, c, nil
}
