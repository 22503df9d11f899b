// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const collectionPath = "/gamecollection"

// headerColumns maps collection table header labels to columns.
var headerColumns = map[string]Column{
	"game":                ColumnTitle,
	"title":               ColumnTitle,
	"platform":            ColumnPlatform,
	"achievements":        ColumnAchievements,
	"gamerscore":          ColumnGamerscore,
	"trueachievement":     ColumnTrueAchievement,
	"ratio":               ColumnRatio,
	"ownership":           ColumnOwnership,
	"contest":             ColumnNotForContests,
	"unobtainables":       ColumnUnobtainables,
	"started":             ColumnStarted,
	"completed":           ColumnCompleted,
	"last unlock":         ColumnLastUnlock,
	"publisher":           ColumnPublisher,
	"developer":           ColumnDeveloper,
	"release date":        ColumnReleaseDate,
	"gamers with game":    ColumnGamersWithGame,
	"gamers completed":    ColumnGamersCompleted,
	"completion estimate": ColumnBaseEstimate,
	"incl. dlc":           ColumnFullEstimate,
	"site rating":         ColumnSiteRating,
	"server closure":      ColumnServerClosure,
	"install size":        ColumnInstallSize,
}

// CollectionClient reads a player's game collection table over HTTP.
type CollectionClient struct {
	baseURL string
	client  *http.Client
}

// NewCollectionClient creates a client for the given site root.
func NewCollectionClient(baseURL string, timeout time.Duration) *CollectionClient {
	return &CollectionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchFragments implements Fetcher.
func (c *CollectionClient) FetchFragments(ctx context.Context, externalID int, page int, opts Options) (*Page, error) {
	u := c.pageURL(externalID, page, opts)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, contest.SourceUnavailablef("fetch %s: %v", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, contest.SourceUnavailablef("fetch %s: status %d", u, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, contest.SourceUnavailablef("read %s: %v", u, err)
	}

	result := ParseCollection(doc)
	logrus.Debugf("fetched page %d for gamer %d: %d rows, more=%v", page, externalID, len(result.Rows), result.HasMore)
	return result, nil
}

func (c *CollectionClient) pageURL(externalID int, page int, opts Options) string {
	q := url.Values{}
	q.Set("gamerid", strconv.Itoa(externalID))
	q.Set("page", strconv.Itoa(page))
	if opts.CompletionStatus != "" {
		q.Set("completionstatus", string(opts.CompletionStatus))
	}
	if opts.UnlockCutoff != nil {
		q.Set("lastunlockcutoff", opts.UnlockCutoff.Format("2006-01-02"))
	}
	if opts.ContestStatus != ContestNone {
		q.Set("conteststatus", string(opts.ContestStatus))
	}
	if opts.Timezone != "" {
		q.Set("timezone", string(opts.Timezone))
	}
	if len(opts.Platforms) > 0 {
		names := make([]string, len(opts.Platforms))
		for i, p := range opts.Platforms {
			names[i] = string(p)
		}
		q.Set("platforms", strings.Join(names, ","))
	}
	return c.baseURL + collectionPath + "?" + q.Encode()
}

// ParseCollection splits a collection page into rows of raw fragments. Each
// fragment is the outer HTML of its cell so attribute markers survive.
func ParseCollection(doc *goquery.Document) *Page {
	table := doc.Find("table.collection").First()

	var columns []Column
	table.Find("thead th").Each(func(_ int, th *goquery.Selection) {
		label := strings.ToLower(strings.TrimSpace(th.Text()))
		columns = append(columns, headerColumns[label])
	})

	page := &Page{}
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		row := make(Row)
		cells := 0
		if id, ok := tr.Attr("id"); ok {
			row[ColumnRowID] = fmt.Sprintf(`<tr id="%s">`, id)
		}
		tr.Find("td").Each(func(i int, td *goquery.Selection) {
			if i >= len(columns) || columns[i] == "" {
				return
			}
			fragment, err := goquery.OuterHtml(td)
			if err != nil {
				return
			}
			row[columns[i]] = fragment
			cells++
		})
		if cells > 0 {
			page.Rows = append(page.Rows, row)
		}
	})

	next := doc.Find(".pagination .next").First()
	page.HasMore = next.Length() > 0 && !next.HasClass("disabled")
	return page
}
