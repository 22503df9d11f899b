// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
)

const collectionPage = `<html><body>
<table class="collection">
<thead><tr><th>Game</th><th>Platform</th><th>Gamerscore</th><th>Completed</th><th>Notes</th></tr></thead>
<tbody>
<tr id="tdPlatform_101"><td><a href="/game/Halo-3/achievements?gamerid=1">Halo 3</a></td><td><img alt="Xbox 360"></td><td>1,000 / 1,000</td><td>12 Aug 24</td><td>ignored</td></tr>
<tr id="tdPlatform_102"><td>Forza</td><td><img alt="Xbox One"></td><td>500 / 1,000</td><td></td><td></td></tr>
</tbody>
</table>
<ul class="pagination"><li class="next"><a href="?page=2">Next</a></li></ul>
</body></html>`

func TestCollectionClient_FetchFragments(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(collectionPage))
	}))
	defer server.Close()

	cutoff := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	client := NewCollectionClient(server.URL, time.Second)
	page, err := client.FetchFragments(context.Background(), 42, 1, Options{
		CompletionStatus: CompletionComplete,
		UnlockCutoff:     &cutoff,
		ContestStatus:    ContestAll,
		Timezone:         TimezoneEST,
	})
	if err != nil {
		t.Fatalf("FetchFragments() error = %v", err)
	}

	for _, want := range []string{"gamerid=42", "page=1", "completionstatus=complete", "lastunlockcutoff=2024-06-30", "timezone=EST"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}

	if len(page.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, expected 2", len(page.Rows))
	}
	if !page.HasMore {
		t.Error("HasMore = false, expected true")
	}

	row := page.Rows[0]
	if !strings.Contains(row[ColumnPlatform], `alt="Xbox 360"`) {
		t.Errorf("platform fragment = %q, expected alt marker", row[ColumnPlatform])
	}
	if !strings.Contains(row[ColumnTitle], "achievements?gamerid=1") {
		t.Errorf("title fragment = %q, expected link", row[ColumnTitle])
	}
	if row[ColumnRowID] != `<tr id="tdPlatform_101">` {
		t.Errorf("row id fragment = %q, expected the game id marker", row[ColumnRowID])
	}
	if _, ok := row[""]; ok {
		t.Error("unknown header column should be dropped")
	}
}

func TestCollectionClient_LastPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<table class="collection"><thead><tr><th>Game</th></tr></thead><tbody></tbody></table>
<ul class="pagination"><li class="next disabled">Next</li></ul>`))
	}))
	defer server.Close()

	page, err := NewCollectionClient(server.URL, time.Second).FetchFragments(context.Background(), 1, 3, Options{})
	if err != nil {
		t.Fatalf("FetchFragments() error = %v", err)
	}
	if page.HasMore {
		t.Error("HasMore = true on a disabled next link, expected false")
	}
	if len(page.Rows) != 0 {
		t.Errorf("len(Rows) = %d, expected 0", len(page.Rows))
	}
}

func TestCollectionClient_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewCollectionClient(server.URL, time.Second).FetchFragments(context.Background(), 1, 1, Options{})
	if !errors.Is(err, contest.ErrSourceUnavailable) {
		t.Errorf("FetchFragments() error = %v, expected ErrSourceUnavailable", err)
	}
}
