package imdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/moviemeter/internal/domain"
	"github.com/John-Robertt/moviemeter/internal/infra/httpx"
	providerx "github.com/John-Robertt/moviemeter/internal/provider"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	return b
}

func TestParseListing_FromFixture(t *testing.T) {
	links, err := ParseListing(readFixture(t, "listing.html"), DefaultOrigin)
	if err != nil {
		t.Fatalf("ParseListing 失败：%v", err)
	}
	want := []string{
		"https://imdb.com/title/tt15239678/?ref_=chtmvm_t_1",
		"https://imdb.com/title/tt1160419/?ref_=chtmvm_t_2",
		"https://www.imdb.com/title/tt0111161/",
	}
	if len(links) != len(want) {
		t.Fatalf("期望 %d 条链接，实际 %d: %v", len(want), len(links), links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Fatalf("links[%d] 期望 %q，实际 %q", i, want[i], links[i])
		}
	}
}

func TestParseListing_EmptyIsNoItems(t *testing.T) {
	_, err := ParseListing([]byte(`<html><body><div class="other"><a href="/x">x</a></div></body></html>`), DefaultOrigin)
	if !errors.Is(err, providerx.ErrNoItems) {
		t.Fatalf("期望 ErrNoItems，实际=%v", err)
	}
}

func TestParseDetail_FromFixture(t *testing.T) {
	rec, err := ParseDetail(readFixture(t, "detail.html"))
	if err != nil {
		t.Fatalf("ParseDetail 失败：%v", err)
	}
	want := domain.MovieRecord{
		Position:    "1",
		Title:       "Dune: Part Two",
		ReleaseDate: "2024",
		Rating:      "8.6",
		Summary:     "Paul Atreides unites with Chani and the Fremen while seeking revenge against the conspirators who destroyed his family.",
	}
	if rec != want {
		t.Fatalf("记录不符合预期：\n got=%+v\nwant=%+v", rec, want)
	}
}

func TestParseDetail_MissingSummaryIsIncomplete(t *testing.T) {
	html := strings.Replace(string(readFixture(t, "detail.html")), "sc-eb5317c9-1 bpVsNr", "renamed", 1)

	_, err := ParseDetail([]byte(html))
	var ie *providerx.IncompleteError
	if !errors.As(err, &ie) {
		t.Fatalf("期望 IncompleteError，实际=%v", err)
	}
	if len(ie.Missing) != 1 || ie.Missing[0] != "summary" {
		t.Fatalf("期望只缺 summary，实际 %v", ie.Missing)
	}
}

func TestParseDetail_NoContainer(t *testing.T) {
	_, err := ParseDetail([]byte(`<html><body><h1>blocked</h1></body></html>`))
	var ie *providerx.IncompleteError
	if !errors.As(err, &ie) || len(ie.Missing) != 5 {
		t.Fatalf("容器缺失应视为 5 个字段全缺，实际=%v", err)
	}
}

func TestFetch_ListingAndDetailOverHTTP(t *testing.T) {
	listing := readFixture(t, "listing.html")
	detail := readFixture(t, "detail.html")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != httpx.DefaultUserAgent {
			http.Error(w, "bad ua", http.StatusBadRequest)
			return
		}
		switch {
		case r.URL.Path == "/chart/moviemeter/":
			_, _ = w.Write(listing)
		case strings.HasPrefix(r.URL.Path, "/title/tt15239678/"):
			_, _ = w.Write(detail)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := httpx.NewClient(httpx.Options{})
	if err != nil {
		t.Fatalf("构造 client 失败：%v", err)
	}
	p := Provider{Origin: srv.URL, Chart: srv.URL + "/chart/moviemeter/", JitterMax: time.Millisecond}

	links, err := p.FetchListing(context.Background(), c)
	if err != nil {
		t.Fatalf("FetchListing 失败：%v", err)
	}
	if len(links) != 3 || !strings.HasPrefix(links[0], srv.URL+"/title/") {
		t.Fatalf("links 不符合预期：%v", links)
	}

	rec, err := p.FetchDetail(context.Background(), links[0], c)
	if err != nil {
		t.Fatalf("FetchDetail 失败：%v", err)
	}
	if rec.Title != "Dune: Part Two" {
		t.Fatalf("title 不符合预期：%q", rec.Title)
	}

	_, err = p.FetchDetail(context.Background(), links[1], c)
	if got := providerx.Code(err); got != domain.ErrCodeHTTPStatus {
		t.Fatalf("404 应归类为 http_status，实际=%q (err=%v)", got, err)
	}
}

func TestFetchDetail_IncompleteCarriesURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
	defer srv.Close()

	c, _ := httpx.NewClient(httpx.Options{})
	_, err := Provider{}.FetchDetail(context.Background(), srv.URL+"/title/x/", c)
	var ie *providerx.IncompleteError
	if !errors.As(err, &ie) || ie.URL != srv.URL+"/title/x/" {
		t.Fatalf("期望带 URL 的 IncompleteError，实际=%v", err)
	}
}

func TestFetchDetail_JitterRespectsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := httpx.NewClient(httpx.Options{})
	_, err := Provider{JitterMax: time.Hour}.FetchDetail(ctx, "https://example.test/title/x/", c)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际=%v", err)
	}
}

func TestProvider_Defaults(t *testing.T) {
	p := New("", "")
	if p.ListingURL() != DefaultListingURL || p.origin() != DefaultOrigin || p.JitterMax != DefaultJitterMax {
		t.Fatalf("默认值不符合预期：%+v", p)
	}
}
