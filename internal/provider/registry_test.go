package provider

import (
	"context"
	"net/http"
	"testing"

	"github.com/John-Robertt/moviemeter/internal/domain"
)

type stubProvider struct{ name string }

func (p stubProvider) Name() string       { return p.name }
func (p stubProvider) ListingURL() string { return "https://example.test/" + p.name }
func (p stubProvider) FetchListing(ctx context.Context, c *http.Client) ([]string, error) {
	return nil, ErrNoItems
}
func (p stubProvider) FetchDetail(ctx context.Context, pageURL string, c *http.Client) (domain.MovieRecord, error) {
	return domain.MovieRecord{}, &IncompleteError{URL: pageURL}
}

func TestRegistry_GetIsCaseInsensitive(t *testing.T) {
	reg, err := NewRegistry(stubProvider{name: "IMDb"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, ok := reg.Get(" imdb "); !ok {
		t.Fatalf("期望能按小写名称查到 provider")
	}
	if names := reg.Names(); len(names) != 1 || names[0] != "imdb" {
		t.Fatalf("Names 不符合预期：%v", names)
	}
}

func TestRegistry_RejectsDuplicateAndEmpty(t *testing.T) {
	if _, err := NewRegistry(stubProvider{name: "imdb"}, stubProvider{name: "IMDB"}); err == nil {
		t.Fatalf("重复 provider 应报错")
	}
	if _, err := NewRegistry(stubProvider{name: " "}); err == nil {
		t.Fatalf("空名称应报错")
	}
	if _, err := NewRegistry(nil); err == nil {
		t.Fatalf("nil provider 应报错")
	}
}
