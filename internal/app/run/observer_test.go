package run

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/moviemeter/internal/config"
	"github.com/John-Robertt/moviemeter/internal/domain"
)

type recordObserver struct {
	mu sync.Mutex

	startCalls int
	phases     []string
	fields     map[string]map[string]any
	items      []int
}

func (o *recordObserver) OnStart(eff config.EffectiveConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startCalls++
}

func (o *recordObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, name)
	if o.fields == nil {
		o.fields = map[string]map[string]any{}
	}
	o.fields[name] = fields
}

func (o *recordObserver) OnItemDone(idx, total int, res domain.ItemResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, idx)
}

func TestExecuteWithObserver_EmitsPhaseAndItemEvents(t *testing.T) {
	site := newFakeSite(t, listingHTML("/title/a/", "/title/b/"), map[string]string{
		"/title/a/": detailHTML(domain.MovieRecord{Position: "1", Title: "A", ReleaseDate: "2020", Rating: "7", Summary: "s"}),
		"/title/b/": detailHTML(domain.MovieRecord{Position: "2", Title: "B", ReleaseDate: "2021", Rating: "6", Summary: "s"}),
	}, 0)

	obs := &recordObserver{}
	eff := effFor(filepath.Join(t.TempDir(), "output"))
	eff.Concurrency = 8
	rr := ExecuteWithObserver(context.Background(), eff, site.registry(t), nil, obs)
	if !rr.OK() {
		t.Fatalf("不期望错误：%s %s", rr.ErrorCode, rr.ErrorMsg)
	}

	if obs.startCalls != 1 {
		t.Fatalf("OnStart 应调用 1 次，实际 %d", obs.startCalls)
	}
	if want := []string{PhaseListing, PhaseDispatch}; !reflect.DeepEqual(obs.phases, want) {
		t.Fatalf("阶段事件不符合预期：got=%v want=%v", obs.phases, want)
	}
	if got := obs.fields[PhaseDispatch]["workers"]; got != 2 {
		t.Fatalf("workers 应为 min(C, N)=2，实际 %v", got)
	}
	if want := []int{1, 2}; !reflect.DeepEqual(obs.items, want) {
		t.Fatalf("条目事件应按完成顺序编号：got=%v want=%v", obs.items, want)
	}
}

func TestExecuteWithObserver_NoItems_NoDispatchPhase(t *testing.T) {
	site := newFakeSite(t, listingHTML(), nil, 0)

	obs := &recordObserver{}
	rr := ExecuteWithObserver(context.Background(), effFor(filepath.Join(t.TempDir(), "output")), site.registry(t), nil, obs)
	if rr.ErrorCode != domain.ErrCodeNoItems {
		t.Fatalf("期望 %q，实际 %q", domain.ErrCodeNoItems, rr.ErrorCode)
	}
	for _, p := range obs.phases {
		if p == PhaseDispatch {
			t.Fatalf("列表为空时不应进入 dispatch 阶段：%v", obs.phases)
		}
	}
	if len(obs.items) != 0 {
		t.Fatalf("不应有条目事件：%v", obs.items)
	}
}
