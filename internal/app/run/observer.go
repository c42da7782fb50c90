package run

import (
	"time"

	"github.com/John-Robertt/moviemeter/internal/config"
	"github.com/John-Robertt/moviemeter/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - OnItemDone 由分发器在调用方 goroutine 中串行触发；其余事件也只来自 ExecuteWithObserver 所在 goroutine。
//   CLI 若另起 ticker 读取同一状态，需要自行加锁。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束/就绪时调用：listing 结束、dispatch 就绪。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemDone 在某个详情页处理完成时调用（idx 按完成顺序递增）。
	OnItemDone(idx, total int, res domain.ItemResult)
}
