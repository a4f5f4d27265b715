// Package scheduler runs queued files through a fixed set of worker slots.
//
// Each slot is bound to one encoder profile for the whole run. A single loop
// goroutine wakes on every tick, hands the oldest queued tasks to idle slots,
// and frees slots as their handlers report completion over a channel. When
// the queue stays empty with every slot idle for DrainTicks consecutive ticks
// the loop emits EventDrained and Run returns.
package scheduler
