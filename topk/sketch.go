package topk

import (
	"sync"

	"github.com/keilerkonzept/topk/sliding"
)

// defaultTickSize is used when Params.TickSize is zero.
const defaultTickSize = 100

// Params configures the offender sketch.
type Params struct {
	// K is the number of heavy hitters kept.
	K int
	// WindowSize is the number of ticks the sliding window spans.
	WindowSize int
	Width      int
	Depth      int
	// TickSize is the number of recorded hits that advance the window by
	// one tick.
	TickSize uint64
}

// Offender is one heavy hitter in the current window.
type Offender struct {
	IP    string `json:"ip"`
	Count uint32 `json:"count"`
}

// Offenders tracks which blocked IPs hit the gate most often over a sliding
// window of recent blocked requests. Safe for concurrent use.
type Offenders struct {
	mu        sync.Mutex
	sketch    *sliding.Sketch
	tickSize  uint64
	tickReq   uint64 // hits recorded since last tick
	tickCount uint64
	total     uint64
}

func New(params Params) *Offenders {
	if params.TickSize == 0 {
		params.TickSize = defaultTickSize
	}
	instance := sliding.New(params.K, params.WindowSize,
		sliding.WithWidth(params.Width),
		sliding.WithDepth(params.Depth))

	return &Offenders{
		sketch:   instance,
		tickSize: params.TickSize,
	}
}

// Record counts one blocked request from ip.
func (o *Offenders) Record(ip string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.sketch.Incr(ip)
	o.total++
	o.tickReq++

	if o.tickReq >= o.tickSize {
		o.sketch.Tick()
		o.tickCount++
		o.tickReq = 0
	}
}

// Top returns the current heavy hitters, highest count first.
func (o *Offenders) Top() []Offender {
	o.mu.Lock()
	items := o.sketch.SortedSlice()
	o.mu.Unlock()

	out := make([]Offender, 0, len(items))
	for _, item := range items {
		if item.Count == 0 {
			continue
		}
		out = append(out, Offender{IP: item.Item, Count: item.Count})
	}
	return out
}

// Total is the number of hits recorded since start.
func (o *Offenders) Total() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.total
}

// Ticks is the number of times the window advanced.
func (o *Offenders) Ticks() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tickCount
}
