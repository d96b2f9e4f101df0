package main

import (
	"fmt"
	"sync/atomic"

	"github.com/fatih/color"

	"github.com/lanikai/kolea"
)

// statsCollector is a kolea.Consumer that discards access unit payloads but
// tracks delivery counts, bytes, and incomplete-AU counts for periodic
// display.
type statsCollector struct {
	aus       uint64
	bytes     uint64
	incomplet uint64
	resyncs   uint64
}

func newStatsCollector() *statsCollector {
	return &statsCollector{}
}

func (s *statsCollector) consumer() kolea.Consumer {
	return kolea.Consumer{
		GetAUBuffer: func() ([]byte, interface{}, error) {
			return make([]byte, kolea.DefaultPayloadBufferSize), nil, nil
		},
		AUReady: func(out *kolea.OutputAU) kolea.ConsumerResult {
			atomic.AddUint64(&s.aus, 1)
			atomic.AddUint64(&s.bytes, uint64(len(out.Buf)))
			if out.Incomplete {
				atomic.AddUint64(&s.incomplet, 1)
			}
			return kolea.ConsumerOK
		},
	}
}

func (s *statsCollector) report(p *kolea.Pipeline) string {
	g := color.New(color.FgGreen)
	y := color.New(color.FgYellow)
	r := color.New(color.FgRed)

	state := p.State()
	stateStr := g.Sprintf("%s", state)
	if state != kolea.StateSynced {
		stateStr = y.Sprintf("%s", state)
	}

	dropped := p.DroppedAUs()
	droppedStr := fmt.Sprintf("%d", dropped)
	if dropped > 0 {
		droppedStr = r.Sprintf("%d", dropped)
	}

	return fmt.Sprintf("state=%s aus=%d bytes=%d incomplete=%d dropped_nalus=%d dropped_aus=%s",
		stateStr,
		atomic.LoadUint64(&s.aus),
		atomic.LoadUint64(&s.bytes),
		atomic.LoadUint64(&s.incomplet),
		p.DroppedNALUs(),
		droppedStr,
	)
}
