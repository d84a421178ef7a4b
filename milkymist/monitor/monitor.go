// Package monitor renders a live terminal view of the AC'97 controller:
// the register file, derived channel state and interrupt pulse counts.
package monitor

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/mmst/go-milkymist/milkymist/ac97"
	"github.com/mmst/go-milkymist/milkymist/irq"
)

const refreshInterval = 100 * time.Millisecond

// PulseCounters are the four interrupt outputs as observed by the
// machine's counters.
type PulseCounters struct {
	CodecRequest *irq.Counter
	CodecReply   *irq.Counter
	DMARead      *irq.Counter
	DMAWrite     *irq.Counter
}

// Monitor owns a tcell screen for the duration of Run.
type Monitor struct {
	screen tcell.Screen
	dev    *ac97.AC97
	pulses PulseCounters
}

// New initializes the terminal screen.
func New(dev *ac97.AC97, pulses PulseCounters) (*Monitor, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	return &Monitor{screen: screen, dev: dev, pulses: pulses}, nil
}

// Run redraws until the user quits (q, ESC or Ctrl-C) or done closes.
func (m *Monitor) Run(done <-chan struct{}) {
	defer m.screen.Fini()

	events := make(chan tcell.Event, 8)
	quit := make(chan struct{})
	go m.screen.ChannelEvents(events, quit)
	defer close(quit)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.draw()
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return
				}
			case *tcell.EventResize:
				m.screen.Sync()
			}
		}
	}
}

func (m *Monitor) draw() {
	m.screen.Clear()

	title := tcell.StyleDefault.Bold(true)
	normal := tcell.StyleDefault
	dim := tcell.StyleDefault.Dim(true)

	drawText(m.screen, 0, 0, title, "Milkymist AC'97")
	drawText(m.screen, 0, 1, dim, "q to quit")

	regs := m.dev.Snapshot()
	row := 3
	for i, v := range regs {
		if i == 7 {
			continue
		}
		drawText(m.screen, 0, row, normal,
			fmt.Sprintf("%-13s 0x%08X", ac97.RegName(i), v))
		row++
	}

	row++
	drawText(m.screen, 0, row, title, "pulses")
	row++
	for _, p := range []struct {
		name string
		c    *irq.Counter
	}{
		{"codec request", m.pulses.CodecRequest},
		{"codec reply", m.pulses.CodecReply},
		{"dma read", m.pulses.DMARead},
		{"dma write", m.pulses.DMAWrite},
	} {
		if p.c == nil {
			continue
		}
		drawText(m.screen, 0, row, normal, fmt.Sprintf("%-13s %d", p.name, p.c.Count()))
		row++
	}

	m.screen.Show()
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range text {
		s.SetContent(x+i, y, r, nil, style)
	}
}
