package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/baaaaaaaka/rproxy/internal/proc"
)

var errQuit = errors.New("quit")

var newScreen = tcell.NewScreen

type Options struct {
	LoadProcesses func(context.Context) ([]proc.Info, error)
	// ProxyURL is shown in the status line.
	ProxyURL string
	// Filter pre-fills the process filter.
	Filter string
}

type uiEvent struct {
	when time.Time
	kind string
}

func (e *uiEvent) When() time.Time { return e.when }

type rect struct {
	y int
	x int
	h int
	w int
}

// cursor is the highlighted row and the first row on screen, both indexes
// into the filtered list.
type cursor struct {
	row int
	top int
}

type uiState struct {
	processes   []proc.Info
	loadError   error
	filter      string
	inputMode   bool
	inputBuffer string
	cur         cursor
}

// SelectProcess shows the process list and returns the chosen entry, or nil
// when the user quits.
func SelectProcess(ctx context.Context, opts Options) (*proc.Info, error) {
	if opts.LoadProcesses == nil {
		return nil, errors.New("LoadProcesses is required")
	}

	state := &uiState{filter: strings.TrimSpace(opts.Filter)}
	refreshState(ctx, state, opts)

	screen, err := newScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	defer screen.Fini()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			screen.PostEvent(&uiEvent{when: time.Now(), kind: "quit"})
		case <-done:
		}
	}()

	for {
		draw(screen, state, opts)
		ev := screen.PollEvent()

		switch tev := ev.(type) {
		case nil:
			return nil, ctx.Err()
		case *uiEvent:
			if tev.kind == "quit" {
				return nil, ctx.Err()
			}
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			_, h := screen.Size()
			selection, err := handleKey(ctx, state, opts, tev, listHeight(h))
			if err != nil {
				if errors.Is(err, errQuit) {
					return nil, nil
				}
				return nil, err
			}
			if selection != nil {
				return selection, nil
			}
		}
	}
}

func handleKey(ctx context.Context, state *uiState, opts Options, ev *tcell.EventKey, viewH int) (*proc.Info, error) {
	if state.inputMode {
		switch ev.Key() {
		case tcell.KeyESC:
			state.inputMode = false
			state.inputBuffer = ""
		case tcell.KeyEnter:
			state.filter = strings.TrimSpace(state.inputBuffer)
			state.inputMode = false
			state.inputBuffer = ""
			state.cur = cursor{}
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			if r := []rune(state.inputBuffer); len(r) > 0 {
				state.inputBuffer = string(r[:len(r)-1])
			}
		case tcell.KeyRune:
			if ch := ev.Rune(); ch >= 32 {
				state.inputBuffer += string(ch)
			}
		}
		return nil, nil
	}

	visible := state.visible()
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyESC:
		return nil, errQuit
	case tcell.KeyCtrlR:
		refreshState(ctx, state, opts)
		return nil, nil
	case tcell.KeyEnter:
		if len(visible) == 0 {
			return nil, nil
		}
		info := visible[clamp(state.cur.row, 0, len(visible)-1)]
		return &info, nil
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return nil, errQuit
		case 'r', 'R':
			refreshState(ctx, state, opts)
			return nil, nil
		case '/':
			state.inputMode = true
			state.inputBuffer = state.filter
			return nil, nil
		}
	}
	if delta := navDelta(ev, viewH); delta != 0 {
		state.cur.move(delta, len(visible), viewH)
	}
	return nil, nil
}

// refreshState takes a new snapshot and keeps the cursor on the same pid when
// it is still present.
func refreshState(ctx context.Context, state *uiState, opts Options) {
	prevPID := -1
	if visible := state.visible(); len(visible) > 0 {
		prevPID = visible[clamp(state.cur.row, 0, len(visible)-1)].PID
	}

	state.processes, state.loadError = opts.LoadProcesses(ctx)

	visible := state.visible()
	state.cur.row = 0
	for i, info := range visible {
		if info.PID == prevPID {
			state.cur.row = i
			break
		}
	}
}

func (s *uiState) visible() []proc.Info {
	return proc.Filter(s.processes, s.filter)
}

func listHeight(screenH int) int {
	// Box borders plus the status line.
	return max(0, screenH-3)
}

func draw(screen tcell.Screen, state *uiState, opts Options) {
	screen.Clear()
	w, h := screen.Size()
	if w <= 0 || h <= 0 {
		screen.Show()
		return
	}

	visible := state.visible()
	viewH := listHeight(h)
	state.cur.place(len(visible), viewH)

	box := rect{y: 0, x: 0, h: max(0, h-1), w: w}
	drawFrame(screen, box, fmt.Sprintf("Processes (%d/%d)", len(visible), len(state.processes)), state.filter)

	rows := make([]string, 0, viewH)
	for i := state.cur.top; i < len(visible) && len(rows) < viewH; i++ {
		rows = append(rows, visible[i].DisplayText())
	}
	drawRows(screen, box, rows, state.cur.row-state.cur.top)

	putText(screen, 0, h-1, fit(statusText(state, opts), w), tcell.StyleDefault.Reverse(true))
	screen.Show()
}

func statusText(state *uiState, opts Options) string {
	if state.inputMode {
		return "/" + state.inputBuffer
	}
	var parts []string
	if state.loadError != nil {
		parts = append(parts, "error: "+state.loadError.Error())
	}
	if opts.ProxyURL != "" {
		parts = append(parts, "proxy "+opts.ProxyURL)
	}
	parts = append(parts, "Enter launch", "/ filter", "r refresh", "q quit")
	return strings.Join(parts, " | ")
}

// Sentinel deltas for jumps to either end of the list.
const (
	toFirst = math.MinInt32
	toLast  = math.MaxInt32
)

// navDelta maps a navigation key to a cursor offset. Zero means the key does
// not move the cursor.
func navDelta(ev *tcell.EventKey, page int) int {
	page = max(1, page)
	switch ev.Key() {
	case tcell.KeyUp:
		return -1
	case tcell.KeyDown:
		return 1
	case tcell.KeyPgUp:
		return -page
	case tcell.KeyPgDn:
		return page
	case tcell.KeyHome:
		return toFirst
	case tcell.KeyEnd:
		return toLast
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'k', 'K':
			return -1
		case 'j', 'J':
			return 1
		case 'g':
			return toFirst
		case 'G':
			return toLast
		}
	}
	return 0
}

// move shifts the cursor by delta rows, stopping at either end.
func (c *cursor) move(delta, n, viewH int) {
	switch delta {
	case toFirst:
		c.row = 0
	case toLast:
		c.row = n - 1
	default:
		c.row += delta
	}
	c.place(n, viewH)
}

// place clamps the cursor to n rows and scrolls the window of viewH rows
// until the cursor row is inside it.
func (c *cursor) place(n, viewH int) {
	if n <= 0 {
		*c = cursor{}
		return
	}
	c.row = clamp(c.row, 0, n-1)
	if viewH <= 0 {
		c.top = 0
		return
	}
	switch {
	case c.row < c.top:
		c.top = c.row
	case c.row >= c.top+viewH:
		c.top = c.row - viewH + 1
	}
	c.top = clamp(c.top, 0, max(0, n-viewH))
}

// drawFrame outlines r, centers title on the top edge and shows the active
// filter on the bottom edge.
func drawFrame(screen tcell.Screen, r rect, title, filter string) {
	if r.w < 2 || r.h < 2 {
		return
	}
	style := tcell.StyleDefault.Bold(true)
	right, bottom := r.x+r.w-1, r.y+r.h-1
	for x := r.x + 1; x < right; x++ {
		screen.SetContent(x, r.y, tcell.RuneHLine, nil, style)
		screen.SetContent(x, bottom, tcell.RuneHLine, nil, style)
	}
	for y := r.y + 1; y < bottom; y++ {
		screen.SetContent(r.x, y, tcell.RuneVLine, nil, style)
		screen.SetContent(right, y, tcell.RuneVLine, nil, style)
	}
	screen.SetContent(r.x, r.y, tcell.RuneULCorner, nil, style)
	screen.SetContent(right, r.y, tcell.RuneURCorner, nil, style)
	screen.SetContent(r.x, bottom, tcell.RuneLLCorner, nil, style)
	screen.SetContent(right, bottom, tcell.RuneLRCorner, nil, style)

	inner := r.w - 2
	title = runewidth.Truncate(" "+title+" ", inner, ellipsis)
	titleX := r.x + 1 + max(0, (inner-runewidth.StringWidth(title))/2)
	putText(screen, titleX, r.y, title, tcell.StyleDefault.Reverse(true).Bold(true))

	if filter == "" {
		return
	}
	x := putText(screen, r.x+1, bottom, runewidth.Truncate(" filter: ", inner, ""), style.Dim(true))
	if room := right - x; room > 0 {
		putText(screen, x, bottom, runewidth.Truncate(filter+" ", room, ellipsis), style)
	}
}

func drawRows(screen tcell.Screen, r rect, rows []string, selected int) {
	if r.h < 3 || r.w < 4 {
		return
	}
	innerW := r.w - 2
	for i := 0; i < r.h-2 && i < len(rows); i++ {
		style := tcell.StyleDefault
		if i == selected {
			style = style.Reverse(true).Bold(true)
		}
		putText(screen, r.x+1, r.y+1+i, fit(rows[i], innerW), style)
	}
}

// putText draws text starting at column x and returns the column after it.
func putText(screen tcell.Screen, x, y int, text string, style tcell.Style) int {
	for _, ch := range text {
		w := runewidth.RuneWidth(ch)
		if w == 0 {
			continue
		}
		screen.SetContent(x, y, ch, nil, style)
		x += w
	}
	return x
}

const ellipsis = "…"

// fit renders s in exactly width cells. Longer text is cut and ends with an
// ellipsis.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, ellipsis)
	}
	return runewidth.FillRight(s, width)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
