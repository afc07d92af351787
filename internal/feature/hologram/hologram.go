// Package hologram keeps an arena's descriptive holograms up to date.
package hologram

import (
	"strings"
	"sync"
)

// Display is a host text display.
type Display interface {
	Init()
	Clear()
	Initialized() bool
	SetLines(lines []string)
}

// Replacer resolves one {variable}. ok is false when it is unknown, and the
// placeholder is then left untouched.
type Replacer interface {
	Replace(variable string) (string, bool)
}

type ReplacerFunc func(variable string) (string, bool)

func (f ReplacerFunc) Replace(variable string) (string, bool) { return f(variable) }

type updater struct {
	display Display
	lines   []string
}

// Descriptive renders templated lines onto a set of displays.
type Descriptive struct {
	replacer Replacer

	mu       sync.Mutex
	updaters []updater
}

func NewDescriptive(r Replacer) *Descriptive {
	return &Descriptive{replacer: r}
}

// Add registers a display with its template lines. Empty templates are ignored.
func (d *Descriptive) Add(display Display, lines []string) {
	if display == nil || len(lines) == 0 {
		return
	}
	d.mu.Lock()
	d.updaters = append(d.updaters, updater{display: display, lines: append([]string(nil), lines...)})
	d.mu.Unlock()
}

func (d *Descriptive) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.updaters)
}

func (d *Descriptive) each(fn func(updater)) {
	d.mu.Lock()
	us := append([]updater(nil), d.updaters...)
	d.mu.Unlock()
	for _, u := range us {
		fn(u)
	}
}

// Init (re)initialises every display.
func (d *Descriptive) Init() {
	d.each(func(u updater) {
		if u.display.Initialized() {
			u.display.Clear()
		}
		u.display.Init()
	})
}

// Update re-renders the lines of every initialised display.
func (d *Descriptive) Update() {
	d.each(func(u updater) {
		if !u.display.Initialized() {
			return
		}
		out := make([]string, len(u.lines))
		for i, line := range u.lines {
			out[i] = Colorize(Expand(line, d.replacer))
		}
		u.display.SetLines(out)
	})
}

// ClearAll clears every initialised display but keeps them registered.
func (d *Descriptive) ClearAll() {
	d.each(func(u updater) {
		if u.display.Initialized() {
			u.display.Clear()
		}
	})
}

// Clear clears and forgets every display.
func (d *Descriptive) Clear() {
	d.ClearAll()
	d.mu.Lock()
	d.updaters = nil
	d.mu.Unlock()
}

// Expand replaces each {name} in line with r's value for it.
func Expand(line string, r Replacer) string {
	if r == nil || !strings.Contains(line, "{") {
		return line
	}
	var b strings.Builder
	for {
		open := strings.IndexByte(line, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(line[open+1:], '}')
		if end < 0 {
			break
		}
		end += open + 1
		b.WriteString(line[:open])
		name := line[open+1 : end]
		if v, ok := r.Replace(name); ok {
			b.WriteString(v)
		} else {
			b.WriteString(line[open : end+1])
		}
		line = line[end+1:]
	}
	b.WriteString(line)
	return b.String()
}

// Colorize turns &-prefixed color codes into section-sign codes.
func Colorize(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	rs := []rune(s)
	for i := 0; i < len(rs)-1; i++ {
		if rs[i] == '&' && strings.ContainsRune("0123456789abcdefklmnorABCDEFKLMNOR", rs[i+1]) {
			rs[i] = '§'
			rs[i+1] = []rune(strings.ToLower(string(rs[i+1])))[0]
		}
	}
	return string(rs)
}
