// Package command implements the admin console commands. Execute and
// Complete are called from the game loop goroutine only.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gitbgo/server/internal/arena"
	"github.com/gitbgo/server/internal/core/entity"
	"github.com/gitbgo/server/internal/persist"
	"github.com/gitbgo/server/internal/world"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

// Leaderboard reads all-time totals. RoundRepo satisfies it.
type Leaderboard interface {
	Leaderboard(ctx context.Context, limit int) ([]persist.PlayerTotal, error)
	TotalPoints(ctx context.Context, player uuid.UUID) (int, error)
}

// RewardLog reads granted rewards. RewardRepo satisfies it.
type RewardLog interface {
	ListFor(ctx context.Context, player uuid.UUID) ([]persist.Reward, error)
}

type handlerFunc func(ctx context.Context, args []string) (string, error)

type command struct {
	usage string
	run   handlerFunc
}

type Dispatcher struct {
	arenas  *arena.Manager
	world   *world.State
	board   Leaderboard
	rewards RewardLog
	fold    cases.Caser
	log     *zap.Logger

	commands map[string]command
}

// NewDispatcher wires the built-in commands. board and rewards may be nil
// when persistence is disabled.
func NewDispatcher(arenas *arena.Manager, w *world.State, board Leaderboard, rewards RewardLog, log *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		arenas:  arenas,
		world:   w,
		board:   board,
		rewards: rewards,
		fold:    cases.Fold(),
		log:     log,
	}
	d.commands = map[string]command{
		"help":        {"help", d.help},
		"arenas":      {"arenas", d.listArenas},
		"action":      {"action <planner> <action> [args...]", d.action},
		"points":      {"points <planner>", d.points},
		"region":      {"region load|unload <world> <x> <z>", d.region},
		"regions":     {"regions", d.regions},
		"leaderboard": {"leaderboard [limit]", d.leaderboard},
		"stats":       {"stats <player>", d.stats},
	}
	return d
}

// Execute runs one console line and returns the text to show the operator.
func (d *Dispatcher) Execute(ctx context.Context, line string) (reply string, err error) {
	raw := strings.TrimLeft(strings.TrimRight(line, "\r\n"), " \t")
	if rest, ok := strings.CutPrefix(raw, "complete "); ok {
		return strings.Join(d.Complete(rest), " "), nil
	}
	line = strings.TrimSpace(raw)
	if line == "" {
		return "", nil
	}
	if line == "complete" {
		return strings.Join(d.Complete(""), " "), nil
	}
	parts := strings.Fields(line)
	name := d.fold.String(parts[0])
	cmd, ok := d.commands[name]
	if !ok {
		return "", fmt.Errorf("%q: %w", parts[0], ErrUnknownCommand)
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("command panic recovered", zap.String("line", line), zap.Any("panic", r))
			err = fmt.Errorf("command %s panicked: %v", name, r)
		}
	}()
	reply, err = cmd.run(ctx, parts[1:])
	if errors.Is(err, ErrUsage) {
		err = fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
	}
	return reply, err
}

// ── commands ────────────────────────────────────────────────────────

func (d *Dispatcher) help(context.Context, []string) (string, error) {
	names := d.commandNames()
	lines := make([]string, len(names))
	for i, n := range names {
		lines[i] = d.commands[n].usage
	}
	return strings.Join(lines, "\n"), nil
}

func (d *Dispatcher) listArenas(context.Context, []string) (string, error) {
	var b strings.Builder
	for _, pn := range d.arenas.Names() {
		p, _ := d.arenas.Planner(pn)
		fmt.Fprintf(&b, "%s:", pn)
		for _, an := range p.ArenaNames() {
			a, _ := p.Arena(an)
			fmt.Fprintf(&b, " %s", a)
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func (d *Dispatcher) action(_ context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", ErrUsage
	}
	p, err := d.planner(args[0])
	if err != nil {
		return "", err
	}
	act := d.fold.String(args[1])
	if err := p.Action(act, args[2:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s: %s done", p.Name(), act), nil
}

func (d *Dispatcher) points(_ context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", ErrUsage
	}
	p, err := d.planner(args[0])
	if err != nil {
		return "", err
	}
	a, ok := p.Current()
	if !ok {
		return "", arena.ErrNoRound
	}
	top := a.Points().Top()
	if len(top) == 0 {
		return a.Name() + ": no points yet", nil
	}
	lines := make([]string, len(top))
	for i, e := range top {
		lines[i] = fmt.Sprintf("%d. %s %d", i+1, a.PlayerName(e.ID), e.Points)
	}
	return strings.Join(lines, "\n"), nil
}

func (d *Dispatcher) region(_ context.Context, args []string) (string, error) {
	if len(args) != 4 {
		return "", ErrUsage
	}
	x, errX := strconv.ParseFloat(args[2], 64)
	z, errZ := strconv.ParseFloat(args[3], 64)
	if errX != nil || errZ != nil {
		return "", ErrUsage
	}
	loc := entity.Location{World: args[1], X: x, Z: z}
	switch d.fold.String(args[0]) {
	case "load":
		r := d.world.LoadRegion(loc)
		return fmt.Sprintf("loaded %s", r), nil
	case "unload":
		n := d.world.UnloadRegion(loc)
		return fmt.Sprintf("unloaded %s, %d entities removed", loc.Region(d.world.RegionSize()), n), nil
	}
	return "", ErrUsage
}

func (d *Dispatcher) regions(context.Context, []string) (string, error) {
	rs := d.world.LoadedRegions()
	if len(rs) == 0 {
		return "no regions loaded", nil
	}
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.String()
	}
	return strings.Join(out, " "), nil
}

func (d *Dispatcher) leaderboard(ctx context.Context, args []string) (string, error) {
	if d.board == nil {
		return "", persist.ErrDisabled
	}
	limit := 10
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return "", ErrUsage
		}
		limit = n
	} else if len(args) > 1 {
		return "", ErrUsage
	}
	totals, err := d.board.Leaderboard(ctx, limit)
	if err != nil {
		return "", err
	}
	if len(totals) == 0 {
		return "no rounds recorded", nil
	}
	lines := make([]string, len(totals))
	for i, t := range totals {
		lines[i] = fmt.Sprintf("%d. %s %d (%d rounds)", i+1, t.Name, t.Points, t.Rounds)
	}
	return strings.Join(lines, "\n"), nil
}

// stats shows a player's all-time points and the rewards they were granted.
func (d *Dispatcher) stats(ctx context.Context, args []string) (string, error) {
	if len(args) != 1 {
		return "", ErrUsage
	}
	if d.board == nil || d.rewards == nil {
		return "", persist.ErrDisabled
	}
	id := arena.OfflineID(args[0])
	total, err := d.board.TotalPoints(ctx, id)
	if err != nil {
		return "", err
	}
	granted, err := d.rewards.ListFor(ctx, id)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d points", args[0], total)
	if len(granted) == 0 {
		b.WriteString(", no rewards")
	}
	for _, rw := range granted {
		fmt.Fprintf(&b, "\n  #%d %s (round %s)", rw.Rank, rw.Reward, rw.RoundID)
	}
	return b.String(), nil
}

func (d *Dispatcher) planner(name string) (*arena.Planner, error) {
	p, ok := d.arenas.Planner(name)
	if !ok {
		return nil, fmt.Errorf("planner %q not found", name)
	}
	return p, nil
}

func (d *Dispatcher) commandNames() []string {
	names := make([]string, 0, len(d.commands))
	for n := range d.commands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ── completion ──────────────────────────────────────────────────────

// Complete suggests values for the last word of line. A trailing space
// means a new, empty word is being completed.
func (d *Dispatcher) Complete(line string) []string {
	words := strings.Fields(line)
	if len(words) == 0 || strings.HasSuffix(line, " ") {
		words = append(words, "")
	}
	last := len(words) - 1
	prefix := d.fold.String(words[last])
	if last == 0 {
		return filter(d.commandNames(), prefix)
	}

	switch d.fold.String(words[0]) {
	case "action":
		switch last {
		case 1:
			return filter(d.arenas.Names(), prefix)
		case 2:
			if p, ok := d.arenas.Planner(words[1]); ok {
				return filter(p.Actions(), prefix)
			}
		default:
			if p, ok := d.arenas.Planner(words[1]); ok {
				return filter(p.ActionArgs(d.fold.String(words[2]), last-3), prefix)
			}
		}
	case "points":
		if last == 1 {
			return filter(d.arenas.Names(), prefix)
		}
	case "region":
		switch last {
		case 1:
			return filter([]string{"load", "unload"}, prefix)
		case 2:
			return filter(d.worlds(), prefix)
		}
	}
	return nil
}

func (d *Dispatcher) worlds() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range d.world.LoadedRegions() {
		if _, ok := seen[r.World]; !ok {
			seen[r.World] = struct{}{}
			out = append(out, r.World)
		}
	}
	return out
}

func filter(candidates []string, prefix string) []string {
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(strings.ToLower(c), prefix) {
			out = append(out, c)
		}
	}
	return out
}
