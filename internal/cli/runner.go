package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/presenter"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

// Options carry the resolved configuration and output streams.
type Options struct {
	Config *config.Config
	Stdout io.Writer
	Stderr io.Writer

	// Blob overrides the configured backend.
	Blob store.Blob
}

func (o *Options) defaults() {
	if o.Config == nil {
		o.Config = config.Default()
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

type doneMode int

const (
	markDone doneMode = iota
	markPending
	flip
)

var errBadRef = errors.New("no such item")

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	opt.defaults()
	if len(args) == 0 {
		PrintHelp(opt.Stdout)
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(opt.Stdout)
		return 0

	case "ls":
		return doList(ctx, opt)

	case "tui":
		return doTUI(ctx, opt)

	case "add":
		if len(a) == 0 {
			ui.Fail(opt.Stderr, "usage: todo add <title...>")
			return 2
		}
		return doAdd(ctx, opt, strings.Join(a, " "))

	case "done", "undone", "toggle":
		if len(a) != 1 {
			ui.Fail(opt.Stderr, fmt.Sprintf("usage: todo %s <index|id>", cmd))
			return 2
		}
		mode := map[string]doneMode{"done": markDone, "undone": markPending, "toggle": flip}[cmd]
		return doSetDone(ctx, opt, a[0], mode)
	}

	ui.Fail(opt.Stderr, "unknown subcommand: "+cmd)
	fmt.Fprintln(opt.Stderr)
	PrintHelp(opt.Stderr)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `todo - a tiny todo list

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  add <title...>     Add a new item (title can be multiple words)
  ls                 List items, oldest first
  done <index|id>    Mark item done (index is 1-based, as shown by ls)
  undone <index|id>  Mark item pending again
  toggle <index|id>  Flip done/pending
  tui                Interactive list (space toggles, a adds, q quits)

Flags:
  -backend file|memory|redis|postgres   storage backend (default file)
  -data-dir DIR      directory for the file backend (default .)
  -key NAME          key the list is stored under (default todos)
  -redis-url URL     redis backend address
  -postgres-dsn DSN  postgres backend DSN
  -theme NAME        classic, neon or mono
  -group             ls: group output by pending/done
  -debug             verbose diagnostics
  -log-file FILE     write diagnostics to FILE (JSON lines)
  -retry-delay D     pause before retrying a failed write (default 200ms)
  -write-timeout D   timeout for a single storage write (default 5s)
  -config FILE       TOML config file (default .tada.toml)

Examples:
  todo add "Buy milk"
  todo ls
  todo done 2
`)
}

// -------------- subcommand impls ----------------

func doList(ctx context.Context, opt Options) int {
	sess, err := openSession(ctx, opt, opt.Stderr, nil)
	if err != nil {
		ui.Fail(opt.Stderr, err.Error())
		return 1
	}
	if err := sess.start(ctx); err != nil {
		_ = sess.close(ctx)
		ui.Fail(opt.Stderr, "load: "+err.Error())
		return 1
	}
	st := sess.presenter.State()
	if err := sess.close(ctx); err != nil {
		ui.Fail(opt.Stderr, err.Error())
		return 1
	}

	lines := []string{
		ui.Header(st.Done, st.Pending),
		ui.Current().Muted.Render(ui.ProgressBar(st.Done, st.Done+st.Pending, 28)),
		"",
	}
	if opt.Config.Group {
		lines = append(lines, groupLines(st.Items)...)
	} else {
		lines = append(lines, flatLines(st.Items)...)
	}
	lines = append(lines, "", ui.Current().Muted.Render("Tip: add with `todo add \"Buy milk\"`"))
	fmt.Fprintln(opt.Stdout, ui.Panel(lines))
	return 0
}

func doAdd(ctx context.Context, opt Options, title string) int {
	title = strings.TrimSpace(title)
	if title == "" {
		ui.Fail(opt.Stderr, "add: empty title")
		return 2
	}
	return withSession(ctx, opt, func(p *presenter.Presenter) int {
		if err := p.OnAddRequested(title); err != nil {
			ui.Fail(opt.Stderr, "add: "+err.Error())
			return 1
		}
		return 0
	}, "added")
}

func doSetDone(ctx context.Context, opt Options, ref string, mode doneMode) int {
	return withSession(ctx, opt, func(p *presenter.Presenter) int {
		it, err := resolveRef(p, ref)
		if err != nil {
			ui.Fail(opt.Stderr, err.Error())
			ui.Hint(opt.Stderr, "Hint: run `todo ls` to see valid indexes")
			return 2
		}
		done := mode == markDone
		if mode == flip {
			done = !it.Done
		}
		if err := p.OnToggleRequested(it.ID, done); err != nil {
			ui.Fail(opt.Stderr, err.Error())
			return 1
		}
		return 0
	}, map[doneMode]string{markDone: "done", markPending: "pending", flip: "toggled"}[mode])
}

// withSession loads, runs fn, then flushes. okMsg is printed only when fn
// succeeded and the write reached storage.
func withSession(ctx context.Context, opt Options, fn func(*presenter.Presenter) int, okMsg string) int {
	sess, err := openSession(ctx, opt, opt.Stderr, nil)
	if err != nil {
		ui.Fail(opt.Stderr, err.Error())
		return 1
	}
	if err := sess.start(ctx); err != nil {
		_ = sess.close(ctx)
		ui.Fail(opt.Stderr, "load: "+err.Error())
		return 1
	}
	code := fn(sess.presenter)
	if err := sess.close(ctx); err != nil {
		ui.Fail(opt.Stderr, err.Error())
		return 1
	}
	if code == 0 {
		ui.OK(opt.Stdout, okMsg)
	}
	return code
}

func doTUI(ctx context.Context, opt Options) int {
	// The alt screen owns the terminal; diagnostics only go to a log file.
	notifier := tui.NewNotifier()
	sess, err := openSession(ctx, opt, io.Discard, notifier.Render)
	if err != nil {
		ui.Fail(opt.Stderr, err.Error())
		return 1
	}
	runErr := tui.Run(ctx, sess.presenter, notifier)
	closeErr := sess.close(ctx)
	if runErr != nil {
		ui.Fail(opt.Stderr, "tui: "+runErr.Error())
		return 1
	}
	if closeErr != nil {
		ui.Fail(opt.Stderr, closeErr.Error())
		return 1
	}
	return 0
}

// resolveRef finds an item by 1-based display index, full ID, or unique ID prefix.
func resolveRef(p *presenter.Presenter, ref string) (model.Item, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		it, ok := p.ItemAt(n)
		if !ok {
			return model.Item{}, fmt.Errorf("index out of range: have %d, got %d", len(p.State().Items), n)
		}
		return it, nil
	}

	items := p.State().Items
	for _, it := range items {
		if it.ID == ref {
			return it, nil
		}
	}
	var match *model.Item
	for i := range items {
		if ref == "" || !strings.HasPrefix(items[i].ID, ref) {
			continue
		}
		if match != nil {
			return model.Item{}, fmt.Errorf("ambiguous id prefix %q", ref)
		}
		match = &items[i]
	}
	if match == nil {
		return model.Item{}, fmt.Errorf("%w: %q", errBadRef, ref)
	}
	return *match, nil
}

// -------------- rendering helpers --------------

const maxTitle = 80

func itemLine(index int, it model.Item) string {
	t := ui.Current()
	box := t.Muted.Render(t.BoxUnchecked)
	if it.Done {
		box = t.Success.Render(t.BoxChecked)
	}
	title := it.Title
	if r := []rune(title); len(r) > maxTitle {
		title = string(r[:maxTitle-3]) + "..."
	}
	return fmt.Sprintf("%s %s %s", t.Muted.Render(fmt.Sprintf("%2d.", index)), box, title)
}

func flatLines(items []model.Item) []string {
	if len(items) == 0 {
		return []string{ui.Current().Muted.Render("no items")}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		out = append(out, itemLine(i+1, it))
	}
	return out
}

// groupLines keeps each item's display index so it still matches `done <index>`.
func groupLines(items []model.Item) []string {
	t := ui.Current()
	var pend, done []string
	for i, it := range items {
		if it.Done {
			done = append(done, itemLine(i+1, it))
		} else {
			pend = append(pend, itemLine(i+1, it))
		}
	}
	section := func(title string, lines []string) []string {
		out := []string{t.Accent.Render(title)}
		if len(lines) == 0 {
			return append(out, t.Muted.Render("(none)"))
		}
		return append(out, lines...)
	}
	lines := section("Pending", pend)
	lines = append(lines, "")
	return append(lines, section("Done", done)...)
}
