package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// DiscardHandler drops all records, used before the root logger is wired up.
func DiscardHandler() Handler { return discardHandler{} }

type discardHandler struct{}

func (discardHandler) Log(*Record) error { return nil }

// FuncHandler turns a function into a Handler.
func FuncHandler(fn func(r *Record) error) Handler { return funcHandler(fn) }

type funcHandler func(r *Record) error

func (h funcHandler) Log(r *Record) error { return h(r) }

// SyncHandler synchronizes concurrent writes to a handler that is not
// itself safe for concurrent use, matching StreamHandler's usage below.
func SyncHandler(h Handler) Handler {
	var mu sync.Mutex
	return FuncHandler(func(r *Record) error {
		mu.Lock()
		defer mu.Unlock()
		return h.Log(r)
	})
}

// StreamHandler writes records to wr, formatted by fmtr, serialized by an
// internal mutex so it is safe to share across goroutines.
func StreamHandler(wr io.Writer, fmtr Format) Handler {
	h := FuncHandler(func(r *Record) error {
		_, err := wr.Write(fmtr.Format(r))
		return err
	})
	return SyncHandler(h)
}

// MultiHandler fans a record out to every handler in hs.
func MultiHandler(hs ...Handler) Handler {
	return FuncHandler(func(r *Record) error {
		for _, h := range hs {
			_ = h.Log(r)
		}
		return nil
	})
}

// LvlFilterHandler drops records below maxLvl before delegating to h.
func LvlFilterHandler(maxLvl Lvl, h Handler) Handler {
	return FuncHandler(func(r *Record) error {
		if r.Lvl > maxLvl {
			return nil
		}
		return h.Log(r)
	})
}

// Format renders a Record to bytes.
type Format interface {
	Format(r *Record) []byte
}

type formatFunc func(*Record) []byte

func (f formatFunc) Format(r *Record) []byte { return f(r) }

var lvlColor = map[Lvl]color.Attribute{
	LvlCrit:  color.FgMagenta,
	LvlError: color.FgRed,
	LvlWarn:  color.FgYellow,
	LvlInfo:  color.FgGreen,
	LvlDebug: color.FgCyan,
	LvlTrace: color.FgBlue,
}

// TerminalFormat renders a human-readable, optionally ANSI-colored line,
// following go-ethereum's log.TerminalFormat convention.
func TerminalFormat(useColor bool) Format {
	return formatFunc(func(r *Record) []byte {
		var b strings.Builder
		ts := r.Time.Format("2006-01-02T15:04:05-0700")
		lvl := strings.ToUpper(r.Lvl.String())
		if useColor {
			c := color.New(lvlColor[r.Lvl]).SprintFunc()
			fmt.Fprintf(&b, "%s[%s] %s", ts, c(lvl), r.Msg)
		} else {
			fmt.Fprintf(&b, "%s[%s] %s", ts, lvl, r.Msg)
		}
		for i := 0; i+1 < len(r.Ctx); i += 2 {
			fmt.Fprintf(&b, " %v=%v", r.Ctx[i], r.Ctx[i+1])
		}
		b.WriteByte('\n')
		return []byte(b.String())
	})
}

// checkIsTerminal decides whether ANSI coloring is appropriate for wr,
// using the same colorable/isatty pair the teacher's go.mod already pins.
func checkIsTerminal(wr io.Writer) bool {
	if f, ok := wr.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Colorable wraps wr so ANSI sequences render correctly on Windows consoles,
// mirroring the teacher's use of mattn/go-colorable around os.Stderr/Stdout.
func Colorable(wr *os.File) io.Writer { return colorable.NewColorable(wr) }
