package main

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/redact"
	"github.com/nate007-quant/mission-control/internal/service"
)

// result holds the fields merged into a successful response.
type result map[string]any

// usageError reports bad arguments. It counts as invalid input.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }
func (e *usageError) Unwrap() error { return domain.ErrValidation }

// printer writes the single JSON object each command produces. Output is
// indented when stdout is a terminal.
type printer struct {
	w      io.Writer
	indent bool
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w}
	if f, ok := w.(*os.File); ok {
		p.indent = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return p
}

func (p *printer) write(v map[string]any) {
	enc := json.NewEncoder(p.w)
	if p.indent {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func (p *printer) ok(res result) int {
	out := map[string]any{"ok": true}
	for k, v := range res {
		out[k] = v
	}
	p.write(out)
	return 0
}

func (p *printer) fail(err error) int {
	p.write(map[string]any{
		"ok":    false,
		"error": redact.Error(err),
		"kind":  errorKind(err),
	})
	return 1
}

func errorKind(err error) string {
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return service.KindInternal
	}
	return service.ErrorKind(err)
}
