// Package prompt asks the user for configuration values on a terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"xpost/internal/config"
)

const DefaultMaxAttempts = 5

var ErrNoAnswer = errors.New("no answer given")

type Config struct {
	In  io.Reader
	Out io.Writer
	// MaxAttempts bounds how often a required field is asked for.
	MaxAttempts int
	// ReadSecret reads one line without echo. Nil reads from In.
	ReadSecret func() (string, error)
}

// Prompter asks questions line by line. Not safe for concurrent use.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	maxAttempts int
	readSecret  func() (string, error)

	// pending is a read left running by a cancelled question. The next
	// question takes its answer instead of starting a second reader.
	pending chan answer
}

type answer struct {
	line string
	err  error
}

func New(cfg Config) *Prompter {
	n := cfg.MaxAttempts
	if n <= 0 {
		n = DefaultMaxAttempts
	}
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	return &Prompter{in: bufio.NewReader(cfg.In), out: out, maxAttempts: n, readSecret: cfg.ReadSecret}
}

// NewTerminal prompts on stdin/stdout; passwords are read without echo when
// stdin is a terminal.
func NewTerminal() *Prompter {
	cfg := Config{In: os.Stdin, Out: os.Stdout}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		cfg.ReadSecret = func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stdout)
			return string(b), err
		}
	}
	return New(cfg)
}

// IsTerminal reports whether stdin is attached to a terminal.
func IsTerminal() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readCtx runs read in its own goroutine so ctx can interrupt a blocked
// terminal read. The read itself cannot be stopped; it is kept as pending.
func (p *Prompter) readCtx(ctx context.Context, read func() (string, error)) (string, error) {
	ch := p.pending
	if ch == nil {
		ch = make(chan answer, 1)
		go func() {
			line, err := read()
			ch <- answer{line, err}
		}()
	}
	select {
	case a := <-ch:
		p.pending = nil
		return a.line, a.err
	case <-ctx.Done():
		p.pending = ch
		return "", ctx.Err()
	}
}

// ask repeats the question until read returns a non-blank answer, the
// attempts run out, input ends or ctx is done. Optional fields accept blank.
func (p *Prompter) ask(ctx context.Context, question, field string, required bool, read func() (string, error)) (string, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		fmt.Fprint(p.out, question)
		ans, err := p.readCtx(ctx, read)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				fmt.Fprintln(p.out)
				return "", err
			}
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%s: %w", field, ErrNoAnswer)
			}
			return "", fmt.Errorf("%s: %w", field, err)
		}
		if !required || strings.TrimSpace(ans) != "" {
			return ans, nil
		}
		fmt.Fprintf(p.out, "%s is required\n", field)
		if attempt >= p.maxAttempts {
			return "", fmt.Errorf("%s: %w after %d attempts", field, ErrNoAnswer, attempt)
		}
	}
}

// String asks for a single value.
func (p *Prompter) String(ctx context.Context, field string, required bool) (string, error) {
	return p.ask(ctx, "Input "+field+": ", field, required, p.readLine)
}

// Secret asks for a value without echoing it when possible.
func (p *Prompter) Secret(ctx context.Context, field string, required bool) (string, error) {
	read := p.readLine
	if p.readSecret != nil {
		read = p.readSecret
	}
	return p.ask(ctx, "Input "+field+": ", field, required, read)
}

// List asks for a comma separated list.
func (p *Prompter) List(ctx context.Context, field string, required bool) ([]string, error) {
	for attempt := 1; ; attempt++ {
		ans, err := p.ask(ctx, "Input as many "+field+" (separated by ,): ", field, required, p.readLine)
		if err != nil {
			return nil, err
		}
		list := config.SplitList(ans)
		if len(list) > 0 || !required {
			return list, nil
		}
		// Only commas and blanks.
		fmt.Fprintf(p.out, "%s is required\n", field)
		if attempt >= p.maxAttempts {
			return nil, fmt.Errorf("%s: %w after %d attempts", field, ErrNoAnswer, attempt)
		}
	}
}

// Bool asks a yes/no question; blank keeps def.
func (p *Prompter) Bool(ctx context.Context, field string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for attempt := 1; ; attempt++ {
		ans, err := p.ask(ctx, "Input "+field+" ("+hint+"): ", field, false, p.readLine)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(ans)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if b, err := strconv.ParseBool(strings.TrimSpace(ans)); err == nil {
			return b, nil
		}
		fmt.Fprintf(p.out, "%s: answer y or n\n", field)
		if attempt >= p.maxAttempts {
			return false, fmt.Errorf("%s: %w after %d attempts", field, ErrNoAnswer, attempt)
		}
	}
}

// Fill asks for each of fields and returns the answers as a fragment.
// Fields not listed stay absent.
func (p *Prompter) Fill(ctx context.Context, fields []string, current config.PartialConfig) (config.PartialConfig, error) {
	var out config.PartialConfig
	for _, f := range fields {
		switch f {
		case config.FieldStrict:
			b, err := p.Bool(ctx, f, current.Strict.OrElse(false))
			if err != nil {
				return out, err
			}
			out.Strict = config.Some(b)
		case config.FieldDestinations:
			list, err := p.List(ctx, f, true)
			if err != nil {
				return out, err
			}
			out.Destinations = config.Some(list)
		case config.FieldPassword:
			s, err := p.Secret(ctx, f, true)
			if err != nil {
				return out, err
			}
			out.Password = config.Some(s)
		default:
			s, err := p.String(ctx, f, true)
			if err != nil {
				return out, err
			}
			switch f {
			case config.FieldTitle:
				out.Title = config.Some(s)
			case config.FieldBody:
				out.Body = config.Some(s)
			case config.FieldKind:
				out.Kind = config.Some(s)
			case config.FieldUserName:
				out.UserName = config.Some(s)
			default:
				return out, fmt.Errorf("prompt: unknown field %q", f)
			}
		}
	}
	return out, nil
}
