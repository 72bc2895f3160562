package prompt

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xpost/internal/config"
)

func newTest(input string, attempts int) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	return New(Config{In: strings.NewReader(input), Out: &out, MaxAttempts: attempts}), &out
}

func TestStringRetriesUntilNonEmpty(t *testing.T) {
	t.Parallel()
	p, out := newTest("\n  \nHello\n", 5)
	got, err := p.String(context.Background(), "title", true)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got)
	assert.Equal(t, 2, strings.Count(out.String(), "title is required"))
	assert.Equal(t, 3, strings.Count(out.String(), "Input title: "))
}

func TestStringGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	p, _ := newTest("\n\n\nlate\n", 2)
	_, err := p.String(context.Background(), "title", true)
	require.ErrorIs(t, err, ErrNoAnswer)
}

func TestStringEndOfInput(t *testing.T) {
	t.Parallel()
	p, _ := newTest("", 5)
	_, err := p.String(context.Background(), "body", true)
	require.ErrorIs(t, err, ErrNoAnswer)

	p, _ = newTest("last line without newline", 5)
	got, err := p.String(context.Background(), "body", true)
	require.NoError(t, err)
	assert.Equal(t, "last line without newline", got)
}

func TestStringCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _ := newTest("x\n", 5)
	_, err := p.String(ctx, "title", true)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStringCancelledWhileReading(t *testing.T) {
	t.Parallel()
	r, w := io.Pipe()
	defer w.Close()
	p := New(Config{In: r, Out: io.Discard})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.String(ctx, "title", true)
		done <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("String still blocked after cancel")
	}

	// The abandoned read delivers to the next question.
	go func() { _, _ = io.WriteString(w, "Hello\n") }()
	got, err := p.String(context.Background(), "title", true)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got)
}

func TestListSplitsAndRequiresEntries(t *testing.T) {
	t.Parallel()
	p, out := newTest(" , ,\nalpha, beta ,,gamma\n", 5)
	got, err := p.List(context.Background(), "destinations", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, got)
	assert.Contains(t, out.String(), "destinations is required")
}

func TestSecretUsesReader(t *testing.T) {
	t.Parallel()
	p := New(Config{In: strings.NewReader(""), ReadSecret: func() (string, error) { return "hunter2", nil }})
	got, err := p.Secret(context.Background(), "password", true)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)
}

func TestBool(t *testing.T) {
	t.Parallel()
	p, _ := newTest("maybe\nyes\n\n", 5)
	b, err := p.Bool(context.Background(), "strict", false)
	require.NoError(t, err)
	assert.True(t, b)

	b, err = p.Bool(context.Background(), "strict", true)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestFillBuildsFragment(t *testing.T) {
	t.Parallel()
	p, _ := newTest("alice\nsecret\ntext\nalpha,beta\n", 5)
	frag, err := p.Fill(context.Background(),
		[]string{config.FieldUserName, config.FieldPassword, config.FieldKind, config.FieldDestinations},
		config.PartialConfig{})
	require.NoError(t, err)
	assert.Equal(t, config.Some("alice"), frag.UserName)
	assert.Equal(t, config.Some("secret"), frag.Password)
	assert.Equal(t, config.Some("text"), frag.Kind)
	assert.Equal(t, config.Some([]string{"alpha", "beta"}), frag.Destinations)
	assert.False(t, frag.Title.Present())
}
