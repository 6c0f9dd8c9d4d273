package main

import (
	"bytes"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/priyanshu-verma600/notekeeper/internal/address"
	"github.com/priyanshu-verma600/notekeeper/internal/ledger"
	"github.com/priyanshu-verma600/notekeeper/internal/models"
	"github.com/priyanshu-verma600/notekeeper/internal/repository"
	handler "github.com/priyanshu-verma600/notekeeper/internal/server/handler/http"
	"github.com/priyanshu-verma600/notekeeper/internal/service"
)

func newTestOptions(t *testing.T) *rootOptions {
	t.Helper()
	svc := service.NewNoteService(repository.NewMemoryLedger(ledger.DefaultRent()), address.New(address.DefaultNamespace), nil)
	srv := httptest.NewServer(handler.NewRouter(&handler.NoteHandler{NoteService: svc}, zap.NewNop(), time.Minute))
	t.Cleanup(srv.Close)

	opts := defaultOptions()
	opts.Server = srv.URL
	opts.CAFile = ""
	opts.KeyFile = filepath.Join(t.TempDir(), "id.pem")
	return opts
}

func execute(t *testing.T, opts *rootOptions, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands_Lifecycle(t *testing.T) {
	opts := newTestOptions(t)

	out, err := execute(t, opts, "keygen")
	require.NoError(t, err)
	assert.Contains(t, out, "Identity: ")

	out, err = execute(t, opts, "register", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile created at ")

	out, err = execute(t, opts, "create", "groceries", "milk and eggs")
	require.NoError(t, err)
	assert.Contains(t, out, "Note 1 created at ")

	out, err = execute(t, opts, "update", "1", "just milk")
	require.NoError(t, err)
	assert.Equal(t, "Note 1 updated\n", out)

	out, err = execute(t, opts, "get", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"content": "just milk"`)

	out, err = execute(t, opts, "profile")
	require.NoError(t, err)
	assert.Contains(t, out, `"note_count": 1`)

	out, err = execute(t, opts, "delete", "1")
	require.NoError(t, err)
	assert.Equal(t, "Note 1 deleted\n", out)

	_, err = execute(t, opts, "get", "1")
	assert.ErrorIs(t, err, models.ErrNoteNotFound)

	out, err = execute(t, opts, "balance")
	require.NoError(t, err)
	assert.Contains(t, out, " lamports")
}

func TestCommands_Errors(t *testing.T) {
	opts := newTestOptions(t)

	_, err := execute(t, opts, "register", "alice")
	assert.ErrorContains(t, err, "run keygen first")

	_, err = execute(t, opts, "keygen")
	require.NoError(t, err)
	_, err = execute(t, opts, "keygen")
	assert.Error(t, err, "keygen must not overwrite an existing key")

	_, err = execute(t, opts, "create", "title", "content")
	assert.ErrorIs(t, err, models.ErrProfileNotFound)

	_, err = execute(t, opts, "update", "one", "content")
	assert.ErrorContains(t, err, "invalid note id")

	_, err = execute(t, opts, "get", "1", "--owner", "nothex")
	assert.Error(t, err)
}

// scriptReader feeds fixed lines to the shell.
type scriptReader struct {
	lines []string
}

func (s *scriptReader) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	if line == "^C" {
		return "", readline.ErrInterrupt
	}
	return line, nil
}

func TestRunShell(t *testing.T) {
	opts := newTestOptions(t)
	_, err := execute(t, opts, "keygen")
	require.NoError(t, err)

	var out bytes.Buffer
	rl := &scriptReader{lines: []string{
		"",
		"register alice",
		`create "two words" "some content here"`,
		"^C",
		"shell",
		"get 1",
		"delete 7",
		"exit",
		"register never-reached",
	}}
	require.NoError(t, runShell(rl, &out, opts))

	got := out.String()
	assert.Contains(t, got, "Profile created at ")
	assert.Contains(t, got, "Note 1 created at ")
	assert.Contains(t, got, `"title": "two words"`)
	assert.Contains(t, got, "Use 'exit' or 'quit'")
	assert.Contains(t, got, "Already in the shell.")
	assert.Contains(t, got, "Error: note not found")
	assert.True(t, strings.HasSuffix(got, "Bye\n"))
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{"", nil, false},
		{"  get   1 ", []string{"get", "1"}, false},
		{`create "a b" c`, []string{"create", "a b", "c"}, false},
		{`update 1 ""`, []string{"update", "1", ""}, false},
		{`say \"hi\"`, []string{"say", `"hi"`}, false},
		{`create "open`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
