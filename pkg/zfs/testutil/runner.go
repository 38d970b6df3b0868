// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/stratastor/zfskit/pkg/zfs/command"
)

// Call is one recorded FakeRunner invocation.
type Call struct {
	Cmd  string
	Opts command.CommandOptions
	Args []string
}

// Line renders the call as "<cmd> <args...>" for assertions.
func (c Call) Line() string {
	if len(c.Args) == 0 {
		return c.Cmd
	}
	return c.Cmd + " " + strings.Join(c.Args, " ")
}

type reply struct {
	out string
	err error
}

// FakeRunner is a scripted command.Runner. Replies queue per subcommand; the
// last queued reply for a subcommand is repeated. Unscripted subcommands
// succeed with empty output.
type FakeRunner struct {
	mu      sync.Mutex
	Calls   []Call
	replies map[string][]reply
}

var _ command.Runner = (*FakeRunner)(nil)

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{replies: make(map[string][]reply)}
}

// On queues a reply for cmd, e.g. On("zfs list", "tank\tfilesystem\n", nil).
func (f *FakeRunner) On(cmd, out string, err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[cmd] = append(f.replies[cmd], reply{out: out, err: err})
	return f
}

func (f *FakeRunner) Execute(ctx context.Context, opts command.CommandOptions, cmd string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, Call{Cmd: cmd, Opts: opts, Args: append([]string(nil), args...)})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := f.replies[cmd]
	if len(q) == 0 {
		return nil, nil
	}
	r := q[0]
	if len(q) > 1 {
		f.replies[cmd] = q[1:]
	}
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.out), nil
}

// Lines returns every recorded call rendered by Call.Line.
func (f *FakeRunner) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		lines[i] = c.Line()
	}
	return lines
}
