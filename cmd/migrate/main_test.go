package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	calls   []string
	steps   int
	forced  int
	version uint
	dirty   bool
	err     error
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.err
}

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	f.steps = n
	return f.err
}

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return f.err
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	f.calls = append(f.calls, "version")
	return f.version, f.dirty, f.err
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args    []string
		want    command
		wantErr bool
	}{
		{args: nil, want: command{name: "up"}},
		{args: []string{"UP"}, want: command{name: "up"}},
		{args: []string{"down"}, want: command{name: "down", steps: 1}},
		{args: []string{"down", "2"}, want: command{name: "down", steps: 2}},
		{args: []string{"down", "0"}, wantErr: true},
		{args: []string{"force", "1"}, want: command{name: "force", steps: 1}},
		{args: []string{"force"}, wantErr: true},
		{args: []string{"force", "v1"}, wantErr: true},
		{args: []string{"version"}, want: command{name: "version"}},
		{args: []string{"version", "now"}, wantErr: true},
		{args: []string{"drop"}, wantErr: true},
	}
	for _, tc := range tests {
		got, err := parseCommand(tc.args)
		if tc.wantErr {
			assert.Error(t, err, "args %v", tc.args)
			continue
		}
		require.NoError(t, err, "args %v", tc.args)
		assert.Equal(t, tc.want, got, "args %v", tc.args)
	}
}

func TestRunUpTreatsNoChangeAsSuccess(t *testing.T) {
	m := &fakeMigrator{err: migrate.ErrNoChange}
	var out bytes.Buffer

	require.NoError(t, run(m, command{name: "up"}, &out))
	assert.Equal(t, []string{"up"}, m.calls)
	assert.Equal(t, "migrations complete\n", out.String())
}

func TestRunDownRollsBackRequestedSteps(t *testing.T) {
	m := &fakeMigrator{}
	var out bytes.Buffer

	require.NoError(t, run(m, command{name: "down", steps: 2}, &out))
	assert.Equal(t, -2, m.steps)
	assert.Contains(t, out.String(), "rolled back 2")
}

func TestRunForceAndVersion(t *testing.T) {
	m := &fakeMigrator{version: 2, dirty: true}
	var out bytes.Buffer

	require.NoError(t, run(m, command{name: "force", steps: 1}, &out))
	assert.Equal(t, 1, m.forced)

	out.Reset()
	require.NoError(t, run(m, command{name: "version"}, &out))
	assert.Equal(t, "version 2 (dirty=true)\n", out.String())

	out.Reset()
	require.NoError(t, run(&fakeMigrator{err: migrate.ErrNilVersion}, command{name: "version"}, &out))
	assert.Equal(t, "no migrations applied\n", out.String())
}

func TestRunWrapsFailures(t *testing.T) {
	boom := errors.New("dirty database")
	err := run(&fakeMigrator{err: boom}, command{name: "up"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "migrate up")
}
