package lnd_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novodl/novodl/internal/lnd"
)

func TestParseProgress(t *testing.T) {
	tests := map[string]struct {
		line   string
		expPct float64
		expOK  bool
	}{
		"a transfer line with a percentage should parse": {
			line:   "downloading sample_1.fq.gz 42.5% 12MB/s",
			expPct: 42.5,
			expOK:  true,
		},
		"an integer percentage should parse": {
			line:   "sample_2.fq.gz 100% done",
			expPct: 100,
			expOK:  true,
		},
		"a line without a percent sign is not progress": {
			line:  "connecting to remote",
			expOK: false,
		},
		"a percent sign without a number is not progress": {
			line:  "progress: unknown %",
			expOK: false,
		},
		"an empty line is not progress": {
			line:  "",
			expOK: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			pct, ok := lnd.ParseProgress(test.line)

			assert.Equal(t, test.expOK, ok)
			if test.expOK {
				assert.Equal(t, test.expPct, pct)
			}
		})
	}
}

func TestCommandRunnerConfig(t *testing.T) {
	_, err := lnd.NewCommandRunner(lnd.CommandRunnerConfig{})
	assert.Error(t, err)
}

func TestCommandRunnerCheckInstalled(t *testing.T) {
	dir := t.TempDir()

	execPath := filepath.Join(dir, "lnd")
	require.NoError(t, os.WriteFile(execPath, []byte("#!/bin/sh\n"), 0o755))

	plainPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(plainPath, []byte("hi"), 0o644))

	tests := map[string]struct {
		path   string
		expErr bool
	}{
		"an executable file should pass":    {path: execPath},
		"a missing file should fail":        {path: filepath.Join(dir, "missing"), expErr: true},
		"a non-executable file should fail": {path: plainPath, expErr: true},
		"a directory should fail":           {path: dir, expErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			r, err := lnd.NewCommandRunner(lnd.CommandRunnerConfig{Path: test.path})
			require.NoError(t, err)

			err = r.CheckInstalled(context.Background())
			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
