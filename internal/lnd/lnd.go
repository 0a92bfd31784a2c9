// Package lnd wraps the vendor's lnd command line tool used to log in,
// list and download released sequencing data.
package lnd

import (
	"context"
)

// Runner is the interface for driving the lnd tool.
type Runner interface {
	// CheckInstalled verifies the configured lnd binary exists and is
	// executable.
	CheckInstalled(ctx context.Context) error

	// Version returns the lnd tool version string.
	Version(ctx context.Context) (string, error)

	// Login authenticates against the vendor cloud. The password is passed
	// on stdin, never on the command line.
	Login(ctx context.Context, username, password string, logLine func(string)) error

	// List fetches the remote file listing for dataPath and stores it as
	// file_list.txt inside downloadDir.
	List(ctx context.Context, dataPath, downloadDir string, logLine func(string)) error

	// Download copies dataPath recursively into downloadDir. Progress is
	// reported in the 0-100 range as parsed from the tool's output, each
	// output line is forwarded to logLine.
	Download(ctx context.Context, dataPath, downloadDir string, progress func(float64), logLine func(string)) error
}
