// Package validate checks the integrity of downloaded deliveries using the
// MD5 manifests the vendor ships alongside the data.
package validate

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/novodl/novodl/internal/log"
	"github.com/novodl/novodl/internal/printer"
)

// FileResult is the verification outcome for a single file in a manifest.
type FileResult struct {
	Name string
	OK   bool
	Err  error
}

// FileSize pairs a file path with its size for the statistics report.
type FileSize struct {
	Path string
	Size int64
}

// Stats summarizes the contents of a download directory.
type Stats struct {
	TotalFiles   int
	TotalSize    int64
	FileTypes    map[string]int
	LargestFiles []FileSize
	EmptyFiles   []string
}

// ValidatorConfig is the configuration for Validator.
type ValidatorConfig struct {
	Logger log.Logger
}

func (c *ValidatorConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "validate.Validator"})
	return nil
}

// Validator verifies downloaded files against MD5 manifests.
type Validator struct {
	logger log.Logger
}

// NewValidator creates a new validator.
func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Validator{logger: cfg.Logger}, nil
}

// FindManifests returns every MD5 manifest below dir, sorted. The vendor is
// not consistent about naming, anything with "md5" in the file name counts.
func (v *Validator) FindManifests(dir string) ([]string, error) {
	var manifests []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.Contains(strings.ToLower(d.Name()), "md5") {
			manifests = append(manifests, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not walk %s: %w", dir, err)
	}

	sort.Strings(manifests)
	return manifests, nil
}

// VerifyManifest checks every entry of an md5sum style manifest. File paths
// inside the manifest are resolved relative to the manifest's directory.
func (v *Validator) VerifyManifest(ctx context.Context, manifestPath string) ([]FileResult, error) {
	f, err := os.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("could not open manifest: %w", err)
	}
	defer f.Close()

	baseDir := filepath.Dir(manifestPath)
	var results []FileResult

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sum, name, ok := parseManifestLine(scanner.Text())
		if !ok {
			continue
		}

		got, err := v.FileMD5(filepath.Join(baseDir, name))
		if err != nil {
			results = append(results, FileResult{Name: name, Err: err})
			continue
		}

		results = append(results, FileResult{Name: name, OK: strings.EqualFold(got, sum)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read manifest: %w", err)
	}

	return results, nil
}

// FileMD5 returns the hex MD5 digest of a file.
func (v *Validator) FileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("could not hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Statistics gathers per-directory counters used by the validation report.
func (v *Validator) Statistics(dir string) (*Stats, error) {
	stats := &Stats{FileTypes: map[string]int{}}

	var sizes []FileSize
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			v.logger.Warningf("Could not stat %s: %v", path, err)
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}

		stats.TotalFiles++
		stats.TotalSize += info.Size()

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext == "" {
			ext = "none"
		}
		stats.FileTypes[ext]++

		sizes = append(sizes, FileSize{Path: rel, Size: info.Size()})
		if info.Size() == 0 {
			stats.EmptyFiles = append(stats.EmptyFiles, rel)
		}

		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return nil, fmt.Errorf("could not walk %s: %w", dir, err)
	}

	sort.Slice(sizes, func(i, j int) bool { return sizes[i].Size > sizes[j].Size })
	if len(sizes) > 10 {
		sizes = sizes[:10]
	}
	stats.LargestFiles = sizes

	return stats, nil
}

// Report runs the full validation over dir and renders a text report.
func (v *Validator) Report(ctx context.Context, dir string) (string, error) {
	var b strings.Builder
	line := strings.Repeat("=", 50)

	fmt.Fprintln(&b, line)
	fmt.Fprintln(&b, "File validation report")
	fmt.Fprintln(&b, line)
	fmt.Fprintf(&b, "Directory: %s\n", dir)
	fmt.Fprintf(&b, "Generated: %s\n\n", time.Now().Format(time.RFC3339))

	stats, err := v.Statistics(dir)
	if err != nil {
		return "", err
	}

	fmt.Fprintln(&b, "Summary:")
	fmt.Fprintf(&b, "  Total files: %d\n", stats.TotalFiles)
	fmt.Fprintf(&b, "  Total size: %s\n\n", printer.FormatBytes(stats.TotalSize))

	if len(stats.FileTypes) > 0 {
		fmt.Fprintln(&b, "File types:")
		exts := make([]string, 0, len(stats.FileTypes))
		for ext := range stats.FileTypes {
			exts = append(exts, ext)
		}
		sort.Strings(exts)
		for _, ext := range exts {
			fmt.Fprintf(&b, "  %s: %d\n", ext, stats.FileTypes[ext])
		}
		fmt.Fprintln(&b)
	}

	if len(stats.LargestFiles) > 0 {
		fmt.Fprintln(&b, "Largest files:")
		for _, lf := range stats.LargestFiles {
			fmt.Fprintf(&b, "  %s: %s\n", lf.Path, printer.FormatBytes(lf.Size))
		}
		fmt.Fprintln(&b)
	}

	if len(stats.EmptyFiles) > 0 {
		fmt.Fprintln(&b, "Empty files:")
		for _, f := range stats.EmptyFiles {
			fmt.Fprintf(&b, "  %s\n", f)
		}
		fmt.Fprintln(&b)
	}

	manifests, err := v.FindManifests(dir)
	if err != nil {
		return "", err
	}

	if len(manifests) == 0 {
		fmt.Fprintln(&b, "MD5 check: no manifests found")
	} else {
		fmt.Fprintln(&b, "MD5 check:")
		for _, m := range manifests {
			results, err := v.VerifyManifest(ctx, m)
			if err != nil {
				return "", err
			}

			passed, failed := 0, 0
			var failures []string
			for _, r := range results {
				if r.OK {
					passed++
				} else {
					failed++
					failures = append(failures, r.Name)
				}
			}

			fmt.Fprintf(&b, "  Manifest: %s\n", m)
			fmt.Fprintf(&b, "    Passed: %d\n", passed)
			fmt.Fprintf(&b, "    Failed: %d\n", failed)
			for _, f := range failures {
				fmt.Fprintf(&b, "      %s\n", f)
			}
		}
	}

	fmt.Fprintln(&b, line)
	return b.String(), nil
}

// parseManifestLine splits an md5sum format line into digest and file name.
// Both "<sum>  <name>" and the binary mode "<sum> *<name>" forms appear.
func parseManifestLine(line string) (sum, name string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}

	fields := strings.SplitN(line, " ", 2)
	if len(fields) != 2 || len(fields[0]) != 32 {
		return "", "", false
	}

	name = strings.TrimSpace(fields[1])
	name = strings.TrimPrefix(name, "*")
	if name == "" {
		return "", "", false
	}

	return fields[0], name, true
}
