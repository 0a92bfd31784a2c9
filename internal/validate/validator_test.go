package validate_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novodl/novodl/internal/validate"
)

func newValidator(t *testing.T) *validate.Validator {
	v, err := validate.NewValidator(validate.ValidatorConfig{})
	require.NoError(t, err)
	return v
}

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func md5Hex(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestFindManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sample_1.fq.gz", "data")
	writeFile(t, dir, "MD5.txt", "")
	writeFile(t, dir, "sub/checks.md5", "")
	writeFile(t, dir, "sub/readme.txt", "")

	v := newValidator(t)
	got, err := v.FindManifests(dir)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, filepath.Join(dir, "MD5.txt"), got[0])
	assert.Equal(t, filepath.Join(dir, "sub", "checks.md5"), got[1])
}

func TestFindManifestsMissingDir(t *testing.T) {
	v := newValidator(t)
	got, err := v.FindManifests(filepath.Join(t.TempDir(), "missing"))

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVerifyManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", "correct content")
	writeFile(t, dir, "bad.txt", "tampered content")

	manifest := fmt.Sprintf("%s  good.txt\n%s  bad.txt\n%s  gone.txt\n",
		md5Hex("correct content"), md5Hex("other content"), md5Hex("x"))
	manifestPath := writeFile(t, dir, "MD5.txt", manifest)

	v := newValidator(t)
	results, err := v.VerifyManifest(context.Background(), manifestPath)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.False(t, results[2].OK)
	assert.Error(t, results[2].Err)
}

func TestVerifyManifestBinaryMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.bin", "binary payload")
	manifestPath := writeFile(t, dir, "MD5.txt", md5Hex("binary payload")+" *data.bin\n")

	v := newValidator(t)
	results, err := v.VerifyManifest(context.Background(), manifestPath)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "data.bin", results[0].Name)
	assert.True(t, results[0].OK)
}

func TestStatistics(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "12345")
	writeFile(t, dir, "sub/b.txt", "123")
	writeFile(t, dir, "sub/empty.log", "")
	writeFile(t, dir, "noext", "1")

	v := newValidator(t)
	stats, err := v.Statistics(dir)

	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalFiles)
	assert.Equal(t, int64(9), stats.TotalSize)
	assert.Equal(t, map[string]int{".txt": 2, ".log": 1, "none": 1}, stats.FileTypes)
	assert.Equal(t, []string{filepath.Join("sub", "empty.log")}, stats.EmptyFiles)
	require.NotEmpty(t, stats.LargestFiles)
	assert.Equal(t, "a.txt", stats.LargestFiles[0].Path)
	assert.Equal(t, int64(5), stats.LargestFiles[0].Size)
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sample.fq.gz", "sequence data")
	writeFile(t, dir, "MD5.txt", md5Hex("sequence data")+"  sample.fq.gz\n")

	v := newValidator(t)
	report, err := v.Report(context.Background(), dir)

	require.NoError(t, err)
	assert.Contains(t, report, "Total files: 2")
	assert.Contains(t, report, "Passed: 1")
	assert.Contains(t, report, "Failed: 0")
}

func TestReportWithoutManifests(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sample.fq.gz", "sequence data")

	v := newValidator(t)
	report, err := v.Report(context.Background(), dir)

	require.NoError(t, err)
	assert.Contains(t, report, "no manifests found")
}
