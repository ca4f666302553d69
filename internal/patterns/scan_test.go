package patterns

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScanTestRepo(t *testing.T) *Repository {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "patterns"), nil)
	repo := NewRepository(store, nil)
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func writeSourceFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanUpsertsOnePatternPerDetector(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, RegisterBuiltins(reg))
	repo := newScanTestRepo(t)

	dir := t.TempDir()
	writeSourceFile(t, dir, "config.go", `package main

var password = "hunter2-literal-secret"
`)

	summary, err := Scan(context.Background(), reg, repo, ScanConfig{Roots: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesScanned)
	assert.Greater(t, summary.ViolationsFound, 0)
	assert.Greater(t, summary.PatternsFound, 0)

	found, err := repo.GetByCategory(context.Background(), CategorySecurity)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	assert.Equal(t, "security.hardcoded-secret", found[0].DetectorID)
}

func TestScanRescanMergesLocationsWithoutDuplicatePatterns(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, RegisterBuiltins(reg))
	repo := newScanTestRepo(t)

	dir := t.TempDir()
	writeSourceFile(t, dir, "a.go", `package main

var apiKey = "abcd1234-literal-secret"
`)
	_, err := Scan(context.Background(), reg, repo, ScanConfig{Roots: []string{dir}})
	require.NoError(t, err)

	writeSourceFile(t, dir, "b.go", `package main

var secret = "zzzz9999-literal-secret"
`)
	summary, err := Scan(context.Background(), reg, repo, ScanConfig{Roots: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.FilesScanned)

	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1, "rescanning the same detector must update, not duplicate, its pattern")
	assert.Len(t, all[0].Locations, 2)
}

func TestScanConfigDetectorIDsScopesAndRestores(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, RegisterBuiltins(reg))
	repo := newScanTestRepo(t)

	enabled := true
	before := reg.Query(RegistryQuery{Enabled: &enabled}).Detectors
	require.NotEmpty(t, before)

	dir := t.TempDir()
	writeSourceFile(t, dir, "a.go", `package main

var password = "hunter2-literal-secret"
`)
	_, err := Scan(context.Background(), reg, repo, ScanConfig{
		Roots:       []string{dir},
		DetectorIDs: []string{"security.hardcoded-secret"},
	})
	require.NoError(t, err)

	after := reg.Query(RegistryQuery{Enabled: &enabled}).Detectors
	assert.Len(t, after, len(before), "detector scoping must restore every detector's enabled state")

	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	for _, p := range all {
		assert.Equal(t, "security.hardcoded-secret", p.DetectorID)
	}
}

func TestScanFilesRunsOverLiteralFileList(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, RegisterBuiltins(reg))
	repo := newScanTestRepo(t)

	dir := t.TempDir()
	target := writeSourceFile(t, dir, "only.go", `package main

var token = "literal9999-secret-value"
`)
	writeSourceFile(t, dir, "ignored.go", `package main

var token = "literal9999-secret-value"
`)

	summary, err := ScanFiles(context.Background(), reg, repo, []string{target}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesScanned)
}

func TestScanSkipsUnrecognizedExtensions(t *testing.T) {
	reg := NewRegistry(nil)
	require.NoError(t, RegisterBuiltins(reg))
	repo := newScanTestRepo(t)

	dir := t.TempDir()
	writeSourceFile(t, dir, "README.md", "password = \"literal-secret-value\"\n")

	summary, err := Scan(context.Background(), reg, repo, ScanConfig{Roots: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.FilesScanned)
	assert.Equal(t, 0, summary.PatternsFound)
}
