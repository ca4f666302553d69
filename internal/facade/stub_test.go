package facade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubNeverErrorsOnCoreOperations(t *testing.T) {
	ctx := context.Background()
	stub := NewStub()

	_, err := stub.Scan(ctx, ScanRequest{Roots: []string{"."}})
	require.NoError(t, err)

	_, err = stub.Analyze(ctx, AnalyzeRequest{MaxPhase: 3})
	require.NoError(t, err)

	result, err := stub.GateCheck(ctx, GateCheckRequest{ChangedFiles: []string{"a.go"}})
	require.NoError(t, err)
	assert.False(t, result.Passed)

	analysis, err := stub.AnalyzeOWASP(ctx, AnalysisRequest{})
	require.NoError(t, err)
	assert.True(t, analysis.Estimated)
	assert.NotNil(t, analysis.Findings)

	backup, err := stub.CreateBackup(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, "", backup.BackupID)
}

func TestStubReportsMissingPatternAsNotFoundNotPanic(t *testing.T) {
	stub := NewStub()
	_, err := stub.GetPattern(context.Background(), "missing")
	require.Error(t, err)
}

func TestStubImplementsFacade(t *testing.T) {
	var f Facade = NewStub()
	assert.NotNil(t, f)
}
