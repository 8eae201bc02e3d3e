package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReportKey(t *testing.T) {
	require.Equal(t, "acme/run-1/controls_TestResult.xlsx", ReportKey("acme", "run-1", "/tmp/x/controls_TestResult.xlsx"))
	require.Equal(t, "local/run-1/out.xlsx", ReportKey(" ", "run-1", "out.xlsx"))
}

func TestContentType(t *testing.T) {
	require.Equal(t, xlsxContentType, contentType("report.XLSX"))
	require.Equal(t, "application/json", contentType("a.json"))
	require.Equal(t, "application/octet-stream", contentType("a.bin"))
}
