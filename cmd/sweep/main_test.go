package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_CleanSelectConvert(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	csvPath := writeInput(t, in, "a.csv", "id,v,name\n1,2,x\n1,2,x\n2,,y\n")
	txtPath := writeInput(t, in, "notes.txt", "hello")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{
		"-dedupe", "-fill-missing", "-columns", "v,id", "-out", out, csvPath, txtPath,
	}, &stdout, &stderr)

	assert.Equal(t, 1, code, "the unsupported file fails the run")
	assert.Contains(t, stderr.String(), "notes.txt: Unsupported file type: .txt")

	assert.Contains(t, stdout.String(), "File: a.csv (")
	assert.Contains(t, stdout.String(), "Duplicates Removed! (1 rows removed)")
	assert.Contains(t, stdout.String(), "Missing values have been filled!")
	assert.Contains(t, stdout.String(), "Download a.csv as CSV")

	data, err := os.ReadFile(filepath.Join(out, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,v\n1,2.0\n2,2.0\n", string(data))
}

func TestRun_ExcelAndChart(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	csvPath := writeInput(t, in, "sales.csv", "region,q1,q2\nnorth,10,12\nsouth,7,9\n")
	chartPath := filepath.Join(out, "sales.png")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-to", "excel", "-chart", chartPath, "-out", out, csvPath}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	xlsx, err := os.ReadFile(filepath.Join(out, "sales.xlsx"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsx, []byte("PK")))

	png, err := os.ReadFile(chartPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestRun_RefusesToOverwriteInput(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeInput(t, dir, "a.csv", "x\n1\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-out", dir, csvPath}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "output would overwrite an input file")

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n", string(data))
}

func TestRun_KeepsFirstOutputOnNameClash(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	csvPath := writeInput(t, in, "a.csv", "x\n1\n")
	xlsxPath := filepath.Join(in, "a.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"x"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{2}))
	require.NoError(t, f.SaveAs(xlsxPath))
	require.NoError(t, f.Close())

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-out", out, csvPath, xlsxPath}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "a.xlsx: output already written in this run")

	data, err := os.ReadFile(filepath.Join(out, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n", string(data))
}

func TestRun_BadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no files", nil},
		{"unknown target", []string{"-to", "pdf", "a.csv"}},
		{"unknown chart format", []string{"-chart", "c.gif", "a.csv"}},
		{"blank columns", []string{"-columns", " , ", "a.csv"}},
		{"unknown flag", []string{"-nope", "a.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, 2, run(context.Background(), tt.args, &stdout, &stderr))
		})
	}
}

func TestRun_ExpandsDirectories(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeInput(t, in, "one.csv", "x\n1\n")
	writeInput(t, in, "two.csv", "x\n2\n")
	writeInput(t, in, "readme.md", "skip me")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-chart", "bars.svg", "-out", out, in}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	for _, name := range []string{"one.csv", "two.csv", "bars-one.svg", "bars-two.svg"} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
	_, err := os.Stat(filepath.Join(out, "readme.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestChartPathFor(t *testing.T) {
	assert.Equal(t, "out/chart.png", chartPathFor("out/chart.png", "a.csv", false))
	assert.Equal(t, "out/chart-b.svg", chartPathFor("out/chart.svg", "b.xlsx", true))
}
