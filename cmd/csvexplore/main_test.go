package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvexplore/internal/metrics"
)

// TestHelperProcess is a subprocess entrypoint used by tests that need the
// real exit code of main(). The parent re-runs the test binary with
// -test.run=TestHelperProcess and GO_WANT_HELPER_PROCESS=1; arguments after
// "--" become the command's arguments.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	i := 0
	for ; i < len(args); i++ {
		if args[i] == "--" {
			break
		}
	}
	if i < len(args) {
		os.Args = append([]string{args[0]}, args[i+1:]...)
	} else {
		os.Args = []string{args[0]}
	}

	main()
	os.Exit(0)
}

// runCmd executes main() in a subprocess and returns stdout, stderr and the
// exit code.
func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	cmdArgs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
	cmd := exec.Command(os.Args[0], cmdArgs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "METRICS_BACKEND=none")

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	if err == nil {
		return outBuf.String(), errBuf.String(), 0
	}
	if ee, ok := err.(*exec.ExitError); ok {
		return outBuf.String(), errBuf.String(), ee.ExitCode()
	}
	t.Fatalf("unexpected run error: %T: %v", err, err)
	return "", "", 1
}

// runInProcess runs the command without touching the process environment.
func runInProcess(t *testing.T, env map[string]string, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	var out, errOut bytes.Buffer
	code = runMain(context.Background(), args, &out, &errOut, func(k string) string { return env[k] })
	return out.String(), errOut.String(), code
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestMain_ReportsEachFileSortedByColumn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "qty,id,price\n,1,1.5\n5,2,2.25\n10,003,1.5\n")
	b := writeFile(t, dir, "b.csv", "id\nx\n")

	stdout, stderr, code := runCmd(t, a, b)
	require.Equal(t, 0, code, "stderr:\n%s", stderr)

	want := strings.Join([]string{
		a + ": id: Field(has_empties=False, is_int=False, is_float=False, shortest_value='1', longest_value='003'): VARCHAR(3)",
		a + ": price: Field(has_empties=False, is_int=False, is_float=True, shortest_value='1.5', longest_value='2.25'): VARCHAR(4)",
		a + ": qty: Field(has_empties=True, is_int=False, is_float=False, shortest_value='', longest_value='10'): VARCHAR(2)",
		b + ": id: Field(has_empties=False, is_int=False, is_float=False, shortest_value='x', longest_value='x'): VARCHAR(1)",
	}, "\n") + "\n"
	assert.Equal(t, want, stdout)
}

func TestMain_NoArgsSucceedsSilently(t *testing.T) {
	t.Parallel()

	stdout, _, code := runCmd(t)
	assert.Equal(t, 0, code)
	assert.Empty(t, stdout)
}

func TestMain_AbortsAtFirstFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", "n\n1\n")
	bad := writeFile(t, dir, "bad.csv", "a,b\n1,2,3\n")
	after := writeFile(t, dir, "after.csv", "z\n9\n")

	stdout, stderr, code := runCmd(t, good, bad, after)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, good+": n: ")
	assert.NotContains(t, stdout, bad+":")
	assert.NotContains(t, stdout, after+":")
	assert.Contains(t, stderr, "csvexplore: analyze "+bad)
	assert.Contains(t, stderr, "line 2")
}

func TestRunMain_KeepGoing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.csv")
	after := writeFile(t, dir, "after.csv", "z\n9\n")

	stdout, stderr, code := runInProcess(t, nil, "--keep-going", missing, after)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stdout, after+": z: Field(has_empties=False, is_int=True, is_float=False")
	assert.Contains(t, stderr, "skipping "+missing)
	assert.Contains(t, stderr, "csvexplore: 1 of 2 inputs failed")
}

func TestRunMain_UsageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		args      []string
		env       map[string]string
		wantInErr string
	}{
		{name: "unknown_flag", args: []string{"--nope"}, wantInErr: "unknown flag: --nope"},
		{name: "bad_format", args: []string{"--format", "xml"}, wantInErr: `error: format: unknown format "xml"`},
		{name: "query_without_kind", args: []string{"--query", "select 1"}, wantInErr: "--query requires --sql-kind"},
		{name: "sql_kind_without_query", args: []string{"--sql-kind", "sqlite", "--dsn", "x.db"}, wantInErr: "error: inputs[0].query"},
		{name: "bad_env", env: map[string]string{"CSVEXPLORE_PROGRESS_EVERY": "often"}, wantInErr: "CSVEXPLORE_PROGRESS_EVERY"},
		{name: "missing_config", args: []string{"--config", "/nonexistent/csvexplore.yaml"}, wantInErr: "read config"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			stdout, stderr, code := runInProcess(t, tc.env, tc.args...)
			assert.Equal(t, exitUsage, code, "stderr: %s", stderr)
			assert.Contains(t, stderr, tc.wantInErr)
			assert.Empty(t, stdout)
		})
	}
}

func TestRunMain_FlagOverridesEnvOverridesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := writeFile(t, dir, "items.csv", "id\n1\n")
	cfg := writeFile(t, dir, "cfg.yaml", "format: sql\ndialect: mssql\n")

	// file says sql/mssql, env switches the dialect, flag wins over both.
	env := map[string]string{"CSVEXPLORE_DIALECT": "sqlite"}

	stdout, stderr, code := runInProcess(t, env, "--config", cfg, data)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, `CREATE TABLE "items" (`)
	assert.Contains(t, stdout, `"id" INTEGER NOT NULL`)

	stdout, stderr, code = runInProcess(t, env, "--config", cfg, "--format", "json", data)
	require.Equal(t, exitOK, code, stderr)

	var doc struct {
		Source  string `json:"source"`
		Records int64  `json:"records"`
		Columns []struct {
			Column string `json:"column"`
			IsInt  bool   `json:"is_int"`
		} `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, data, doc.Source)
	assert.EqualValues(t, 1, doc.Records)
	require.Len(t, doc.Columns, 1)
	assert.True(t, doc.Columns[0].IsInt)
}

func TestRunMain_ConfigInputsComeFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeFile(t, dir, "first.csv", "a\n1\n")
	second := writeFile(t, dir, "second.csv", "b\n2\n")
	cfg := writeFile(t, dir, "cfg.yaml", "inputs:\n  - path: "+first+"\n    name: configured\n")

	stdout, stderr, code := runInProcess(t, nil, "--config", cfg, second)
	require.Equal(t, exitOK, code, stderr)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "configured: a: "))
	assert.True(t, strings.HasPrefix(lines[1], second+": b: "))
}

func TestRunMain_Validate(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := runInProcess(t, nil, "--validate", "--dialect", "oracle", "x.csv")
	assert.Equal(t, exitOK, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, `warning: dialect: unknown sql dialect: "oracle"`)
	assert.Contains(t, stderr, "configuration is valid")
}

func TestRunMain_SQLiteQuery(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE orders (id INTEGER, total REAL, note TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO orders VALUES (1, 9.5, NULL), (22, 10.25, 'gift')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	stdout, stderr, code := runInProcess(t, nil,
		"--sql-kind", "sqlite", "--dsn", path, "--query", "SELECT id, total, note FROM orders ORDER BY id")
	require.Equal(t, exitOK, code, stderr)

	label := "sqlite:SELECT id, total, note FROM orders ORDER BY id"
	assert.Equal(t, strings.Join([]string{
		label + ": id: Field(has_empties=False, is_int=True, is_float=False, shortest_value='1', longest_value='22'): VARCHAR(2)",
		label + ": note: Field(has_empties=True, is_int=False, is_float=False, shortest_value='', longest_value='gift'): VARCHAR(4)",
		label + ": total: Field(has_empties=False, is_int=False, is_float=True, shortest_value='9.5', longest_value='10.25'): VARCHAR(5)",
	}, "\n")+"\n", stdout)
}

type flushCounter struct {
	mu      sync.Mutex
	inputs  map[string]float64
	flushes int
}

func (f *flushCounter) IncCounter(name string, delta float64, labels metrics.Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == metrics.InputsTotal {
		f.inputs[labels["status"]] += delta
	}
}

func (f *flushCounter) ObserveHistogram(string, float64, metrics.Labels) {}

func (f *flushCounter) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	return nil
}

// Not parallel: the metrics backend is process-wide.
func TestRunMain_FlushesMetricsAfterEachInput(t *testing.T) {
	fc := &flushCounter{inputs: map[string]float64{}}
	metrics.SetBackend(fc)
	t.Cleanup(func() { metrics.SetBackend(nil) })

	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "n\n1\n")
	missing := filepath.Join(dir, "missing.csv")
	b := writeFile(t, dir, "b.csv", "m\n2\n")

	_, stderr, code := runInProcess(t, nil, "--keep-going", a, missing, b)
	assert.Equal(t, exitFailure, code, "stderr:\n%s", stderr)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	assert.Equal(t, 3, fc.flushes)
	assert.Equal(t, map[string]float64{metrics.StatusOK: 2, metrics.StatusError: 1}, fc.inputs)
}

func TestRunMain_ProgressEveryZeroDisablesProgress(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("n\n")
	for i := 0; i < 2500; i++ {
		sb.WriteString("1\n")
	}
	path := writeFile(t, t.TempDir(), "big.csv", sb.String())

	_, stderr, code := runInProcess(t, nil, path)
	require.Equal(t, exitOK, code, "stderr:\n%s", stderr)
	assert.Contains(t, stderr, "2,000 records...")

	_, stderr, code = runInProcess(t, nil, "--progress-every", "0", path)
	require.Equal(t, exitOK, code, "stderr:\n%s", stderr)
	assert.NotContains(t, stderr, "records...")
}
