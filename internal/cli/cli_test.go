package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lherron/planbak/internal/backup"
	"github.com/lherron/planbak/internal/domain"
	"github.com/lherron/planbak/internal/peer"
	"github.com/lherron/planbak/internal/snapshot"
	"github.com/lherron/planbak/internal/testutil"
)

// setupCLI isolates config and data in a temp dir and migrates a fresh
// database there.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("PLANBAK_CONFIG", "")
	t.Setenv("PLANBAK_OUTPUT", "")
	t.Setenv("PLANBAK_PEER_TOKEN", "")
	t.Setenv("PLANBAK_S3_BUCKET", "")
	t.Setenv("PLANBAK_LOG_LEVEL", "error")
	t.Setenv("PLANBAK_DEVICE", "test-device")
	t.Setenv("PLANBAK_DB_PATH", filepath.Join(dir, "planbak.db"))
	t.Setenv("PLANBAK_ARCHIVE_DIR", filepath.Join(dir, "archive"))
	testChdir(t, dir)

	_, err := runCLI(t, "migrate")
	require.NoError(t, err)
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := runCLI(t, append(args, "--json")...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func writeSnapshot(t *testing.T, dir, name string, s *snapshot.Snapshot) string {
	t.Helper()
	return testutil.WriteFile(t, dir, name, testutil.Payload(t, s))
}

func recordCount(counts map[domain.Kind]int) int {
	total := 0
	for kind, n := range counts {
		if kind != domain.KindAttachmentCrossRef {
			total += n
		}
	}
	return total
}

func seed(t *testing.T, dir string) string {
	t.Helper()
	path := writeSnapshot(t, dir, "fixture.json", testutil.Snapshot())
	_, err := runCLI(t, "apply", path, "--select", "all")
	require.NoError(t, err)
	return path
}

type changeKeys struct {
	Changes []struct {
		Key        string `json:"key"`
		Selected   bool   `json:"selected"`
		Selectable bool   `json:"selectable"`
	} `json:"changes"`
}

func TestMigrate(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "up to date (version 1)")

	var status struct {
		Version uint `json:"version"`
		Latest  uint `json:"latest"`
		Dirty   bool `json:"dirty"`
	}
	runJSON(t, &status, "migrate", "--status")
	assert.Equal(t, uint(1), status.Version)
	assert.Equal(t, uint(1), status.Latest)
	assert.False(t, status.Dirty)
}

func TestApply_IntoEmptyStore(t *testing.T) {
	dir := setupCLI(t)
	fixture := testutil.Snapshot()
	path := writeSnapshot(t, dir, "fixture.json", fixture)

	var report applyReport
	runJSON(t, &report, "apply", path, "--select", "all")
	require.NotNil(t, report.Result)
	assert.Equal(t, recordCount(fixture.Counts()), report.Result.Inserted)
	assert.Equal(t, 1, report.Result.CrossRefsWritten)
	assert.Zero(t, report.Result.Deleted)

	var status statusReport
	runJSON(t, &status, "status")
	assert.Equal(t, fixture.Counts(), status.Counts)

	var diff changeKeys
	runJSON(t, &diff, "diff", path)
	assert.Empty(t, diff.Changes, "store should match the applied snapshot")
}

func TestApply_DryRunWritesNothing(t *testing.T) {
	dir := setupCLI(t)
	fixture := testutil.Snapshot()
	path := writeSnapshot(t, dir, "fixture.json", fixture)

	var report applyReport
	runJSON(t, &report, "apply", path, "--dry-run")
	assert.True(t, report.DryRun)
	assert.Nil(t, report.Result)
	assert.Len(t, report.Plan, recordCount(fixture.Counts())+1)
	assert.Equal(t, "insert", report.Plan[0].Op)
	assert.Equal(t, "p-root", report.Plan[0].ID)

	var status statusReport
	runJSON(t, &status, "status")
	assert.Zero(t, recordCount(status.Counts))
}

func TestApply_DeletionsNeedApproval(t *testing.T) {
	dir := setupCLI(t)
	seed(t, dir)

	incoming := testutil.Snapshot()
	incoming.Scripts = nil
	incoming.Goals = append(incoming.Goals, domain.Goal{ID: "g3", Text: "Mulch"})
	path := writeSnapshot(t, dir, "incoming.json", incoming)

	var report applyReport
	runJSON(t, &report, "apply", path)
	require.NotNil(t, report.Result)
	assert.Equal(t, 1, report.Result.Inserted)
	assert.Zero(t, report.Result.Deleted)
	assert.NotContains(t, report.Approved, "sc1Deleted")

	var status statusReport
	runJSON(t, &status, "status")
	assert.Equal(t, 1, status.Counts[domain.KindScript])
	assert.Equal(t, 3, status.Counts[domain.KindGoal])

	runJSON(t, &report, "apply", path, "--select", "none", "--approve", "*Deleted")
	require.NotNil(t, report.Result)
	assert.Equal(t, 1, report.Result.Deleted)
	assert.Equal(t, 1, report.Result.Total())

	runJSON(t, &status, "status")
	assert.Zero(t, status.Counts[domain.KindScript])
}

func TestApply_Revoke(t *testing.T) {
	dir := setupCLI(t)
	seed(t, dir)

	incoming := testutil.Snapshot()
	incoming.Goals[0].Text = "Plant more tomatoes"
	incoming.Goals[1].Text = "Paint fence"
	path := writeSnapshot(t, dir, "incoming.json", incoming)

	var report applyReport
	runJSON(t, &report, "apply", path, "--revoke", "g2Updated")
	require.NotNil(t, report.Result)
	assert.Equal(t, 1, report.Result.Updated)

	var diff changeKeys
	runJSON(t, &diff, "diff", path)
	require.Len(t, diff.Changes, 1)
	assert.Equal(t, "g2Updated", diff.Changes[0].Key)
}

func TestApply_Errors(t *testing.T) {
	dir := setupCLI(t)
	path := writeSnapshot(t, dir, "fixture.json", testutil.Snapshot())

	_, err := runCLI(t, "apply", path, "--approve", "nopeAdded")
	assert.ErrorIs(t, err, backup.ErrUnknownChange)

	_, err = runCLI(t, "apply", path, "--approve", "p-root")
	assert.ErrorIs(t, err, backup.ErrInvalidChangeKey)

	_, err = runCLI(t, "apply", path, "--select", "some")
	assert.Error(t, err)

	var status statusReport
	runJSON(t, &status, "status")
	assert.Zero(t, recordCount(status.Counts))
}

func TestDiff_Table(t *testing.T) {
	dir := setupCLI(t)
	seed(t, dir)

	incoming := testutil.Snapshot()
	incoming.Scripts = nil
	incoming.Goals = append(incoming.Goals, domain.Goal{ID: "g3", Text: "Mulch"})
	incoming.Projects[1].Order = 4
	path := writeSnapshot(t, dir, "incoming.json", incoming)

	out, err := runCLI(t, "diff", path, "--records")
	require.NoError(t, err)
	assert.Contains(t, out, "g3Added")
	assert.Contains(t, out, "sc1Deleted")
	assert.Contains(t, out, "Order: 1 → 4")
	assert.Contains(t, out, "--- local")

	var diff changeKeys
	runJSON(t, &diff, "diff", path)
	selected := map[string]bool{}
	for _, c := range diff.Changes {
		selected[c.Key] = c.Selected
	}
	assert.True(t, selected["g3Added"])
	assert.True(t, selected["p-childUpdated"])
	assert.False(t, selected["sc1Deleted"])
}

func TestDiff_NoChanges(t *testing.T) {
	dir := setupCLI(t)
	path := seed(t, dir)

	out, err := runCLI(t, "diff", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No changes.")
}

func TestDiff_Stdin(t *testing.T) {
	dir := setupCLI(t)
	seed(t, dir)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(testutil.Payload(t, testutil.Snapshot())))
	cmd.SetArgs([]string{"diff", "-"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Source: stdin")
}

func TestDiff_Rejects(t *testing.T) {
	dir := setupCLI(t)

	bad := testutil.WriteFile(t, dir, "bad.json", "{not json")
	_, err := runCLI(t, "diff", bad)
	assert.True(t, snapshot.IsMalformed(err), "got %v", err)

	_, err = runCLI(t, "diff")
	assert.Error(t, err)

	_, err = runCLI(t, "diff", bad, "--peer", "127.0.0.1:1")
	assert.Error(t, err)

	_, err = runCLI(t, "diff", "--archived", "missing.json")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	dir := setupCLI(t)
	seed(t, dir)

	var result snapshot.ExportResult
	runJSON(t, &result, "export")
	assert.Equal(t, snapshot.DefaultFileName, result.OutputPath)
	assert.True(t, strings.HasPrefix(result.SnapshotRev, "sha256:"))

	snap, _, err := snapshot.Load(filepath.Join(dir, snapshot.DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, "test-device", snap.Meta.Device)
	assert.Equal(t, testutil.Snapshot().Counts(), snap.Counts())

	outDir := filepath.Join(dir, "exports")
	require.NoError(t, os.MkdirAll(outDir, 0755))
	runJSON(t, &result, "export", outDir)
	assert.Equal(t, filepath.Join(outDir, snapshot.DefaultFileName), result.OutputPath)

	var again snapshot.ExportResult
	runJSON(t, &again, "export", filepath.Join(dir, "again.json"))
	assert.Equal(t, result.SnapshotRev, again.SnapshotRev, "rev covers content only")
}

func TestArchive(t *testing.T) {
	dir := setupCLI(t)
	path := seed(t, dir)

	_, err := runCLI(t, "archive", "put", path, "--name", "manual.json")
	require.NoError(t, err)

	_, err = runCLI(t, "export", "--archive")
	require.NoError(t, err)

	var entries []struct {
		Name string `json:"name"`
	}
	runJSON(t, &entries, "archive", "list")
	require.Len(t, entries, 2)
	assert.Equal(t, "manual.json", entries[0].Name)
	assert.True(t, strings.HasPrefix(entries[1].Name, "snapshot-"))

	out := filepath.Join(dir, "copy.json")
	_, err = runCLI(t, "archive", "get", "manual.json", out)
	require.NoError(t, err)
	assert.Equal(t, testutil.ReadFile(t, path), testutil.ReadFile(t, out))

	stdout, err := runCLI(t, "archive", "get", "manual.json")
	require.NoError(t, err)
	assert.Equal(t, testutil.ReadFile(t, path), stdout)

	var diff changeKeys
	runJSON(t, &diff, "diff", "--archived", entries[1].Name)
	assert.Empty(t, diff.Changes)

	bad := testutil.WriteFile(t, dir, "bad.json", `{"meta":{"schemaVersion":0}}`)
	_, err = runCLI(t, "archive", "put", bad)
	assert.True(t, snapshot.IsMalformed(err), "got %v", err)
}

type fixtureExporter struct{}

func (fixtureExporter) Export(ctx context.Context) (*snapshot.Snapshot, error) {
	return testutil.Snapshot(), nil
}

func startPeer(t *testing.T, token string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := peer.NewServer(fixtureExporter{}, peer.Config{Token: token, Device: "phone"}, zap.NewNop())
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return ln.Addr().String()
}

func TestFetchAndDiffPeer(t *testing.T) {
	dir := setupCLI(t)
	t.Setenv("PLANBAK_PEER_TOKEN", "secret")
	addr := startPeer(t, "secret")

	var fetched fetchResult
	runJSON(t, &fetched, "fetch", addr, "--file", filepath.Join(dir, "peer.json"))
	assert.Equal(t, "phone", fetched.Device)
	assert.True(t, strings.HasPrefix(fetched.SnapshotRev, "sha256:"))

	var diff changeKeys
	// every record plus the one cross reference
	want := recordCount(testutil.Snapshot().Counts()) + 1
	runJSON(t, &diff, "diff", filepath.Join(dir, "peer.json"))
	assert.Len(t, diff.Changes, want)

	runJSON(t, &diff, "diff", "--peer", addr)
	assert.Len(t, diff.Changes, want)

	runJSON(t, &fetched, "fetch", addr)
	assert.True(t, strings.HasPrefix(fetched.SavedTo, "archive:snapshot-"))

	t.Setenv("PLANBAK_PEER_TOKEN", "wrong")
	_, err := runCLI(t, "fetch", addr, "--file", filepath.Join(dir, "x.json"))
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "planbak version dev")

	var info versionInfo
	runJSON(t, &info, "version")
	assert.Equal(t, snapshot.SchemaVersion, info.SchemaVersion)
}
