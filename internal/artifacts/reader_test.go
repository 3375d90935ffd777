package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/esxidiag/internal/events"
)

func writeFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestDialectFor(t *testing.T) {
	tests := []struct {
		name   string
		want   Dialect
		wantOK bool
	}{
		{"vm_list.txt", DialectVMInventory, true},
		{"logs/vmkernel.log", DialectKernelLog, true},
		{"logs/hostd.log", DialectServiceLog, true},
		{"logs/vobd.log", DialectKernelLog, true},
		{`logs\vpxa.log`, DialectServiceLog, true},
		{"logs/old/vmkernel.log", "", false},
		{"notes.txt", "", false},
	}
	for _, tt := range tests {
		got, ok := DialectFor(tt.name)
		assert.Equal(t, tt.wantOK, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestNamesForAndDialects(t *testing.T) {
	assert.Equal(t, []string{"net_interfaces.txt", "net_vswitches.txt"}, NamesFor(DialectNetworkConfig))
	assert.Len(t, Dialects(), 11)
	assert.Contains(t, ExpectedNames(), "logs/fdm.log")
}

func TestReaderRead(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "system_version.txt", []byte("VMware ESXi 7.0.3 build-20328353\n"))
	writeFile(t, dir, "vm_list.txt", []byte("web01\r\n   World ID: 1\r\n"))
	writeFile(t, dir, "logs/vmkernel.log", []byte("2024-01-01T00:00:00Z cpu1:2)hello\n"))
	writeFile(t, dir, "logs/custom.log", []byte("line\n"))
	writeFile(t, dir, "hw_sensors.txt", []byte{}) // empty
	writeFile(t, dir, "perf_cpu_stats.txt", []byte{0x00, 0x01, 0x02})
	writeFile(t, dir, "unrelated.csv", []byte("a,b\n"))
	writeFile(t, dir, ".hidden/vm_list.txt", []byte("x\n"))

	col, err := NewReader(dir).Read(context.Background())
	require.NoError(t, err)

	var names []string
	for _, a := range col.Artifacts {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"logs/custom.log", "logs/vmkernel.log", "system_version.txt", "vm_list.txt"}, names)

	for _, a := range col.Artifacts {
		if a.Name == "vm_list.txt" {
			assert.Equal(t, "web01\n   World ID: 1\n", string(a.Content))
		}
	}

	require.Len(t, col.Diagnostics, 2)
	for _, d := range col.Diagnostics {
		assert.Equal(t, events.TypeArtifactUnreadable, d.Type)
	}
	assert.Contains(t, col.Missing, "net_interfaces.txt")
	assert.NotContains(t, col.Missing, "vm_list.txt")
	assert.NotContains(t, col.Missing, "hw_sensors.txt", "unreadable is not missing")
}

func TestReaderMissingRoot(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "nope")).Read(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReaderCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vm_list.txt", []byte("web01\n"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewReader(dir).Read(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestReaderMaxSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vm_list.txt", []byte("0123456789\n"))

	r := NewReader(dir)
	r.MaxSize = 4
	col, err := r.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, col.Artifacts, 1)
	assert.Equal(t, "0123", string(col.Artifacts[0].Content))

	require.Len(t, col.Diagnostics, 1)
	d := col.Diagnostics[0]
	assert.Equal(t, events.TypeParseWarning, d.Type)
	assert.Equal(t, "vm_list.txt", d.Source)
	assert.Contains(t, d.Message, "4 bytes")
}

func TestReaderMaxSizeKeepsUTF8(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vm_list.txt", []byte("héllo wörld\n"))

	r := NewReader(dir)
	r.MaxSize = 2
	col, err := r.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, col.Artifacts, 1)
	assert.Equal(t, "h", string(col.Artifacts[0].Content))
}

func TestReaderUnderMaxSizeHasNoWarning(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vm_list.txt", []byte("web01\n"))

	r := NewReader(dir)
	r.MaxSize = 1024
	col, err := r.Read(context.Background())
	require.NoError(t, err)
	require.Len(t, col.Artifacts, 1)
	assert.Empty(t, col.Diagnostics)
}
