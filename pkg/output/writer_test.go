package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edp1096/wave-spice/pkg/matrix"
)

func TestWriteTable(t *testing.T) {
	sol := matrix.New[float64](3, 2) // 2 nodes + 1 current, 2 steps
	sol.Set(0, 0, 1)
	sol.Set(1, 0, 0.5)
	sol.Set(2, 0, -1e-3)
	sol.Set(0, 1, 2)
	sol.Set(1, 1, 1.5)
	sol.Set(2, 1, -2e-3)

	path := filepath.Join(t.TempDir(), "dump.tsv")
	require.NoError(t, WriteTable(path, sol, 2, 1, 1e-6))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "time\tn1\tn2\ti1", lines[0])
	require.Equal(t, "0\t1\t0.5\t-0.001", lines[1])
	require.Equal(t, "1e-06\t2\t1.5\t-0.002", lines[2])
}

func TestWriteGraph(t *testing.T) {
	sol := matrix.New[float64](1, 50)
	for n := 0; n < 50; n++ {
		sol.Set(0, n, float64(n)*0.1)
	}

	path := filepath.Join(t.TempDir(), "graph1.png")
	require.NoError(t, WriteGraph(path, sol, []int{1}, 1e-6))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestWriteGraphRejectsBadNode(t *testing.T) {
	sol := matrix.New[float64](1, 10)
	err := WriteGraph(filepath.Join(t.TempDir(), "g.png"), sol, []int{2}, 1e-6)
	require.Error(t, err)
}
