package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum(t *testing.T) {
	a := Sum([]byte("import os\n"))
	assert.Len(t, a, 32)
	assert.Equal(t, a, Sum([]byte("import os\n")))
	assert.NotEqual(t, a, Sum([]byte("import os \n")))
}

func TestSameContentIgnoresModTime(t *testing.T) {
	data := []byte("x = 1\n")
	f1 := Of(data, time.Unix(100, 0))
	f2 := Of(data, time.Unix(200, 0))
	assert.True(t, f1.SameContent(f2))
	assert.NotEqual(t, f1.String(), f2.String(), "cache key changes on touch")

	f3 := Of([]byte("x = 2\n"), time.Unix(100, 0))
	assert.False(t, f1.SameContent(f3))
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.py")
	require.NoError(t, os.WriteFile(path, []byte("import sys\n"), 0o644))

	data, fp, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, "import sys\n", string(data))
	assert.Equal(t, int64(11), fp.Size)
	assert.False(t, fp.IsZero())

	_, _, err = File(filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)
}
