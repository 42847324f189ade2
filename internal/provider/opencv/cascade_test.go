package opencv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCascade(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, CascadeFile)
	require.NoError(t, os.WriteFile(file, []byte("<opencv_storage/>"), 0o644))

	t.Run("explicit file", func(t *testing.T) {
		assert.Equal(t, file, resolveCascade(file))
	})

	t.Run("directory holding the cascade", func(t *testing.T) {
		assert.Equal(t, file, resolveCascade(dir))
	})

	t.Run("missing path is kept for the error message", func(t *testing.T) {
		missing := filepath.Join(dir, "nope.xml")
		got := resolveCascade(missing)
		if got != missing {
			// A system install of OpenCV wins over a missing explicit path.
			assert.Equal(t, CascadeFile, filepath.Base(got))
		}
	})
}
