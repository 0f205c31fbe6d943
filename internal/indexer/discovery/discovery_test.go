package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for File Discovery:
// - Only allow-listed extensions are returned
// - .git and node_modules are skipped at any depth
// - Paths are relative, forward-slash, lexically ordered
// - Exactly MaxFiles files succeed, MaxFiles+1 fail with ErrDiscoveryLimitExceeded
// - Extra glob ignore patterns prune files and directories
// - .gitignore is honored only when requested
// - A missing .gitignore is not an error
// - Cancelled context aborts the walk

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func paths(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestDiscover_FiltersByExtensionAndDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"index.js":                      "",
		"lib/util.mjs":                  "",
		"lib/types.ts":                  "",
		"ui/App.tsx":                    "",
		"ui/Button.jsx":                 "",
		"legacy/old.cjs":                "",
		"tools/build.py":                "",
		"notebooks/explore.ipynb":       "{}",
		"README.md":                     "",
		"go/main.go":                    "",
		"styles.css":                    "",
		".git/hooks/pre-commit.py":      "",
		"node_modules/react/index.js":   "",
		"pkg/node_modules/dep/index.js": "",
	})

	files, err := Discover(context.Background(), root, Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{
		"index.js",
		"legacy/old.cjs",
		"lib/types.ts",
		"lib/util.mjs",
		"notebooks/explore.ipynb",
		"tools/build.py",
		"ui/App.tsx",
		"ui/Button.jsx",
	}, paths(files))

	for _, f := range files {
		assert.True(t, filepath.IsAbs(f.AbsPath))
		assert.Equal(t, filepath.Join(root, filepath.FromSlash(f.Path)), f.AbsPath)
	}
}

func TestDiscover_AdmissionCeiling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		count   int
		wantErr bool
	}{
		{"exactly at ceiling", 500, false},
		{"one over ceiling", 501, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			files := make(map[string]string, tt.count)
			for i := 0; i < tt.count; i++ {
				files[fmt.Sprintf("src/f%04d.js", i)] = ""
			}
			writeFiles(t, root, files)

			got, err := Discover(context.Background(), root, Options{MaxFiles: 500})

			if tt.wantErr {
				require.ErrorIs(t, err, ErrDiscoveryLimitExceeded)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.count)
		})
	}
}

func TestDiscover_DefaultCeiling(t *testing.T) {
	t.Parallel()

	fd, err := New(t.TempDir(), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxFiles, fd.maxFiles)
}

func TestDiscover_IgnorePatterns(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/a.js":          "",
		"src/a.test.js":     "",
		"dist/bundle.js":    "",
		"dist/nested/x.js":  "",
		"scripts/deploy.py": "",
	})

	files, err := Discover(context.Background(), root, Options{
		Ignore: []string{"dist/**", "**/*.test.js"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"scripts/deploy.py", "src/a.js"}, paths(files))
}

func TestDiscover_InvalidIgnorePattern(t *testing.T) {
	t.Parallel()

	_, err := New(t.TempDir(), Options{Ignore: []string{"[oops"}})
	assert.Error(t, err)
}

func TestDiscover_Gitignore(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		".gitignore":        "build/\n*.gen.ts\n",
		"src/app.ts":        "",
		"src/schema.gen.ts": "",
		"build/out.js":      "",
	})

	withoutGitignore, err := Discover(context.Background(), root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"build/out.js", "src/app.ts", "src/schema.gen.ts"}, paths(withoutGitignore))

	withGitignore, err := Discover(context.Background(), root, Options{RespectGitignore: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.ts"}, paths(withGitignore))
}

func TestDiscover_MissingGitignoreIsFine(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.py": ""})

	files, err := Discover(context.Background(), root, Options{RespectGitignore: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, paths(files))
}

func TestDiscover_CancelledContext(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.js": "", "b/c.js": ""})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Discover(ctx, root, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPathSet(t *testing.T) {
	t.Parallel()

	set := PathSet([]File{{Path: "a.js"}, {Path: "src/b.ts"}})

	assert.True(t, set["a.js"])
	assert.True(t, set["src/b.ts"])
	assert.False(t, set["src/b"])
}
