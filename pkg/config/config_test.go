package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/winstow/pkg/config"
	"github.com/arthur-debert/winstow/pkg/errors"
)

func TestLoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.RCFileName)
	require.NoError(t, os.WriteFile(path, []byte(`
default-dir = 'C:\stow'
default-target = 'C:\target'
ignore = ["*.bak", ".DS_Store"]
defer = ["*.lock"]
verbose = true
`), 0o644))

	f, err := config.LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, `C:\stow`, f.DefaultDir)
	assert.Equal(t, `C:\target`, f.DefaultTarget)
	assert.Equal(t, []string{"*.bak", ".DS_Store"}, f.Ignore)
	assert.Equal(t, []string{"*.lock"}, f.Defer)
	assert.True(t, f.Verbose)
}

func TestLoadFromInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.RCFileName)
	require.NoError(t, os.WriteFile(path, []byte("invalid toml {{{"), 0o644))

	_, err := config.LoadFrom(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := config.LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
}

func TestMergeScalarsReplacedByCLI(t *testing.T) {
	f := &config.File{
		DefaultDir:    `C:\config_stow`,
		DefaultTarget: `C:\config_target`,
	}

	m := f.Merge(config.CLIValues{
		StowDir:   `C:\cli_stow`,
		TargetDir: `C:\cli_target`,
	})
	assert.Equal(t, `C:\cli_stow`, m.StowDir)
	assert.Equal(t, `C:\cli_target`, m.TargetDir)

	m = f.Merge(config.CLIValues{})
	assert.Equal(t, `C:\config_stow`, m.StowDir)
	assert.Equal(t, `C:\config_target`, m.TargetDir)
}

func TestMergeListsAppend(t *testing.T) {
	f := &config.File{
		Ignore: []string{"*.bak"},
		Defer:  []string{"*.lock"},
	}

	m := f.Merge(config.CLIValues{
		Ignore: []string{"*.tmp"},
		Defer:  []string{".bashrc"},
	})

	// lists merge: CLI patterns append to the file's
	assert.Equal(t, []string{"*.bak", "*.tmp"}, m.Ignore)
	assert.Equal(t, []string{"*.lock", ".bashrc"}, m.Defer)
}

func TestMergeVerbose(t *testing.T) {
	f := &config.File{Verbose: true}

	assert.Equal(t, 1, f.Merge(config.CLIValues{}).Verbosity)
	assert.Equal(t, 3, f.Merge(config.CLIValues{Verbosity: 3}).Verbosity)

	quiet := &config.File{}
	assert.Equal(t, 0, quiet.Merge(config.CLIValues{}).Verbosity)
}

func TestLoadFindsHomeRC(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	// run from a directory without a local rc file
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(cwd) }()

	require.NoError(t, os.WriteFile(filepath.Join(home, config.RCFileName),
		[]byte("default-dir = 'C:\\from-home'"), 0o644))

	f, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, `C:\from-home`, f.DefaultDir)
}

func TestLoadNoFileYieldsDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("APPDATA", t.TempDir())

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(cwd) }()

	f, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, &config.File{}, f)
}
