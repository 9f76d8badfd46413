// Package config loads the winstow configuration file and merges it with
// command-line values. Scalars from the command line replace file values;
// pattern lists merge, with command-line patterns appended to the file's.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/winstow/pkg/errors"
	"github.com/arthur-debert/winstow/pkg/logging"
)

// RCFileName is the dotfile looked up in the working and home directories.
const RCFileName = ".winstowrc"

// AppDirName is the directory under APPDATA holding config.toml.
const AppDirName = "winstow"

// File mirrors the recognized configuration keys.
type File struct {
	DefaultDir    string   `toml:"default-dir"`
	DefaultTarget string   `toml:"default-target"`
	Ignore        []string `toml:"ignore"`
	Defer         []string `toml:"defer"`
	Verbose       bool     `toml:"verbose"`
}

// Load finds and parses the first configuration file in resolution order:
// ./.winstowrc, the home directory's .winstowrc, then
// APPDATA\winstow\config.toml. A missing file yields empty defaults; a
// present but unreadable or unparsable file is an error.
func Load() (*File, error) {
	log := logging.GetLogger("config")

	for _, path := range searchPaths() {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		log.Debug().Str("path", path).Msg("loading configuration file")
		return LoadFrom(path)
	}
	return &File{}, nil
}

// LoadFrom parses a specific configuration file.
func LoadFrom(path string) (*File, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read config file %s", path)
	}
	var f File
	if err := toml.Unmarshal(contents, &f); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse config file %s", path)
	}
	return &f, nil
}

func searchPaths() []string {
	var candidates []string

	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, RCFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, RCFileName))
	}

	appData := os.Getenv("APPDATA")
	if appData == "" {
		appData = xdg.ConfigHome
	}
	candidates = append(candidates, filepath.Join(appData, AppDirName, "config.toml"))

	return candidates
}

// CLIValues carries the raw command-line settings relevant to merging.
type CLIValues struct {
	StowDir   string
	TargetDir string
	Ignore    []string
	Defer     []string
	Verbosity int
}

// Merged is the effective configuration after combining file and CLI.
type Merged struct {
	StowDir   string
	TargetDir string
	Ignore    []string
	Defer     []string
	Verbosity int
}

// Merge applies the precedence rules. Directories fall back to the working
// directory (stow) and the home directory (target) when neither side sets
// them.
func (f *File) Merge(cli CLIValues) Merged {
	m := Merged{
		StowDir:   cli.StowDir,
		TargetDir: cli.TargetDir,
		Verbosity: cli.Verbosity,
	}

	if m.StowDir == "" {
		m.StowDir = f.DefaultDir
	}
	if m.StowDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			m.StowDir = cwd
		}
	}

	if m.TargetDir == "" {
		m.TargetDir = f.DefaultTarget
	}
	if m.TargetDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			m.TargetDir = home
		}
	}

	m.Ignore = append(append([]string{}, f.Ignore...), cli.Ignore...)
	m.Defer = append(append([]string{}, f.Defer...), cli.Defer...)

	if m.Verbosity == 0 && f.Verbose {
		m.Verbosity = 1
	}
	return m
}
