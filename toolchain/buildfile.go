package toolchain

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/cgen/errors"
)

// BuildFileName is the generated build configuration.
const BuildFileName = "build.toml"

// BuildFile is the persisted form of a Spec.
type BuildFile struct {
	Library     string   `toml:"library"`
	Artifact    string   `toml:"artifact"`
	Sources     []string `toml:"sources"`
	Headers     []string `toml:"headers"`
	CFlags      []string `toml:"cflags"`
	LDFlags     []string `toml:"ldflags"`
	IncludeDirs []string `toml:"include_dirs"`
}

// NewBuildFile captures spec.
func NewBuildFile(spec *Spec) BuildFile {
	return BuildFile{
		Library:     spec.Library,
		Artifact:    spec.Artifact(),
		Sources:     nonNil(spec.Sources),
		Headers:     nonNil(spec.Headers),
		CFlags:      nonNil(spec.CFlags),
		LDFlags:     nonNil(spec.LDFlags),
		IncludeDirs: nonNil(spec.IncludeDirs),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// WriteBuildFile writes build.toml into spec.Dir unless its content is
// already current. It reports whether the file changed.
func WriteBuildFile(spec *Spec) (bool, error) {
	data, err := toml.Marshal(NewBuildFile(spec))
	if err != nil {
		return false, errors.Wrap(err, "marshal build file")
	}
	return WriteIfChanged(filepath.Join(spec.Dir, BuildFileName), data)
}

// ReadBuildFile reads build.toml from dir.
func ReadBuildFile(dir string) (BuildFile, error) {
	var bf BuildFile
	data, err := os.ReadFile(filepath.Join(dir, BuildFileName))
	if err != nil {
		return bf, errors.WrapMark(err, errors.ErrFilesystem, "read build file")
	}
	if err := toml.Unmarshal(data, &bf); err != nil {
		return bf, errors.Wrap(err, "parse build file")
	}
	return bf, nil
}

// WriteIfChanged writes data to path only when the existing content
// differs, leaving timestamps of unchanged files alone.
func WriteIfChanged(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, errors.WrapMark(err, errors.ErrFilesystem, "read "+path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, errors.WrapMark(err, errors.ErrFilesystem, "write "+path)
	}
	return true, nil
}
