package paths

import (
	"strings"

	"github.com/arthur-debert/winstow/pkg/errors"
)

// reservedNames are the DOS device names Windows refuses as file names,
// with or without an extension.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

func validateSegment(name string) error {
	if name == "" {
		return errors.New(errors.ErrInvalidPath, "empty path segment")
	}
	base := name
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	base = strings.TrimRight(base, " ")
	if reservedNames[strings.ToUpper(base)] {
		return errors.Newf(errors.ErrInvalidPath, "reserved device name in path: %q", name)
	}
	return nil
}

// ValidateRelative checks every segment of a package-relative path for
// empty segments and reserved device names, and rejects traversal outside
// the package via `.` or `..`.
func ValidateRelative(rel string) error {
	for _, seg := range Segments(rel) {
		if seg == "." || seg == ".." {
			return errors.Newf(errors.ErrInvalidPath, "relative path may not contain %q: %s", seg, rel)
		}
		if err := validateSegment(seg); err != nil {
			return err
		}
	}
	return nil
}
