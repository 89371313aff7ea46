package config

import (
	"fmt"
	"strings"
)

// Windows reserved names (case-insensitive)
var windowsReservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true, "com5": true,
	"com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true, "lpt5": true,
	"lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

func isSeparator(r rune) bool {
	return r == '.' || r == '/' || r == '-'
}

// ValidateModuleName checks a module identifier. It becomes the default
// base name of emitted files, so it follows file-name friendly rules:
//   - Only separators: . / -
//   - ASCII lowercase letters, digits, and underscore only
//   - No double underscores (__)
//   - No trailing underscores
//   - No empty segments
//   - No Windows reserved names
func ValidateModuleName(name string) error {
	if name == "" {
		return fmt.Errorf("module name cannot be empty")
	}

	segStart := 0
	for i, r := range name {
		if isSeparator(r) {
			if err := checkSegment(name[segStart:i]); err != nil {
				return err
			}
			segStart = i + 1
			continue
		}

		switch {
		case r >= 'A' && r <= 'Z':
			return fmt.Errorf("uppercase letter %q at position %d: module names must be lowercase", r, i)
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '_':
			if i > segStart && name[i-1] == '_' {
				return fmt.Errorf("double underscore at position %d", i)
			}
		default:
			return fmt.Errorf("invalid character %q at position %d in module name", r, i)
		}
	}

	return checkSegment(name[segStart:])
}

func checkSegment(seg string) error {
	if seg == "" {
		return fmt.Errorf("empty segment in module name (consecutive separators)")
	}
	if seg[len(seg)-1] == '_' {
		return fmt.Errorf("segment %q ends with underscore", seg)
	}
	if windowsReservedNames[strings.ToLower(seg)] {
		return fmt.Errorf("segment %q is a Windows reserved name", seg)
	}
	return nil
}
