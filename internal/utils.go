package utils

import (
	"os"
	"path/filepath"
	"strings"
)

var QuitChan = make(chan os.Signal, 1)

// BaseName strips any directory part from a client-supplied file name and
// replaces characters that do not belong in an object key. The extension
// survives even when the rest of the name is replaced.
func BaseName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))

	stem, ext := name, filepath.Ext(name)
	if ext != "" && len(ext) < len(name) {
		stem = strings.TrimSuffix(name, ext)
		ext = strings.Trim(keyChars(strings.TrimPrefix(ext, ".")), ".-")
	} else {
		// dotfiles and names without an extension
		ext = ""
	}

	stem = strings.Trim(keyChars(stem), ".-")
	if stem == "" {
		stem = "file"
	}
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

func keyChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
