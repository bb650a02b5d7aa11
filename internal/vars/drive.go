package vars

import "strings"

// HasDriveLetter reports whether path starts with a Windows drive letter.
// Only Windows paths carry drive letters.
func HasDriveLetter(path, goos string) bool {
	if goos != "windows" || len(path) < 2 {
		return false
	}
	c := path[0]
	isLetter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	return isLetter && path[1] == ':'
}

// NormalizeDriveLetter upper-cases a leading drive letter so repeated
// computations of the same path compare equal.
func NormalizeDriveLetter(path, goos string) string {
	if HasDriveLetter(path, goos) {
		return strings.ToUpper(path[:1]) + path[1:]
	}
	return path
}
