package file

import "strings"

// Base returns the last element of a path reported by another host, which
// may use either slash or backslash separators.
func Base(p string) string {
	p = strings.TrimRight(p, `/\`)
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

// Ext returns the lower-cased extension of p's last element, including the
// dot. Dotfiles without a further dot have no extension.
func Ext(p string) string {
	name := Base(p)
	lastDot := strings.LastIndex(name, ".")
	if lastDot <= 0 {
		return ""
	}
	return strings.ToLower(name[lastDot:])
}
