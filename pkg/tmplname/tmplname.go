// Package tmplname validates template names before any filesystem access.
// Discovery and resolution across user/system/embedded directories is left
// to callers; this package is the pure validation gate they are expected to
// run first.
package tmplname

import (
	"fmt"
	"regexp"
	"strings"
)

var allowedRe = regexp.MustCompile(`^[A-Za-z0-9_./-]+$`)

// Validate reports whether name is safe to resolve against a template
// directory: non-empty, free of backslashes, containing no ".." anywhere
// (so "foo..bar" is rejected as well as "../x"), not an absolute path, and composed only of the allowlisted character set.
// Forward slashes are permitted for subdirectory organization.
func Validate(name string) error {
	if name == "" {
		return fmt.Errorf("template name must not be empty")
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, "\\") {
		return fmt.Errorf("invalid template name %q: absolute paths are not allowed", name)
	}
	if strings.Contains(name, "\\") {
		return fmt.Errorf("invalid template name %q: backslashes are not allowed", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("invalid template name %q: parent directory references (..) are not allowed", name)
	}
	if !allowedRe.MatchString(name) {
		return fmt.Errorf("invalid template name %q: only letters, digits, underscore, dot, hyphen, and forward slash are allowed", name)
	}
	return nil
}
