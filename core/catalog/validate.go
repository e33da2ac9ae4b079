package catalog

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"musicshare/core/apperr"
)

// MaxAliasLen bounds aliases, which double as URL path segments.
const MaxAliasLen = 50

var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var (
	audioExtensions = map[string]bool{"mp3": true, "ogg": true, "wav": true, "m4a": true}
	imageExtensions = map[string]bool{"jpg": true, "jpeg": true, "png": true, "webp": true, "gif": true}
)

// reservedAliases collide with fixed routes such as /tracks/all.
var reservedAliases = map[string]bool{"all": true}

// ValidateAlias checks that alias is a URL-safe slug.
func ValidateAlias(alias string) error {
	if len(alias) == 0 || len(alias) > MaxAliasLen || !aliasPattern.MatchString(alias) {
		return fmt.Errorf("%w: alias %q must be 1-%d letters, digits, '-' or '_'", apperr.ErrInvalidFormat, alias, MaxAliasLen)
	}
	if reservedAliases[alias] {
		return fmt.Errorf("%w: alias %q is reserved", apperr.ErrInvalidFormat, alias)
	}
	return nil
}

// extension returns the lower-cased file extension of a media reference,
// which may be a bare file name, an object key or a URL.
func extension(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		p = u.Path
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

// ValidateMediaExtension rejects audio references outside mp3, ogg, wav and m4a.
func ValidateMediaExtension(ref string) error {
	if !audioExtensions[extension(ref)] {
		return fmt.Errorf("%w: the file extension of %q is not allowed", apperr.ErrInvalidFormat, ref)
	}
	return nil
}

// ValidateImageExtension rejects cover art that is not a common web image.
func ValidateImageExtension(ref string) error {
	if !imageExtensions[extension(ref)] {
		return fmt.Errorf("%w: the image extension of %q is not allowed", apperr.ErrInvalidFormat, ref)
	}
	return nil
}
