package core

import (
	"github.com/github/go-spdx/v2/spdxexp"
)

// IsSPDXLicense reports whether license is a valid SPDX license identifier
// or expression, e.g. "BSD-3-Clause" or "MIT OR Apache-2.0".
func IsSPDXLicense(license string) bool {
	valid, _ := spdxexp.ValidateLicenses([]string{license})
	return valid
}
