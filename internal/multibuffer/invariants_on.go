//go:build !release

package multibuffer

// defaultCheckInvariants enables consistency checks outside release builds.
const defaultCheckInvariants = true
