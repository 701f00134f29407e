//go:build release

package multibuffer

const defaultCheckInvariants = false
