package redisx

import "strings"

const (
	// Failed logins per email inside the throttle window: login:fail:{email} -> count
	KeyLoginFailures = "login:fail:%s"
)

// NormalizeEmail keeps throttle keys stable across casing and padding.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
