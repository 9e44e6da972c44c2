package util

// MaskToken keeps the first and last four characters of a credential so
// log lines stay correlatable without leaking the value.
func MaskToken(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "…" + s[len(s)-4:]
}
