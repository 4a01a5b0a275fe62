package domain

import "strconv"

// FormatID renders a GORM numeric primary key as the opaque string ID the
// rest of the core, and the wire protocol, deal in exclusively.
func FormatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID parses an opaque string ID back to the numeric primary key used at
// the durable-store boundary. Returns ok=false for anything that isn't a
// plain unsigned decimal integer, which callers treat as NOT_FOUND.
func ParseID(s string) (uint, bool) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}
