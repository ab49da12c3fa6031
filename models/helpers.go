package models

import (
	"strconv"
)

// ─── shared formatting helpers (package-private) ────────────────────────

func i32toa(v int32) string  { return strconv.FormatInt(int64(v), 10) }
func utoa64(v uint64) string { return strconv.FormatUint(v, 10) }
func btoa(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
