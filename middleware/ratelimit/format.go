// utilitários pequenos para formatar números em headers.

package ratelimit

import (
	"math"
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

func formatInt64(v int64) string { return strconv.FormatInt(v, 10) }

// formatSeconds arredonda para cima: um Retry-After de 0 convidaria a repetir já.
func formatSeconds(d time.Duration) string {
	s := int64(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return formatInt64(s)
}
