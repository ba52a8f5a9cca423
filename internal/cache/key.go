package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/energy-kpi/internal/interval"
)

// KPIKeyPrefix prefixes every KPI result key.
const KPIKeyPrefix = "kpi:"

// Key builds the cache key of a KPI computation. Intervals describing the same
// bucket width produce the same key.
func Key(name string, from, to time.Time, iv interval.Interval, source string) string {
	parts := strings.Join([]string{
		name,
		from.UTC().Format(time.RFC3339Nano),
		to.UTC().Format(time.RFC3339Nano),
		iv.Key(),
		source,
	}, "|")
	sum := sha256.Sum256([]byte(parts))
	return KPIKeyPrefix + name + ":" + hex.EncodeToString(sum[:])
}

// MetaKey builds the cache key of a metadata listing page.
func MetaKey(page, perPage int) string {
	return "meta:" + strconv.Itoa(page) + ":" + strconv.Itoa(perPage)
}
