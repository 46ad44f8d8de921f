package fx

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/swisstax/reconcile/date"
	"github.com/swisstax/reconcile/log"
)

type cachedRate struct {
	rate DailyRate
	err  error
}

// CachedRateSource memoizes lookups of another RateSource, including
// lookups that failed.
type CachedRateSource struct {
	source RateSource
	cache  *cache.Cache
}

func NewCachedRateSource(source RateSource, expiration time.Duration) *CachedRateSource {
	return &CachedRateSource{
		source: source,
		cache:  cache.New(expiration, 2*expiration),
	}
}

func cacheKey(currency string, on date.Date) string {
	return currency + "@" + on.String()
}

func (c *CachedRateSource) GetRate(currency string, on date.Date) (DailyRate, error) {
	key := cacheKey(currency, on)
	if v, ok := c.cache.Get(key); ok {
		entry := v.(cachedRate)
		return entry.rate, entry.err
	}
	rate, err := c.source.GetRate(currency, on)
	log.Tracef("fx", "rate lookup %s: %s (err: %v)", key, rate.ForeignToLocalRate, err)
	c.cache.Set(key, cachedRate{rate, err}, cache.DefaultExpiration)
	return rate, err
}

// Len is the number of memoized lookups.
func (c *CachedRateSource) Len() int {
	return c.cache.ItemCount()
}
