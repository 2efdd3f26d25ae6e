package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/LeonardoBeccarini/hydroponics/internal/cache"
	"github.com/LeonardoBeccarini/hydroponics/internal/model/entities"
)

// ZoneAnalyzer is satisfied by *Client.
type ZoneAnalyzer interface {
	AnalyzeZone(ctx context.Context, z entities.Zone) ([]entities.RawAdvisory, error)
}

// CachedAnalyzer memoises zone analyses for readings that look the same at
// display precision. Cache failures are logged and bypassed.
type CachedAnalyzer struct {
	next  ZoneAnalyzer
	cache cache.Cache
	ttl   time.Duration
	log   zerolog.Logger
}

func NewCachedAnalyzer(next ZoneAnalyzer, c cache.Cache, ttl time.Duration, logger zerolog.Logger) *CachedAnalyzer {
	if c == nil {
		c = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedAnalyzer{next: next, cache: c, ttl: ttl, log: logger}
}

func (a *CachedAnalyzer) AnalyzeZone(ctx context.Context, z entities.Zone) ([]entities.RawAdvisory, error) {
	key := ZoneCacheKey(z)

	if raw, err := a.cache.Get(ctx, key); err == nil {
		var out []entities.RawAdvisory
		if jerr := json.Unmarshal(raw, &out); jerr == nil {
			return out, nil
		}
		a.log.Warn().Str("key", key).Msg("analysis: corrupt cache entry ignored")
	} else if !errors.Is(err, cache.ErrMiss) {
		a.log.Warn().Err(err).Str("driver", a.cache.Driver()).Msg("analysis: cache read failed")
	}

	out, err := a.next.AnalyzeZone(ctx, z)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(out); err == nil {
		if err := a.cache.Set(ctx, key, raw, a.ttl); err != nil {
			a.log.Warn().Err(err).Str("driver", a.cache.Driver()).Msg("analysis: cache write failed")
		}
	}
	return out, nil
}

// ZoneCacheKey fingerprints what the model sees: zone identity, crop, stage
// and the reading rounded to the precision used in the prompt.
func ZoneCacheKey(z entities.Zone) string {
	r := z.CurrentReading
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%.2f|%.1f|%.0f|%.0f|%.2f",
		z.ID, z.CropName, z.GrowthStage, r.PH, r.TemperatureC, r.HumidityPct, r.LightLux, r.EcMsCm)))
	return "analysis:zone:" + z.ID + ":" + hex.EncodeToString(sum[:8])
}
