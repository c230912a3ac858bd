// Package timezone pins wall-clock reads to the rental desk's zone (APP_TIMEZONE).
// Calendar dates such as "today" for a pickup are taken in this zone, so a
// customer booking just after midnight local time is not judged by UTC.
package timezone

import (
	"sync"
	"time"
	_ "time/tzdata" // distroless images ship without a zoneinfo database

	"carrental/config"

	"github.com/rs/zerolog/log"
)

const fallbackZone = "UTC"

var location = sync.OnceValue(func() *time.Location {
	return Load(config.Get().App.Timezone)
})

// Load resolves an IANA zone name such as "Asia/Jakarta". Empty or unknown
// names fall back to UTC.
func Load(name string) *time.Location {
	if name == "" {
		log.Warn().Msg("No timezone configured, using UTC as default")

		return time.UTC
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Error().Err(err).Str("timezone", name).Str("fallback", fallbackZone).Msg("Failed to load timezone")

		return time.UTC
	}

	log.Info().Str("timezone", loc.String()).Msg("Application timezone initialized")

	return loc
}

func Location() *time.Location {
	return location()
}

// Now returns the current time in the application timezone
func Now() time.Time {
	return time.Now().In(location())
}

// Format formats t as seen from the application timezone.
func Format(t time.Time, layout string) string {
	return t.In(location()).Format(layout)
}
