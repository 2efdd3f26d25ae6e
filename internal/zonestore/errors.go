package zonestore

import (
	"errors"
	"fmt"
)

var ErrConfig = errors.New("invalid zone configuration")

// ConfigError reports a rejected seed: empty, duplicate or blank ids.
type ConfigError struct {
	ZoneID string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.ZoneID == "" {
		return fmt.Sprintf("zone config: %s", e.Reason)
	}
	return fmt.Sprintf("zone config: %s (zone %q)", e.Reason, e.ZoneID)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }
