package types

import (
	"strings"
	"time"
)

// DefaultRefreshInterval is used when no interval has been configured.
const DefaultRefreshInterval = "30 minutes"

// RefreshConfig is the host-owned configuration of the monitor.
type RefreshConfig struct {
	// InstallationID identifies the Enlighten system being monitored.
	InstallationID string `json:"installationId"`
	// RefreshInterval is a human readable interval like "30 minutes".
	RefreshInterval string `json:"refreshInterval"`
}

// WithDefaults fills in empty fields and trims the installation id.
func (c RefreshConfig) WithDefaults() RefreshConfig {
	c.InstallationID = strings.TrimSpace(c.InstallationID)
	if c.RefreshInterval == "" {
		c.RefreshInterval = DefaultRefreshInterval
	}
	return c
}

// ThrottleState is the bookkeeping used to gate fetch attempts.
type ThrottleState struct {
	LastRefresh     time.Time `json:"lastRefresh"`
	MinimumInterval time.Duration
}

// Unit is the smallest display unit the formatter may pick.
type Unit int

const (
	UnitWatt Unit = iota
	UnitKilowatt
	UnitMegawatt
)

func (u Unit) String() string {
	switch u {
	case UnitKilowatt:
		return "kW"
	case UnitMegawatt:
		return "MW"
	default:
		return "W"
	}
}
