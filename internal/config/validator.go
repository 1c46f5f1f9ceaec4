package config

import (
	"fmt"
	"net"
	"strings"

	"gtpv2c-generator/pkg/types"
)

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if net.ParseIP(c.Local.Address) == nil {
		errs = append(errs, fmt.Sprintf("local.address must be a valid IP address, got %q", c.Local.Address))
	}
	if c.Local.Port <= 0 || c.Local.Port > 65535 {
		errs = append(errs, fmt.Sprintf("local.port must be between 1 and 65535, got %d", c.Local.Port))
	}
	if c.Local.DataAddress != "" && net.ParseIP(c.Local.DataAddress) == nil {
		errs = append(errs, fmt.Sprintf("local.data_address must be a valid IP address, got %q", c.Local.DataAddress))
	}

	if net.ParseIP(c.Peer.Address) == nil {
		errs = append(errs, fmt.Sprintf("peer.address must be a valid IP address, got %q", c.Peer.Address))
	}
	if c.Peer.Port <= 0 || c.Peer.Port > 65535 {
		errs = append(errs, fmt.Sprintf("peer.port must be between 1 and 65535, got %d", c.Peer.Port))
	}

	if c.Session.Count <= 0 {
		errs = append(errs, fmt.Sprintf("session.count must be > 0, got %d", c.Session.Count))
	}
	if c.Session.UEIPPool == "" {
		errs = append(errs, "session.ue_ip_pool must be specified")
	} else if _, _, err := net.ParseCIDR(c.Session.UEIPPool); err != nil {
		errs = append(errs, fmt.Sprintf("invalid UE IP pool CIDR %q: %v", c.Session.UEIPPool, err))
	}
	if c.Session.TEIDStart == 0 {
		errs = append(errs, "session.teid_start must be > 0")
	}
	if c.Session.TEIDStrategy != "sequential" && c.Session.TEIDStrategy != "random" {
		errs = append(errs, fmt.Sprintf("session.teid_strategy must be 'sequential' or 'random', got %q", c.Session.TEIDStrategy))
	}

	if c.Bearer.EBI&0xf0 != 0 {
		errs = append(errs, fmt.Sprintf("bearer.ebi must fit in 4 bits, got %d", c.Bearer.EBI))
	}

	if len(c.Filters) > types.MaxFiltersPerUE {
		errs = append(errs, fmt.Sprintf("at most %d filters per bearer, got %d", types.MaxFiltersPerUE, len(c.Filters)))
	}
	for i := range c.Filters {
		if _, err := c.Filters[i].ToPacketFilter(); err != nil {
			errs = append(errs, fmt.Sprintf("filters[%d]: %v", i, err))
		}
	}

	if c.Timing.ResponseTimeoutMs <= 0 {
		errs = append(errs, "timing.response_timeout_ms must be > 0")
	}
	if c.Timing.MaxRetries < 0 {
		errs = append(errs, "timing.max_retries must be >= 0")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
