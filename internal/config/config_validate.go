// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package config

import (
	"fmt"
	"net/url"

	"github.com/fbxdash/fbxdash/internal/validation"
)

// Validate checks struct-level rules and cross-field constraints.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("invalid configuration: %w", verr)
	}

	if err := validateHTTPURL(c.Freebox.URL, "FREEBOX_URL"); err != nil {
		return err
	}

	return c.validateRelay()
}

// validateRelay rejects a slow interval shorter than the fast one.
func (c *Config) validateRelay() error {
	if c.Relay.SlowInterval < c.Relay.FastInterval {
		return fmt.Errorf("RELAY_SLOW_INTERVAL (%v) must not be shorter than RELAY_FAST_INTERVAL (%v)",
			c.Relay.SlowInterval, c.Relay.FastInterval)
	}
	return nil
}

// validateHTTPURL validates that a URL is a bare http(s) base URL.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}

	if parsedURL.Path != "" && parsedURL.Path != "/" {
		return fmt.Errorf("%s should be base URL only, remove path: %s", fieldName, parsedURL.Path)
	}

	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}

	return nil
}
