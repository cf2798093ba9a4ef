//-------------------------------------------------------------------------
//
// pgEdge Sales Mart
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package version provides build and version information for pgedge-salesmart.
package version

import (
	"fmt"
	"runtime"
)

// Build information set at compile time via ldflags.
var (
	Version   = "0.3.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// SchemaVersion is bumped whenever the warehouse DDL or report views change.
const SchemaVersion = "2"

// Info returns formatted version information.
func Info() string {
	return fmt.Sprintf(
		"pgedge-salesmart %s (schema: %s, commit: %s, built: %s, go: %s)",
		Version, SchemaVersion, Commit, BuildDate, runtime.Version(),
	)
}

// Short returns just the version string.
func Short() string {
	return Version
}
