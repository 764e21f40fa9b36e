//go:build !cgo

package storage

import _ "modernc.org/sqlite"

// Pure-Go driver for CGO_ENABLED=0 builds.
const driverName = "sqlite"
