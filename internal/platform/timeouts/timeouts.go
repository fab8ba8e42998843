// Package timeouts defines shared timeout constants for classfactory commands.
package timeouts

import "time"

// Provision caps a single command run: manifest loading, table provisioning
// and type binding for every requested template.
const Provision = 30 * time.Second

// Shutdown limits how long telemetry exporters may flush on exit.
const Shutdown = 5 * time.Second
