//go:build !linux

package output

import (
	"context"
	"errors"
	"log/slog"

	"stembed/internal/formatter"
)

// DefaultBusName is the session bus name claimed by ConnectDBus.
const DefaultBusName = "org.stembed.Output"

// ErrNoDBus is returned where the session bus sink is unavailable.
var ErrNoDBus = errors.New("output: dbus sink requires linux")

// DBus is unavailable on this platform.
type DBus struct{}

// ConnectDBus always fails on this platform.
func ConnectDBus(string, *slog.Logger) (*DBus, error) { return nil, ErrNoDBus }

// Send implements Sink.
func (*DBus) Send(context.Context, formatter.InstructionSet) {}

// Close implements io.Closer.
func (*DBus) Close() error { return nil }
