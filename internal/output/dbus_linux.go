//go:build linux

package output

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"stembed/internal/formatter"
)

// Session bus names used by DBus.
const (
	DefaultBusName = "org.stembed.Output"
	ObjectPath     = dbus.ObjectPath("/org/stembed/Output")
	Interface      = "org.stembed.Output"
)

// emitter is the part of *dbus.Conn the sink uses.
type emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// DBus broadcasts instructions as signals on the session bus: Backspace(u)
// and Write(s) on Interface. A keyboard injector subscribes to them.
type DBus struct {
	conn   emitter
	closer func() error
	logger *slog.Logger
}

// ConnectDBus claims name on the session bus. An empty name selects
// DefaultBusName.
func ConnectDBus(name string, logger *slog.Logger) (*DBus, error) {
	if name == "" {
		name = DefaultBusName
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	reply, err := conn.RequestName(name, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("request bus name %s: %w", name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name %s already taken", name)
	}
	return newDBus(conn, conn.Close, logger), nil
}

func newDBus(conn emitter, closer func() error, logger *slog.Logger) *DBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBus{conn: conn, closer: closer, logger: logger.With("component", "output", "sink", "dbus")}
}

// Send implements Sink.
func (d *DBus) Send(_ context.Context, set formatter.InstructionSet) {
	if err := Validate(set); err != nil {
		d.logger.Warn("dropping instructions", "error", err)
		return
	}
	for _, in := range set {
		var err error
		switch in.Kind {
		case formatter.InstructionBackspace:
			if in.Count == 0 {
				continue
			}
			err = d.conn.Emit(ObjectPath, Interface+".Backspace", uint32(in.Count))
		case formatter.InstructionWrite:
			err = d.conn.Emit(ObjectPath, Interface+".Write", in.Text)
		}
		if err != nil {
			d.logger.Warn("emit failed", "instruction", in.String(), "error", err)
			return
		}
	}
}

// Close releases the bus connection.
func (d *DBus) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer()
}
