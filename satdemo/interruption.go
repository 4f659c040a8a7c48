package satdemo

import (
	"context"

	"github.com/signalsfoundry/discretesim/entitystore"
	"github.com/signalsfoundry/discretesim/internal/logging"
)

// Interruption is the set of commands external senders can deliver into
// a running Game. It is the interface instantiating server.Interruption
// for this domain.
type Interruption interface {
	Update(g *Game) bool
}

// SpawnSatellite adds a new satellite to the game, propagated from the
// given two-line element set. It never requests shutdown.
type SpawnSatellite struct {
	Name     string
	TLELine1 string
	TLELine2 string
}

// Update implements Interruption.
func (s SpawnSatellite) Update(g *Game) bool {
	uid := g.AddSatellite(s.Name, s.TLELine1, s.TLELine2)
	if g.log != nil {
		g.log.Info(context.Background(), "spawned satellite",
			logging.String("name", s.Name),
			logging.Any("uid", uid),
		)
	}
	return false
}

// RemoveSatellite deletes a previously spawned satellite by UID. It
// never requests shutdown; a nonexistent UID is silently ignored.
type RemoveSatellite struct {
	UID entitystore.UID
}

// Update implements Interruption.
func (r RemoveSatellite) Update(g *Game) bool {
	g.RemoveSatellite(r.UID)
	return false
}

// Shutdown requests that the server stop after being applied.
type Shutdown struct{}

// Update implements Interruption.
func (Shutdown) Update(*Game) bool { return true }
