package satdemo

import (
	"github.com/google/uuid"
	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/discretesim/entitystore"
)

// Position is a satellite's location in Earth-centered, Earth-fixed
// coordinates, in metres.
type Position struct {
	X, Y, Z float64
}

// Satellite is the entity stored for each orbiting body. It is looked
// up and mutated in place by UID from updatePositionEvent; nothing else
// holds an owning reference to it.
type Satellite struct {
	// RunID correlates this satellite across log lines and metrics
	// independent of its UID, which is an opaque store key not meant
	// for display.
	RunID string
	Name  string
	ECEF  Position

	prop satellite.Satellite
}

func newSatellite(name, tleLine1, tleLine2 string) Satellite {
	return Satellite{
		RunID: uuid.NewString(),
		Name:  name,
		prop:  satellite.TLEToSat(tleLine1, tleLine2, satellite.GravityWGS72),
	}
}

// updatePositionEvent recomputes a satellite's ECEF position for the
// queue's current simulation time and reschedules itself one tick
// later. This is the design's worked example of "waiting" without a
// coroutine: the event does not block or loop, it simply re-enqueues
// itself at now + tick and returns.
type updatePositionEvent struct {
	uid entitystore.UID
}

// Invoke implements eventqueue.Event[*Game].
func (e updatePositionEvent) Invoke(g *Game) {
	sat, ok := entitystore.Get[Satellite](g.Store, e.uid)
	if !ok {
		// Removed since this event was scheduled; let it lapse.
		return
	}

	wall := g.wallTime(g.Queue.Now())
	year, month, day := wall.Date()
	hour, min, sec := wall.Clock()

	posECI, _ := satellite.Propagate(sat.prop, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	const kmToM = 1000.0
	sat.ECEF = Position{
		X: posECEF.X * kmToM,
		Y: posECEF.Y * kmToM,
		Z: posECEF.Z * kmToM,
	}

	g.Queue.EnqueueRelative(e, g.Tick)
}
