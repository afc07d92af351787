package entity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultRegionSize is the edge length, in blocks, of one scheduling region.
const DefaultRegionSize = 16

var ErrBadLocation = errors.New("bad location")

// Location is a point in a named world.
type Location struct {
	World   string
	X, Y, Z float64
}

// Region identifies the unit of thread affinity a location belongs to.
// Height does not matter: a region is a column.
type Region struct {
	World string
	X, Z  int32
}

func toRegionCoord(v float64, size int) int32 {
	return int32(math.Floor(v / float64(size)))
}

// Region returns the region containing l for the given region edge length.
func (l Location) Region(size int) Region {
	if size <= 0 {
		size = DefaultRegionSize
	}
	return Region{World: l.World, X: toRegionCoord(l.X, size), Z: toRegionCoord(l.Z, size)}
}

func (l Location) String() string {
	return fmt.Sprintf("%s,%s,%s,%s", l.World,
		strconv.FormatFloat(l.X, 'f', -1, 64),
		strconv.FormatFloat(l.Y, 'f', -1, 64),
		strconv.FormatFloat(l.Z, 'f', -1, 64))
}

func (r Region) String() string {
	return fmt.Sprintf("%s[%d,%d]", r.World, r.X, r.Z)
}

// ParseLocation parses "world,x,y,z". Whitespace around fields is ignored.
func ParseLocation(s string) (Location, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Location{}, fmt.Errorf("%w: %q: want world,x,y,z", ErrBadLocation, s)
	}
	world := strings.TrimSpace(parts[0])
	if world == "" {
		return Location{}, fmt.Errorf("%w: %q: empty world", ErrBadLocation, s)
	}
	var coords [3]float64
	for i, p := range parts[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Location{}, fmt.Errorf("%w: %q: %v", ErrBadLocation, s, err)
		}
		coords[i] = v
	}
	return Location{World: world, X: coords[0], Y: coords[1], Z: coords[2]}, nil
}
