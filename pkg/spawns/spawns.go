// Package spawns places participants at spawn points chosen by role.
package spawns

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/cbodonnell/vibemod/pkg/game/types"
)

type Point = types.Point

// Sets groups the spawn points of a level.
type Sets struct {
	Player []Point
	Hide   []Point
	Seek   []Point
}

// Spawner places a participant for the role it plays in the round.
type Spawner interface {
	Place(participantID string, role types.Role) (Point, error)
}

// PointsFor returns the point set used for the role. Roles without a
// dedicated set use the player points.
func (s Sets) PointsFor(role types.Role) []Point {
	var points []Point
	switch role {
	case types.RoleSeeker, types.RoleInfected:
		points = s.Seek
	case types.RoleHider, types.RoleSurvivor:
		points = s.Hide
	}
	if len(points) == 0 {
		return s.Player
	}
	return points
}

// SetSpawner picks a random point from the role's set.
type SetSpawner struct {
	lock sync.Mutex
	sets Sets
	rng  *rand.Rand
}

func NewSetSpawner(sets Sets, seed int64) *SetSpawner {
	return &SetSpawner{
		sets: sets,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (s *SetSpawner) Place(participantID string, role types.Role) (Point, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	points := s.sets.PointsFor(role)
	if len(points) == 0 {
		return Point{}, fmt.Errorf("no spawn points for role %s", role)
	}
	return points[s.rng.Intn(len(points))], nil
}

// ParsePoints parses a list of points in the form "x,y,z;x,y,z".
// The z coordinate may be omitted.
func ParsePoints(s string) ([]Point, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var points []Point
	for _, raw := range strings.Split(s, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ",")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid spawn point %q", raw)
		}
		var coords [3]float64
		for i, part := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid spawn point %q: %v", raw, err)
			}
			coords[i] = v
		}
		points = append(points, Point{X: coords[0], Y: coords[1], Z: coords[2]})
	}
	return points, nil
}
