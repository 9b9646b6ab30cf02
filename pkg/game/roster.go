package game

import "github.com/cbodonnell/vibemod/pkg/game/types"

// roster is the participant bookkeeping of one coordinator. Slices keep
// join order so iteration, and with it broadcast order, is deterministic.
type roster struct {
	order    []string
	roles    map[string]types.Role
	hiding   []string
	infected []string
	// spawns holds this round's placements
	spawns map[string]types.Point
	// scores outlive membership
	scores map[string]int
}

func newRoster() *roster {
	return &roster{
		roles:  make(map[string]types.Role),
		spawns: make(map[string]types.Point),
		scores: make(map[string]int),
	}
}

func (r *roster) has(id string) bool {
	return indexOf(r.order, id) >= 0
}

// add appends a participant and creates its score entry. It reports
// whether the participant was new.
func (r *roster) add(id string) bool {
	if r.has(id) {
		return false
	}
	r.order = append(r.order, id)
	r.roles[id] = types.RoleNone
	if _, ok := r.scores[id]; !ok {
		r.scores[id] = 0
	}
	return true
}

// remove drops a participant from membership and every role list. Its
// score entry is kept.
func (r *roster) remove(id string) bool {
	i := indexOf(r.order, id)
	if i < 0 {
		return false
	}
	r.order = append(r.order[:i], r.order[i+1:]...)
	delete(r.roles, id)
	delete(r.spawns, id)
	r.hiding = without(r.hiding, id)
	r.infected = without(r.infected, id)
	return true
}

func (r *roster) ids() []string {
	return append([]string(nil), r.order...)
}

func (r *roster) size() int {
	return len(r.order)
}

// resetRound clears per-round state.
func (r *roster) resetRound() {
	for id := range r.roles {
		r.roles[id] = types.RoleNone
	}
	r.hiding = nil
	r.infected = nil
	r.spawns = make(map[string]types.Point)
}

func (r *roster) role(id string) types.Role {
	return r.roles[id]
}

// setRole records a role and keeps the hiding and infected lists in step.
func (r *roster) setRole(id string, role types.Role) {
	if !r.has(id) {
		return
	}
	r.roles[id] = role
	switch role {
	case types.RoleHider:
		if indexOf(r.hiding, id) < 0 {
			r.hiding = append(r.hiding, id)
		}
	case types.RoleInfected:
		r.hiding = without(r.hiding, id)
		if indexOf(r.infected, id) < 0 {
			r.infected = append(r.infected, id)
		}
	default:
		r.hiding = without(r.hiding, id)
	}
}

func (r *roster) setSpawn(id string, p types.Point) {
	if !r.has(id) {
		return
	}
	r.spawns[id] = p
}

func (r *roster) spawn(id string) (types.Point, bool) {
	p, ok := r.spawns[id]
	return p, ok
}

func (r *roster) isHiding(id string) bool {
	return indexOf(r.hiding, id) >= 0
}

// markFound removes a hider from the hiding list. Its role stays hider.
func (r *roster) markFound(id string) bool {
	if !r.isHiding(id) {
		return false
	}
	r.hiding = without(r.hiding, id)
	return true
}

func (r *roster) isInfected(id string) bool {
	return indexOf(r.infected, id) >= 0
}

func (r *roster) withRole(role types.Role) []string {
	var ids []string
	for _, id := range r.order {
		if r.roles[id] == role {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *roster) hidingIDs() []string {
	return append([]string(nil), r.hiding...)
}

func (r *roster) notInfectedIDs() []string {
	var ids []string
	for _, id := range r.order {
		if !r.isInfected(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// award adds points and returns the new score.
func (r *roster) award(id string, points int) int {
	r.scores[id] += points
	return r.scores[id]
}

func (r *roster) setScore(id string, score int) {
	r.scores[id] = score
}

func (r *roster) scoreTable() map[string]int {
	table := make(map[string]int, len(r.scores))
	for id, score := range r.scores {
		table[id] = score
	}
	return table
}

func (r *roster) counts() RoundCounts {
	return RoundCounts{
		Total:    len(r.order),
		Hiding:   len(r.hiding),
		Infected: len(r.infected),
	}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func without(ids []string, id string) []string {
	i := indexOf(ids, id)
	if i < 0 {
		return ids
	}
	return append(ids[:i], ids[i+1:]...)
}
