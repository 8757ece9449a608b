package room

// RotationPolicy picks the index of the next drawer given the index the
// drawing role is moving away from. players is never empty.
type RotationPolicy func(players []*Player, from int) int

// RoundRobin hands the role to the next player in join order.
func RoundRobin(players []*Player, from int) int {
	return (from + 1) % len(players)
}

// FirstRemaining hands the role to the player at position 0. Used after a
// drawer disconnects, when rotation order relative to the leaver is gone.
func FirstRemaining(players []*Player, from int) int {
	return 0
}

// RotateDrawer moves the drawing role with RoundRobin and returns the new
// drawer. With no current drawer the rotation starts from position 0.
func (r *Room) RotateDrawer() *Player {
	return r.rotate(RoundRobin)
}

func (r *Room) rotate(policy RotationPolicy) *Player {
	if len(r.Players) == 0 {
		return nil
	}
	_, from := r.Drawer()
	if from < 0 {
		from = 0
	}
	r.Players[from].IsDrawing = false
	next := r.Players[policy(r.Players, from)]
	next.IsDrawing = true
	return next
}

// RemovePlayer deletes the player without disturbing the order of the
// others. If the drawer left and players remain, FirstRemaining takes over.
func (r *Room) RemovePlayer(clientID string) (removed *Player, drawerLeft bool) {
	_, idx := r.FindPlayer(clientID)
	if idx < 0 {
		return nil, false
	}
	removed = r.Players[idx]
	r.Players = append(r.Players[:idx:idx], r.Players[idx+1:]...)
	delete(r.Guesses, clientID)

	drawerLeft = removed.IsDrawing
	if drawerLeft && len(r.Players) > 0 {
		r.Players[FirstRemaining(r.Players, idx)].IsDrawing = true
	}
	return removed, drawerLeft
}
