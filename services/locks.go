package services

import "sync"

// userLocks serializes mutations of a single user's progression state.
// Concurrent session logs for the same user both read-modify-write the
// streak, XP and challenge rows; without this, two simultaneous logs can
// lose an update. Cross-user requests stay fully concurrent.
var userLocks sync.Map // userID -> *sync.Mutex

func lockUser(userID string) func() {
	v, _ := userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
