package surface

import (
	"sort"
	"sync"
	"time"
)

// Frame is the latest presented image of one window surface
type Frame struct {
	TargetID string    `json:"target_id"`
	Name     string    `json:"name"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Sequence uint64    `json:"sequence"`
	Updated  time.Time `json:"updated"`
	PNG      []byte    `json:"-"`
}

// FrameBoard holds the latest frame of every visible window surface. The
// dispatcher goroutine writes; HTTP handlers read.
type FrameBoard struct {
	frames map[string]Frame
	mutex  sync.RWMutex
}

// NewFrameBoard creates an empty board
func NewFrameBoard() *FrameBoard {
	return &FrameBoard{frames: make(map[string]Frame)}
}

// Put replaces the frame of a target and bumps its sequence
func (b *FrameBoard) Put(frame Frame) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	frame.Sequence = b.frames[frame.TargetID].Sequence + 1
	if frame.Updated.IsZero() {
		frame.Updated = time.Now()
	}
	b.frames[frame.TargetID] = frame
}

// Get returns the latest frame of a target
func (b *FrameBoard) Get(targetID string) (Frame, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	frame, ok := b.frames[targetID]
	return frame, ok
}

// Remove forgets a target
func (b *FrameBoard) Remove(targetID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.frames, targetID)
}

// IDs returns the targets that have a frame, sorted
func (b *FrameBoard) IDs() []string {
	b.mutex.RLock()
	ids := make([]string, 0, len(b.frames))
	for id := range b.frames {
		ids = append(ids, id)
	}
	b.mutex.RUnlock()

	sort.Strings(ids)
	return ids
}
