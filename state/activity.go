package state

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitalkeep/vitalkeep"
)

const activityQueueSize = 128

// ActivityRecorder writes profile mutations into an activity log. Writes
// happen on a background goroutine so mutation callers never wait for the
// activity store.
type ActivityRecorder struct {
	store   vitalkeep.ActivityStore
	log     *logrus.Entry
	timeout time.Duration

	mutex    sync.Mutex
	closed   bool
	queue    chan vitalkeep.Activity
	done     chan struct{}
	profiles *ProfileStore
	subId    SubscriptionId
}

func NewActivityRecorder(store vitalkeep.ActivityStore) *ActivityRecorder {
	return &ActivityRecorder{
		store:   store,
		log:     logrus.WithField("component", "activity_recorder"),
		timeout: 5 * time.Second,
		queue:   make(chan vitalkeep.Activity, activityQueueSize),
		done:    make(chan struct{}),
	}
}

// Attach starts recording changes of profiles. Must be called once.
func (r *ActivityRecorder) Attach(profiles *ProfileStore) {
	r.profiles = profiles
	r.subId = profiles.Subscribe(r.onChange)
	go r.run()
}

func (r *ActivityRecorder) onChange(change Change) {
	if change.Op == OpLoad {
		return
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- vitalkeep.Activity{Name: string(change.Op), Data: change.Data}:
	default:
		r.log.WithField("activity", change.Op).Warningln("Activity queue full, dropping entry.")
	}
}

func (r *ActivityRecorder) run() {
	defer close(r.done)
	for activity := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.store.AddLog(ctx, activity)
		cancel()
		if err != nil {
			r.log.WithError(err).WithField("activity", activity.Name).Warningln("Could not add activity log.")
		}
	}
}

// Close stops recording and waits until queued activities are written.
func (r *ActivityRecorder) Close() {
	r.mutex.Lock()
	if r.closed {
		r.mutex.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mutex.Unlock()

	if r.profiles != nil {
		r.profiles.Unsubscribe(r.subId)
		<-r.done
	}
}
