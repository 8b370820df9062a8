package state

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitalkeep/vitalkeep"
)

// ProfileKey is the storage key holding the serialized profile.
const ProfileKey = "userProfile"

const defaultWriteTimeout = 5 * time.Second

type Phase int32

const (
	PhaseUninitialized Phase = iota
	PhaseLoading
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

type Subscriber func(change Change)

type SubscriptionId uint64

type subscription struct {
	id SubscriptionId
	fn Subscriber
}

// ProfileStore owns the single user profile of the running process.
//
// The profile is absent until Load completes. Every mutation replaces the
// profile with a new value, notifies subscribers and schedules a write of
// the new value to storage. Writes run on one background goroutine and
// coalesce, so storage always ends up holding the latest profile.
type ProfileStore struct {
	storage      vitalkeep.Storage
	log          *logrus.Entry
	writeTimeout time.Duration

	mutex     sync.RWMutex
	phase     Phase
	current   *vitalkeep.UserProfile
	subs      []subscription
	lastSubId SubscriptionId
	lastSeq   uint64

	// Changes are delivered strictly in the order their profiles were
	// installed. notifiedSeq is the sequence number of the last delivered one.
	notifyMutex sync.Mutex
	notifyCond  *sync.Cond
	notifiedSeq uint64

	loadOnce  sync.Once
	ready     chan struct{}
	persist   chan struct{}
	flushes   chan chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(s *ProfileStore)

func WithLogger(log *logrus.Entry) Option {
	return func(s *ProfileStore) {
		s.log = log
	}
}

// WithWriteTimeout bounds a single storage write.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(s *ProfileStore) {
		s.writeTimeout = timeout
	}
}

func NewProfileStore(storage vitalkeep.Storage, opts ...Option) *ProfileStore {
	if storage == nil {
		panic("state: nil storage")
	}
	s := &ProfileStore{
		storage:      storage,
		log:          logrus.WithField("component", "profile_store"),
		writeTimeout: defaultWriteTimeout,
		phase:        PhaseUninitialized,
		ready:        make(chan struct{}),
		persist:      make(chan struct{}, 1),
		flushes:      make(chan chan struct{}),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	s.notifyCond = sync.NewCond(&s.notifyMutex)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ProfileStore) mustBeProvided() {
	if s == nil || s.ready == nil {
		panic(vitalkeep.ErrStoreNotProvided)
	}
}

// Load reads the stored profile, falling back to the default profile when
// nothing readable is stored, and marks the store ready. Only the first
// call does anything. A stored value that fails to deserialize is left in
// storage untouched until the next mutation overwrites it.
func (s *ProfileStore) Load(ctx context.Context) {
	s.mustBeProvided()
	s.loadOnce.Do(func() {
		s.mutex.Lock()
		s.phase = PhaseLoading
		s.mutex.Unlock()

		profile := s.loadProfile(ctx)

		s.mutex.Lock()
		s.current = &profile
		s.phase = PhaseReady
		s.lastSeq++
		seq, subs := s.lastSeq, s.subs
		go s.writeLoop()
		s.mutex.Unlock()
		close(s.ready)

		s.notifyInOrder(seq, subs, Change{Op: OpLoad, Profile: profile})
	})
}

func (s *ProfileStore) loadProfile(ctx context.Context) vitalkeep.UserProfile {
	raw, err := s.storage.Get(ctx, ProfileKey)
	if err != nil {
		if errors.Is(err, vitalkeep.ErrKeyNotFound) {
			s.log.Infoln("No stored profile, using default.")
		} else {
			s.log.WithError(err).Warningln("Could not read stored profile, using default.")
		}
		return vitalkeep.DefaultProfile()
	}

	profile, err := vitalkeep.DecodeProfile(raw)
	if err != nil {
		s.log.WithError(err).Warningln("Stored profile is corrupted, using default.")
		return vitalkeep.DefaultProfile()
	}
	s.log.Debugln("Profile loaded from storage.")
	return profile
}

func (s *ProfileStore) Phase() Phase {
	s.mustBeProvided()
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.phase
}

func (s *ProfileStore) Ready() bool {
	return s.Phase() == PhaseReady
}

// WaitReady blocks until Load completes or ctx is done.
func (s *ProfileStore) WaitReady(ctx context.Context) error {
	s.mustBeProvided()
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Profile returns the current profile. Ok is false before the store is ready.
// Returned slices are shared with the store and must not be modified.
func (s *ProfileStore) Profile() (profile vitalkeep.UserProfile, ok bool) {
	s.mustBeProvided()
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if s.current == nil {
		return vitalkeep.UserProfile{}, false
	}
	return *s.current, true
}

// Subscribe registers fn to be called after every profile replacement.
// Subscribers are called in registration order on the goroutine that made
// the change, and changes arrive in the order they were applied even when
// mutations race. Fn must not mutate the store itself: it would wait for its
// own delivery to finish.
func (s *ProfileStore) Subscribe(fn Subscriber) SubscriptionId {
	s.mustBeProvided()
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastSubId++
	s.subs = append(slices.Clip(s.subs), subscription{id: s.lastSubId, fn: fn})
	return s.lastSubId
}

func (s *ProfileStore) Unsubscribe(id SubscriptionId) {
	s.mustBeProvided()
	s.mutex.Lock()
	defer s.mutex.Unlock()
	subs := make([]subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.id != id {
			subs = append(subs, sub)
		}
	}
	s.subs = subs
}

// notifyInOrder delivers change once every change with a lower sequence
// number has been delivered.
func (s *ProfileStore) notifyInOrder(seq uint64, subs []subscription, change Change) {
	s.notifyMutex.Lock()
	for s.notifiedSeq != seq-1 {
		s.notifyCond.Wait()
	}
	s.notifyMutex.Unlock()

	defer func() {
		s.notifyMutex.Lock()
		s.notifiedSeq = seq
		s.notifyMutex.Unlock()
		s.notifyCond.Broadcast()
	}()
	for _, sub := range subs {
		sub.fn(change)
	}
}

// mutate replaces the current profile with the result of fn. When fn
// reports no change nothing is replaced, notified or written.
func (s *ProfileStore) mutate(op Op, data map[string]interface{},
	fn func(p vitalkeep.UserProfile) (vitalkeep.UserProfile, bool)) error {
	s.mustBeProvided()

	s.mutex.Lock()
	if s.current == nil {
		s.mutex.Unlock()
		return vitalkeep.ErrProfileNotReady
	}
	next, changed := fn(*s.current)
	if !changed {
		s.mutex.Unlock()
		return nil
	}
	s.current = &next
	s.lastSeq++
	seq, subs := s.lastSeq, s.subs
	s.mutex.Unlock()

	s.schedulePersist()
	s.notifyInOrder(seq, subs, Change{Op: op, Profile: next, Data: data})
	return nil
}

func (s *ProfileStore) schedulePersist() {
	select {
	case s.persist <- struct{}{}:
	default:
		// a write is already pending and will pick up the latest profile
	}
}

func (s *ProfileStore) writeLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.persist:
			s.write()
		case ack := <-s.flushes:
			s.drainPending()
			close(ack)
		case <-s.quit:
			s.drainPending()
			return
		}
	}
}

func (s *ProfileStore) drainPending() {
	select {
	case <-s.persist:
		s.write()
	default:
	}
}

func (s *ProfileStore) write() {
	s.mutex.RLock()
	profile := *s.current
	s.mutex.RUnlock()

	raw, err := vitalkeep.EncodeProfile(profile)
	if err != nil {
		s.log.WithError(err).Errorln("Could not serialize profile.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if err := s.storage.Set(ctx, ProfileKey, raw); err != nil {
		// Not retried, the next mutation writes the whole profile again.
		s.log.WithError(err).Warningln("Could not persist profile.")
		return
	}
	s.log.Debugln("Profile persisted.")
}

// Flush waits until every change made before the call is written to storage.
func (s *ProfileStore) Flush(ctx context.Context) error {
	s.mustBeProvided()
	if !s.Ready() {
		return nil
	}
	ack := make(chan struct{})
	select {
	case s.flushes <- ack:
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes any pending change and stops the writer. Changes made after
// Close stay in memory only.
func (s *ProfileStore) Close() {
	s.mustBeProvided()
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	if s.Ready() {
		<-s.done
	}
}
