package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"visit-dashboard-service/internal/documents/core/domain"
	"visit-dashboard-service/internal/documents/core/ports"

	"go.uber.org/zap"
)

var (
	ErrWatchClosed = errors.New("watch hub is closed")
	ErrFeedClosed  = errors.New("change feed closed unexpectedly")
)

type DocumentLister interface {
	List(ctx context.Context, in ListInput) ([]domain.Document, error)
}

// WatchUseCase fans full collection snapshots out to subscribers whenever the
// change feed reports a write to that collection.
//
// Each subscriber has a one-slot buffer. Delivery replaces an unread snapshot
// with the newer one, so a slow reader skips intermediate states but always
// ends up with the latest.
type WatchUseCase struct {
	lister DocumentLister
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	locks  map[string]*sync.Mutex // per collection: load+deliver+close are serialized
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

type subscriber struct {
	ch chan domain.Snapshot
}

func NewWatchUseCase(lister DocumentLister, logger *zap.Logger) *WatchUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WatchUseCase{
		lister: lister,
		logger: logger,
		subs:   make(map[string]map[*subscriber]struct{}),
		locks:  make(map[string]*sync.Mutex),
		done:   make(chan struct{}),
	}
}

// Watch subscribes to a collection. The first value on the channel is the
// current snapshot. The channel is closed once ctx is done or the hub closes.
func (w *WatchUseCase) Watch(ctx context.Context, collection string) (<-chan domain.Snapshot, error) {
	if _, err := lookup(collection); err != nil {
		return nil, err
	}
	// outlives the caller's buffer
	collection = strings.Clone(collection)

	sub := &subscriber{ch: make(chan domain.Snapshot, 1)}
	lock := w.collectionLock(collection)

	lock.Lock()
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		lock.Unlock()
		return nil, ErrWatchClosed
	}
	set, ok := w.subs[collection]
	if !ok {
		set = make(map[*subscriber]struct{})
		w.subs[collection] = set
	}
	set[sub] = struct{}{}
	w.wg.Add(1)
	w.mu.Unlock()

	sub.offer(w.load(ctx, collection))
	lock.Unlock()

	w.logger.Debug("watch subscribed", zap.String("collection", collection))

	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
		case <-w.done:
		}
		w.unsubscribe(collection, sub)
	}()

	return sub.ch, nil
}

// Run consumes the change feed until ctx is done, then closes every
// subscription.
func (w *WatchUseCase) Run(ctx context.Context, feed ports.ChangeFeedPort) error {
	defer w.Close()

	changes, err := feed.Changes(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrFeedClosed
			}
			for _, name := range w.coalesce(c, changes) {
				w.Publish(ctx, name)
			}
		}
	}
}

// coalesce drains changes that are already queued so that a burst of writes
// (a reorder, a bulk add) costs one reload per collection.
func (w *WatchUseCase) coalesce(first domain.Change, changes <-chan domain.Change) []string {
	resync := first.IsResync()
	pending := map[string]struct{}{}
	if !resync {
		pending[first.Collection] = struct{}{}
	}

drain:
	for {
		select {
		case c, ok := <-changes:
			if !ok {
				break drain
			}
			if c.IsResync() {
				resync = true
				continue
			}
			pending[c.Collection] = struct{}{}
		default:
			break drain
		}
	}

	if resync {
		return w.watched()
	}

	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	return names
}

// Publish reloads a collection and delivers the snapshot to its subscribers.
// Collections nobody watches are skipped.
func (w *WatchUseCase) Publish(ctx context.Context, collection string) {
	lock := w.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	w.mu.Lock()
	n := len(w.subs[collection])
	w.mu.Unlock()
	if n == 0 {
		return
	}

	snap := w.load(ctx, collection)

	w.mu.Lock()
	for sub := range w.subs[collection] {
		sub.offer(snap)
	}
	w.mu.Unlock()
}

// Subscribers returns the number of live subscriptions on a collection.
func (w *WatchUseCase) Subscribers(collection string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs[collection])
}

// Close ends every subscription and waits for their goroutines.
func (w *WatchUseCase) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *WatchUseCase) load(ctx context.Context, collection string) domain.Snapshot {
	snap := domain.Snapshot{Collection: collection}
	docs, err := w.lister.List(ctx, ListInput{Collection: collection})
	if err != nil {
		w.logger.Error("snapshot load failed",
			zap.String("collection", collection),
			zap.Error(err))
		snap.Err = err.Error()
		return snap
	}
	snap.Documents = docs
	return snap
}

func (w *WatchUseCase) unsubscribe(collection string, sub *subscriber) {
	lock := w.collectionLock(collection)
	lock.Lock()
	defer lock.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	set := w.subs[collection]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(w.subs, collection)
	}
	close(sub.ch)
}

func (w *WatchUseCase) watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.subs))
	for name := range w.subs {
		names = append(names, name)
	}
	return names
}

func (w *WatchUseCase) collectionLock(collection string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		w.locks[collection] = l
	}
	return l
}

// offer must only be called while holding the collection lock; that makes it
// the only writer on ch.
func (s *subscriber) offer(snap domain.Snapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}
