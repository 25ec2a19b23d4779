package zoetrope

// Subscription is a scoped handle for a registered callback. Every "on" call
// in the framework returns one; callers release listeners through Cancel
// rather than pairing manual add/remove calls. Scenes should collect the
// handles they take out and cancel them in Cleanup.
type Subscription struct {
	id   uint32
	list *subscriberList
}

// Cancel unregisters the callback. Safe to call more than once.
func (s Subscription) Cancel() {
	if s.list == nil {
		return
	}
	for i := range s.list.subs {
		if s.list.subs[i].id == s.id {
			s.list.subs = append(s.list.subs[:i], s.list.subs[i+1:]...)
			return
		}
	}
}

type subscriber struct {
	id uint32
	fn func(string)
}

// subscriberList is an ordered callback registry. Emission snapshots the
// list so a callback that cancels (or adds) subscriptions mid-emit cannot
// skip or double-deliver.
type subscriberList struct {
	subs   []subscriber
	nextID uint32
	buf    []subscriber
}

func (l *subscriberList) add(fn func(string)) Subscription {
	l.nextID++
	l.subs = append(l.subs, subscriber{id: l.nextID, fn: fn})
	return Subscription{id: l.nextID, list: l}
}

func (l *subscriberList) emit(arg string) {
	l.buf = append(l.buf[:0], l.subs...)
	for _, s := range l.buf {
		s.fn(arg)
	}
}
