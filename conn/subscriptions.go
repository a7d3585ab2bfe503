package conn

import "mredis/resp"

// MessageReceiver is invoked for every message delivered on a channel
// subscription, or on a pattern subscription where name is the pattern
// that matched and channel is the channel the publish actually targeted.
type MessageReceiver func(name, channel, payload []byte)

// ConfirmReceiver is invoked when the server confirms a subscribe or
// unsubscribe for a single channel or pattern; count is the subscriber's
// total subscription count across both kinds, as reported by the server.
type ConfirmReceiver func(name []byte, count int64)

type entryKind int

const (
	kindChannel entryKind = iota
	kindPattern
)

// subEntry is a single subscription: one channel or pattern name, its
// message callback, and its optional confirmation callbacks.
type subEntry struct {
	kind          entryKind
	name          []byte
	onMessage     MessageReceiver
	onSubscribe   ConfirmReceiver
	onUnsubscribe ConfirmReceiver
	call          *subscribeCall
}

// subscribeCall tracks a single subscribe/psubscribe/unsubscribe/
// punsubscribe invocation that may name several channels or patterns at
// once; its Future resolves only once every name it requested has been
// confirmed by a matching push frame.
type subscribeCall struct {
	remaining int
	fut       *Future
}

func (c *subscribeCall) confirmOne() {
	c.remaining--
	if c.remaining <= 0 {
		c.fut.resolve(resp.Value{}, nil)
	}
}

// tracker is the per-connection dual mapping of confirmed subscriptions,
// plus a staging area for subscriptions that have been requested but not
// yet confirmed by the server. Entries are promoted from pending to
// confirmed only when the matching push frame arrives — the maps always
// reflect server-confirmed state, never request-time intent.
type tracker struct {
	channels map[string]*subEntry
	patterns map[string]*subEntry

	pendingChannels map[string]*subEntry
	pendingPatterns map[string]*subEntry
}

func newTracker() *tracker {
	return &tracker{
		channels:        make(map[string]*subEntry),
		patterns:        make(map[string]*subEntry),
		pendingChannels: make(map[string]*subEntry),
		pendingPatterns: make(map[string]*subEntry),
	}
}

func (t *tracker) pendingMap(k entryKind) map[string]*subEntry {
	if k == kindChannel {
		return t.pendingChannels
	}
	return t.pendingPatterns
}

func (t *tracker) confirmedMap(k entryKind) map[string]*subEntry {
	if k == kindChannel {
		return t.channels
	}
	return t.patterns
}

func (t *tracker) addPending(e *subEntry) {
	t.pendingMap(e.kind)[string(e.name)] = e
}

// confirmSubscribe promotes a pending entry to confirmed state on a
// subscribe/psubscribe push. It returns the entry and true if one was
// pending under that name.
func (t *tracker) confirmSubscribe(k entryKind, name []byte) (*subEntry, bool) {
	pm := t.pendingMap(k)
	key := string(name)
	e, ok := pm[key]
	if !ok {
		return nil, false
	}
	delete(pm, key)
	t.confirmedMap(k)[key] = e
	return e, true
}

// confirmUnsubscribe removes a confirmed (or still-pending) entry on an
// unsubscribe/punsubscribe push. It returns the entry and true if one
// was found.
func (t *tracker) confirmUnsubscribe(k entryKind, name []byte) (*subEntry, bool) {
	key := string(name)
	cm := t.confirmedMap(k)
	if e, ok := cm[key]; ok {
		delete(cm, key)
		return e, true
	}
	pm := t.pendingMap(k)
	if e, ok := pm[key]; ok {
		delete(pm, key)
		return e, true
	}
	return nil, false
}

// attachCall sets call on the confirmed or pending entry named name, so
// its confirmation drives that call's Future. It returns false if no
// entry exists under that name yet.
func (t *tracker) attachCall(k entryKind, name []byte, call *subscribeCall) bool {
	key := string(name)
	if e, ok := t.confirmedMap(k)[key]; ok {
		e.call = call
		return true
	}
	if e, ok := t.pendingMap(k)[key]; ok {
		e.call = call
		return true
	}
	return false
}

func (t *tracker) isSubscribed() bool {
	return len(t.channels) > 0 || len(t.patterns) > 0
}

func (t *tracker) confirmedNames(k entryKind) [][]byte {
	cm := t.confirmedMap(k)
	names := make([][]byte, 0, len(cm))
	for _, e := range cm {
		names = append(names, e.name)
	}
	return names
}
