package live

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/query"
	"github.com/mesbahtanvir/docuchan/backend/internal/store"
)

// channelState is the per-connection lifecycle (spec.md §4.4,
// "Channel lifecycle"): OPEN until auth succeeds, READY once
// authenticated and eligible for subscriptions and presence, CLOSED
// once torn down. No state is ever re-entered.
type channelState int

const (
	stateOpen channelState = iota
	stateReady
	stateClosed
)

// subscription owns exactly one store.Feed and the cancel func for its
// pump goroutine.
type subscription struct {
	feed   store.Feed
	cancel context.CancelFunc
}

// Channel is a single authenticated (or pre-auth) WebSocket connection.
// One read-pump and one write-pump goroutine run for its lifetime; all
// other access goes through its mutex.
type Channel struct {
	id   string
	conn *websocket.Conn
	hub  *Hub

	mu            sync.Mutex
	state         channelState
	userID        string
	subscriptions map[string]*subscription

	out chan Message
}

func newChannel(conn *websocket.Conn, hub *Hub) *Channel {
	return &Channel{
		id:            uuid.New().String(),
		conn:          conn,
		hub:           hub,
		state:         stateOpen,
		subscriptions: make(map[string]*subscription),
		out:           make(chan Message, hub.outboundQueueSize),
	}
}

func (c *Channel) isReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateReady
}

// send enqueues msg on the outbound buffer. A full buffer means the
// client isn't draining fast enough; the channel is terminated rather
// than left to grow unbounded (spec.md §4.4, "Backpressure").
func (c *Channel) send(msg Message) {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	select {
	case c.out <- msg:
	default:
		c.hub.logger.Warn("outbound queue full, closing channel", zap.String("channel", c.id))
		c.close()
	}
}

// run drives the read-pump on the calling goroutine (the one ServeHTTP
// invoked after upgrade), after starting the write-pump in the
// background. It returns once the connection is torn down.
func (c *Channel) run() {
	go c.writePump()
	c.readPump()
}

func (c *Channel) readPump() {
	defer c.close()

	c.conn.SetReadLimit(1 << 20)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.heartbeatInterval + c.hub.pingTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.heartbeatInterval + c.hub.pingTimeout))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		c.dispatch(msg)
	}
}

func (c *Channel) writePump() {
	ticker := time.NewTicker(c.hub.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.out:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.hub.pingTimeout)); err != nil {
				return
			}
		}

		c.mu.Lock()
		closed := c.state == stateClosed
		c.mu.Unlock()
		if closed {
			return
		}
	}
}

// dispatch routes an inbound Message by its Type (spec.md §4.4,
// "Message dispatch") — an explicit switch, not reflection.
func (c *Channel) dispatch(msg Message) {
	switch msg.Type {
	case TypeAuth:
		c.handleAuth(msg)
	case TypeWatchDocument:
		c.handleWatchDocument(msg)
	case TypeWatchCollection:
		c.handleWatchCollection(msg)
	case TypeUnwatch:
		c.handleUnwatch(msg)
	case TypePresence:
		c.handlePresence(msg)
	default:
		c.send(Message{Type: TypeError, RequestID: msg.RequestID, Code: string(apperr.InvalidMessage), Message: "unrecognized message type: " + msg.Type})
	}
}

func (c *Channel) handleAuth(msg Message) {
	claims, err := c.hub.authCore.VerifyAccessToken(context.Background(), msg.Token)
	if err != nil {
		c.send(Message{Type: TypeAuth, RequestID: msg.RequestID, Status: "error", Code: string(apperr.CodeOf(err))})
		c.close()
		return
	}

	c.mu.Lock()
	c.state = stateReady
	c.userID = claims.Subject
	c.mu.Unlock()

	c.send(Message{Type: TypeAuth, RequestID: msg.RequestID, Status: "success", UserID: claims.Subject})
}

// requireReady rejects a request before authentication completes
// (spec.md §4.4, "Admission" — subscriptions and presence require a
// READY channel).
func (c *Channel) requireReady(msg Message) bool {
	if !c.isReady() {
		c.send(Message{Type: TypeError, RequestID: msg.RequestID, Code: string(apperr.Unauthorized), Message: "channel is not authenticated"})
		return false
	}
	return true
}

// handleWatchDocument opens an unfiltered collection-level feed and
// filters it client-side by DocumentID, since the underlying documents
// carry no literal "id" field the store could filter on natively
// (spec.md §9, "Identity is synthesized, not stored").
func (c *Channel) handleWatchDocument(msg Message) {
	if !c.requireReady(msg) {
		return
	}
	if msg.Collection == "" || msg.DocumentID == "" {
		c.send(Message{Type: TypeError, RequestID: msg.RequestID, Code: string(apperr.InvalidMessage), Message: "watch_document requires collection and documentId"})
		return
	}

	ctx := context.Background()
	doc, err := c.hub.store.Get(ctx, msg.Collection, msg.DocumentID)
	if err != nil {
		c.send(Message{Type: TypeError, RequestID: msg.RequestID, Code: string(apperr.Internal), Message: err.Error()})
		return
	}

	feed, err := c.hub.store.Watch(ctx, msg.Collection, nil)
	if err != nil {
		c.send(Message{Type: TypeError, RequestID: msg.RequestID, Code: string(apperr.Internal), Message: err.Error()})
		return
	}

	subID := uuid.New().String()
	pumpCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.subscriptions[subID] = &subscription{feed: feed, cancel: cancel}
	c.mu.Unlock()

	if doc != nil {
		c.send(Message{
			Type:           TypeWatchDocument,
			RequestID:      msg.RequestID,
			SubscriptionID: subID,
			Change:         &Change{Type: ChangeModified, DocumentID: msg.DocumentID, Data: doc, Timestamp: time.Now()},
		})
	} else {
		c.send(Message{Type: TypeWatchDocument, RequestID: msg.RequestID, SubscriptionID: subID})
	}

	go c.pumpDocumentFeed(pumpCtx, subID, msg.Collection, msg.DocumentID, feed)
}

func (c *Channel) pumpDocumentFeed(ctx context.Context, subID, collection, documentID string, feed store.Feed) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-feed.Events():
			if !ok {
				return
			}
			if ev.DocumentID != documentID {
				continue
			}
			c.emitDocumentChange(ctx, subID, collection, documentID, ev)
		case err, ok := <-feed.Errors():
			if !ok {
				return
			}
			c.send(Message{Type: TypeError, SubscriptionID: subID, Code: string(apperr.Internal), Message: err.Error()})
			return
		}
	}
}

// emitDocumentChange always re-fetches the current document rather
// than trusting the event payload, except on delete where there is
// nothing left to fetch (spec.md §9, "Change-feed variability").
func (c *Channel) emitDocumentChange(ctx context.Context, subID, collection, documentID string, ev store.ChangeEvent) {
	changeType := changeTypeOf(string(ev.Op))
	change := &Change{Type: changeType, DocumentID: documentID, Timestamp: time.Now()}

	if changeType != ChangeRemoved {
		doc, err := c.hub.store.Get(ctx, collection, documentID)
		if err != nil {
			c.send(Message{Type: TypeError, SubscriptionID: subID, Code: string(apperr.Internal), Message: err.Error()})
			return
		}
		change.Data = doc
	}

	c.send(Message{Type: TypeWatchDocument, SubscriptionID: subID, Change: change})
}

// handleWatchCollection builds a Query from the wire QuerySpec, reuses
// its single Translation for both the initial snapshot and the watch
// pipeline, and streams added/modified/removed batches.
func (c *Channel) handleWatchCollection(msg Message) {
	if !c.requireReady(msg) {
		return
	}
	if msg.Collection == "" {
		c.send(Message{Type: TypeError, RequestID: msg.RequestID, Code: string(apperr.InvalidMessage), Message: "watch_collection requires collection"})
		return
	}

	q, err := buildQuery(msg.Query)
	if err != nil {
		c.send(Message{Type: TypeError, RequestID: msg.RequestID, Code: string(apperr.CodeOf(err)), Message: err.Error()})
		return
	}
	tr := query.Translate(q)

	ctx := context.Background()
	docs, err := c.hub.store.Query(ctx, msg.Collection, tr.Filter, tr.Sort, tr.Skip, tr.Limit)
	if err != nil {
		c.send(Message{Type: TypeError, RequestID: msg.RequestID, Code: string(apperr.Internal), Message: err.Error()})
		return
	}

	feed, err := c.hub.store.Watch(ctx, msg.Collection, tr.Filter)
	if err != nil {
		c.send(Message{Type: TypeError, RequestID: msg.RequestID, Code: string(apperr.Internal), Message: err.Error()})
		return
	}

	subID := uuid.New().String()
	pumpCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.subscriptions[subID] = &subscription{feed: feed, cancel: cancel}
	c.mu.Unlock()

	changes := make([]ChangeItem, 0, len(docs))
	for _, d := range docs {
		id, _ := d["id"].(string)
		changes = append(changes, ChangeItem{Type: ChangeAdded, DocumentID: id, Data: d, Timestamp: time.Now()})
	}
	c.send(Message{
		Type:           TypeWatchCollection,
		RequestID:      msg.RequestID,
		SubscriptionID: subID,
		Change:         &Change{Changes: changes},
	})

	go c.pumpCollectionFeed(pumpCtx, subID, msg.Collection, feed)
}

func (c *Channel) pumpCollectionFeed(ctx context.Context, subID, collection string, feed store.Feed) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-feed.Events():
			if !ok {
				return
			}
			changeType := changeTypeOf(string(ev.Op))
			item := ChangeItem{Type: changeType, DocumentID: ev.DocumentID, Timestamp: time.Now()}
			if changeType != ChangeRemoved {
				doc, err := c.hub.store.Get(ctx, collection, ev.DocumentID)
				if err != nil {
					c.send(Message{Type: TypeError, SubscriptionID: subID, Code: string(apperr.Internal), Message: err.Error()})
					continue
				}
				item.Data = doc
			}
			c.send(Message{Type: TypeWatchCollection, SubscriptionID: subID, Change: &Change{Type: changeType, Changes: []ChangeItem{item}, Timestamp: item.Timestamp}})
		case err, ok := <-feed.Errors():
			if !ok {
				return
			}
			c.send(Message{Type: TypeError, SubscriptionID: subID, Code: string(apperr.Internal), Message: err.Error()})
			return
		}
	}
}

func (c *Channel) handleUnwatch(msg Message) {
	if !c.requireReady(msg) {
		return
	}
	// No response on success: unwatch is idempotent and unknown ids are
	// ignored, so silence is the only signal the client needs.
	c.releaseSubscription(msg.SubscriptionID)
}

func (c *Channel) releaseSubscription(subID string) {
	c.mu.Lock()
	sub, ok := c.subscriptions[subID]
	if ok {
		delete(c.subscriptions, subID)
	}
	c.mu.Unlock()

	if ok {
		sub.cancel()
		_ = sub.feed.Close()
	}
}

// handlePresence fans msg.Metadata out to every other READY channel
// (spec.md §4.4, "Presence").
func (c *Channel) handlePresence(msg Message) {
	if !c.requireReady(msg) {
		return
	}
	now := time.Now()
	c.hub.broadcastPresence(c, Message{
		Type:     TypePresence,
		UserID:   c.userID,
		Action:   msg.Action,
		Metadata: msg.Metadata,
		LastSeen: &now,
	})
}

// close tears the channel down exactly once: cancels every live
// subscription, announces an offline presence to the rest of the hub,
// deregisters from the hub's table, and closes the send buffer so the
// write-pump exits.
func (c *Channel) close() {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return
	}
	c.state = stateClosed
	subs := c.subscriptions
	c.subscriptions = make(map[string]*subscription)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		_ = sub.feed.Close()
	}

	c.hub.broadcastPresence(c, Message{Type: TypePresence, UserID: c.userID, Action: "offline"})
	c.hub.remove(c)
	close(c.out)
	_ = c.conn.Close()
}

// buildQuery lowers a wire QuerySpec into the Query Model, reusing its
// Where/OrderBySet/WithLimit validation so a malformed subscription
// request fails the same way a malformed REST query would.
func buildQuery(spec *QuerySpec) (query.Query, error) {
	q := query.New()
	if spec == nil {
		return q, nil
	}

	var err error
	for _, w := range spec.Where {
		q, err = q.Where(w.Field, query.Operator(w.Operator), w.Value)
		if err != nil {
			return query.Query{}, err
		}
	}
	for _, o := range spec.OrderBy {
		q, err = q.OrderBySet(o.Field, query.Direction(o.Direction))
		if err != nil {
			return query.Query{}, err
		}
	}
	if spec.Limit != nil {
		q, err = q.WithLimit(*spec.Limit)
		if err != nil {
			return query.Query{}, err
		}
	}
	return q, nil
}
