package live

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesbahtanvir/docuchan/backend/internal/auth"
	"github.com/mesbahtanvir/docuchan/backend/internal/store/memstore"
)

func newTestHub(t *testing.T, cfg Config) (*Hub, *auth.Core, string) {
	t.Helper()
	s := memstore.New()
	authCore := auth.NewCore(s, "test-secret", 15*time.Minute, 7*24*time.Hour, 10, 5, 15*time.Minute, time.Second)
	hub := NewHub(authCore, s, cfg, zap.NewNop())

	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return hub, authCore, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func authenticate(t *testing.T, conn *websocket.Conn, token string) {
	t.Helper()
	var connected Message
	require.NoError(t, conn.ReadJSON(&connected))
	require.Equal(t, TypeConnected, connected.Type)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeAuth, RequestID: "r1", Token: token}))
	var resp Message
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, TypeAuth, resp.Type)
	require.Equal(t, "success", resp.Status)
}

func mustSignUp(t *testing.T, authCore *auth.Core, email string) string {
	t.Helper()
	ctx := context.Background()
	_, err := authCore.CreateUser(ctx, email, "Str0ng!Pass", "Name", "")
	require.NoError(t, err)
	pair, err := authCore.SignIn(ctx, email, "Str0ng!Pass")
	require.NoError(t, err)
	return pair.AccessToken
}

func TestHub_ConnectAndAuth(t *testing.T) {
	hub, authCore, url := newTestHub(t, Config{})
	token := mustSignUp(t, authCore, "user@example.com")

	conn := dial(t, url)

	var connected Message
	require.NoError(t, conn.ReadJSON(&connected))
	require.Equal(t, TypeConnected, connected.Type)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeAuth, RequestID: "r1", Token: token}))
	var resp Message
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, "success", resp.Status)
	require.NotEmpty(t, resp.UserID)

	require.Eventually(t, func() bool { return hub.ChannelCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestHub_WatchDocument_ReceivesChanges(t *testing.T) {
	hub, authCore, url := newTestHub(t, Config{})
	token := mustSignUp(t, authCore, "watcher@example.com")

	id, err := hub.store.Add(context.Background(), "docs", map[string]interface{}{"title": "first"})
	require.NoError(t, err)

	conn := dial(t, url)
	authenticate(t, conn, token)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeWatchDocument, RequestID: "w1", Collection: "docs", DocumentID: id}))

	var snapshot Message
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Equal(t, TypeWatchDocument, snapshot.Type)
	require.NotNil(t, snapshot.Change)
	require.Equal(t, "first", snapshot.Change.Data["title"])
	subID := snapshot.SubscriptionID
	require.NotEmpty(t, subID)

	_, err = hub.store.Update(context.Background(), "docs", id, map[string]interface{}{"title": "second"})
	require.NoError(t, err)

	var update Message
	require.NoError(t, conn.ReadJSON(&update))
	require.Equal(t, TypeWatchDocument, update.Type)
	require.Equal(t, subID, update.SubscriptionID)
	require.Equal(t, ChangeModified, update.Change.Type)
	require.Equal(t, "second", update.Change.Data["title"])

	// Unwatch is idempotent and silent on success — no response to read.
	require.NoError(t, conn.WriteJSON(Message{Type: TypeUnwatch, RequestID: "u1", SubscriptionID: subID}))

	// Give the hub a moment to process the unwatch before proving the
	// subscription is really gone: a further change must not arrive.
	time.Sleep(50 * time.Millisecond)
	_, err = hub.store.Update(context.Background(), "docs", id, map[string]interface{}{"title": "third"})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var stray Message
	err = conn.ReadJSON(&stray)
	require.Error(t, err, "no message should arrive for an unwatched subscription")
}

func TestHub_WatchCollection_FiltersAndStreams(t *testing.T) {
	hub, authCore, url := newTestHub(t, Config{})
	token := mustSignUp(t, authCore, "collection-watcher@example.com")

	_, err := hub.store.Add(context.Background(), "tasks", map[string]interface{}{"status": "open", "priority": 1.0})
	require.NoError(t, err)

	conn := dial(t, url)
	authenticate(t, conn, token)

	limit := 10
	require.NoError(t, conn.WriteJSON(Message{
		Type:       TypeWatchCollection,
		RequestID:  "wc1",
		Collection: "tasks",
		Query: &QuerySpec{
			Where: []WhereSpec{{Field: "status", Operator: "==", Value: "open"}},
			Limit: &limit,
		},
	}))

	var snapshot Message
	require.NoError(t, conn.ReadJSON(&snapshot))
	require.Equal(t, TypeWatchCollection, snapshot.Type)
	require.Len(t, snapshot.Change.Changes, 1)
	subID := snapshot.SubscriptionID
	require.NotEmpty(t, subID)

	_, err = hub.store.Add(context.Background(), "tasks", map[string]interface{}{"status": "open", "priority": 2.0})
	require.NoError(t, err)

	var added Message
	require.NoError(t, conn.ReadJSON(&added))
	require.Equal(t, TypeWatchCollection, added.Type)
	require.Equal(t, subID, added.SubscriptionID)
	require.Equal(t, ChangeAdded, added.Change.Type)
}

func TestHub_Presence_FansOutToOtherChannelsOnly(t *testing.T) {
	hub, authCore, url := newTestHub(t, Config{})
	tokenA := mustSignUp(t, authCore, "a@example.com")
	tokenB := mustSignUp(t, authCore, "b@example.com")

	connA := dial(t, url)
	authenticate(t, connA, tokenA)
	connB := dial(t, url)
	authenticate(t, connB, tokenB)

	require.Eventually(t, func() bool { return hub.ChannelCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, connA.WriteJSON(Message{Type: TypePresence, Action: "online", Metadata: map[string]interface{}{"page": "home"}}))

	var presence Message
	require.NoError(t, connB.ReadJSON(&presence))
	require.Equal(t, TypePresence, presence.Type)
	require.Equal(t, "online", presence.Action)
	require.Equal(t, "home", presence.Metadata["page"])

	_ = connA.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var shouldNotArrive Message
	err := connA.ReadJSON(&shouldNotArrive)
	require.Error(t, err, "the sender must not receive its own presence broadcast")
}

func TestHub_MaxClientsReached(t *testing.T) {
	_, _, url := newTestHub(t, Config{MaxChannels: 1})

	first := dial(t, url)
	var connected Message
	require.NoError(t, first.ReadJSON(&connected))

	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer second.Close()

	var rejected Message
	require.NoError(t, second.ReadJSON(&rejected))
	require.Equal(t, TypeError, rejected.Type)
	require.Equal(t, "MAX_CLIENTS_REACHED", rejected.Code)
}

func TestHub_UnauthenticatedWatchRejected(t *testing.T) {
	_, _, url := newTestHub(t, Config{})
	conn := dial(t, url)

	var connected Message
	require.NoError(t, conn.ReadJSON(&connected))

	require.NoError(t, conn.WriteJSON(Message{Type: TypeWatchDocument, RequestID: "r1", Collection: "docs", DocumentID: "x"}))
	var resp Message
	require.NoError(t, conn.ReadJSON(&resp))
	require.Equal(t, TypeError, resp.Type)
	require.Equal(t, "UNAUTHORIZED", resp.Code)
}
