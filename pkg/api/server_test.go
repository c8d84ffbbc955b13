package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"

	"github.com/uhyunpark/otcdesk/pkg/chain"
	"github.com/uhyunpark/otcdesk/pkg/chat"
	"github.com/uhyunpark/otcdesk/pkg/crypto"
	"github.com/uhyunpark/otcdesk/pkg/market"
	"github.com/uhyunpark/otcdesk/pkg/order"
	"github.com/uhyunpark/otcdesk/pkg/settings"
	"github.com/uhyunpark/otcdesk/pkg/storage"
	"github.com/uhyunpark/otcdesk/pkg/wallet"
)

type stubHandle struct {
	hash   common.Hash
	events chan order.Event
}

func (h *stubHandle) TxHash() common.Hash        { return h.hash }
func (h *stubHandle) Events() <-chan order.Event { return h.events }

func newStubHandle(hash string) *stubHandle {
	return &stubHandle{hash: common.HexToHash(hash), events: make(chan order.Event, 2)}
}

type stubGateway struct {
	handle *stubHandle
	calls  chan order.Request
}

func (g *stubGateway) SubmitOrder(_ context.Context, req order.Request) (order.Handle, error) {
	g.calls <- req
	return g.handle, nil
}

type stubChain struct {
	cancelled []*big.Int
}

func (c *stubChain) CancelOrder(_ context.Context, id *big.Int) (order.Handle, error) {
	c.cancelled = append(c.cancelled, id)
	h := newStubHandle("0xcc")
	h.events <- order.Event{Stage: order.StageConfirming}
	h.events <- order.Event{Stage: order.StageConfirmed}
	close(h.events)
	return h, nil
}

func (c *stubChain) GetOrder(_ context.Context, id *big.Int) (chain.OnchainOrder, error) {
	return chain.OnchainOrder{ID: id, Symbol: "BTC", Side: order.Buy, Active: true}, nil
}

type testDesk struct {
	server   *Server
	ts       *httptest.Server
	wallet   *wallet.KeyWallet
	gateway  *stubGateway
	workflow *order.Workflow
	chain    *stubChain
}

func newTestDesk(t *testing.T, withKey bool) *testDesk {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	var signer *crypto.Signer
	if withKey {
		var err error
		if signer, err = crypto.GenerateKey(); err != nil {
			t.Fatalf("generate key: %v", err)
		}
	}
	w := wallet.New(signer, nil)

	journal, err := storage.OpenJournal(filepath.Join(t.TempDir(), "journal"), nil, nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { journal.Close() })

	hub := NewHub(nil)
	gw := &stubGateway{handle: newStubHandle("0xaa"), calls: make(chan order.Request, 4)}
	wf := order.NewWorkflow(order.Config{
		Symbol: "BTC",
		Wire:   order.WireFormat{AmountDecimals: 4, PriceDecimals: 2},
	}, w, gw, hub, nil)
	wf.Observe(journal.Record)
	wf.Observe(hub.PublishState)

	sc := &stubChain{}
	s := NewServer(ctx, Deps{
		Symbol:   "BTC",
		FeeBps:   10,
		Workflow: wf,
		Draft:    order.NewDraft(),
		Wallet:   w,
		Chain:    sc,
		Settings: settings.NewStore(),
		Markets:  market.DeskSnapshot(),
		History:  journal,
		Chat:     chat.DeskRoom(nil, nil),
		Hub:      hub,
	}, nil)
	ts := httptest.NewServer(s.Handler([]string{"http://localhost:3000"}))
	t.Cleanup(ts.Close)

	return &testDesk{server: s, ts: ts, wallet: w, gateway: gw, workflow: wf, chain: sc}
}

func (d *testDesk) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, d.ts.URL+path, bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type stateBody struct {
	ID    string `json:"id"`
	State struct {
		Phase  string `json:"phase"`
		Reason string `json:"reason"`
	} `json:"state"`
	CanSubmit bool `json:"canSubmit"`
	Busy      bool `json:"busy"`
}

func TestHealth(t *testing.T) {
	d := newTestDesk(t, false)
	var body map[string]string
	if code := d.do(t, "GET", "/health", "", &body); code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", code, body)
	}
}

func TestMarkets(t *testing.T) {
	d := newTestDesk(t, false)

	var stats []market.Stat
	if code := d.do(t, "GET", "/api/v1/markets", "", &stats); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(stats) != 4 {
		t.Errorf("markets = %d, want 4", len(stats))
	}

	var book market.Book
	if code := d.do(t, "GET", "/api/v1/markets/BTC-USD/orderbook", "", &book); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(book.Asks) != 5 || book.Symbol != "BTC/USD" {
		t.Errorf("book = %+v", book)
	}

	var e ErrorResponse
	if code := d.do(t, "GET", "/api/v1/markets/DOGE/orderbook", "", &e); code != http.StatusNotFound {
		t.Errorf("unknown market status = %d, want 404", code)
	}
}

func TestQuoteAndDraft(t *testing.T) {
	d := newTestDesk(t, false)

	var q struct {
		Total string `json:"total"`
		Fee   string `json:"fee"`
	}
	d.do(t, "GET", "/api/v1/quote?amount=0.5&price=42000", "", &q)
	if q.Total != "21000" || q.Fee != "21" {
		t.Errorf("quote = %+v, want total 21000 fee 21", q)
	}

	var draft struct {
		Side   string `json:"side"`
		Amount string `json:"amount"`
		Quote  struct {
			Total string `json:"total"`
		} `json:"quote"`
	}
	code := d.do(t, "PUT", "/api/v1/draft", `{"side":"sell","amount":"2","price":"10"}`, &draft)
	if code != http.StatusOK || draft.Side != "sell" || draft.Quote.Total != "20" {
		t.Errorf("draft = %d %+v", code, draft)
	}
	if code := d.do(t, "PUT", "/api/v1/draft", `{"side":"hold"}`, nil); code != http.StatusBadRequest {
		t.Errorf("bad side status = %d, want 400", code)
	}
}

func TestSubmit_RejectedWhenDisconnected(t *testing.T) {
	d := newTestDesk(t, true)

	var st stateBody
	code := d.do(t, "POST", "/api/v1/orders", `{"amount":"0.5","price":"42000"}`, &st)
	if code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", code)
	}
	if st.State.Phase != "rejected" || st.State.Reason != "not_connected" || !st.CanSubmit {
		t.Errorf("state = %+v", st)
	}
	select {
	case <-d.gateway.calls:
		t.Error("gateway must not be called")
	default:
	}
}

func TestSubmit_ConfirmedFlow(t *testing.T) {
	d := newTestDesk(t, true)
	if code := d.do(t, "POST", "/api/v1/wallet/connect", "", nil); code != http.StatusOK {
		t.Fatalf("connect status = %d", code)
	}

	var st stateBody
	code := d.do(t, "POST", "/api/v1/orders", `{"side":"buy","amount":"0.5","price":"42000"}`, &st)
	if code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", code)
	}
	if !st.Busy || st.CanSubmit {
		t.Errorf("state after accept = %+v, want busy", st)
	}

	req := <-d.gateway.calls
	if req.Symbol != "BTC" || req.Side != order.Buy || req.Amount.String() != "0.5" {
		t.Errorf("gateway request = %s", req)
	}

	if code := d.do(t, "POST", "/api/v1/orders", "", nil); code != http.StatusConflict {
		t.Errorf("second submit status = %d, want 409", code)
	}
	if code := d.do(t, "POST", "/api/v1/orders", `{"amount":"9"}`, nil); code != http.StatusConflict {
		t.Errorf("edited submit status = %d, want 409", code)
	}
	var inFlight order.DraftValues
	d.do(t, "GET", "/api/v1/draft", "", &inFlight)
	if inFlight.Amount != "0.5" {
		t.Errorf("draft amount = %q after 409, want 0.5", inFlight.Amount)
	}

	d.gateway.handle.events <- order.Event{Stage: order.StageConfirming}
	d.gateway.handle.events <- order.Event{Stage: order.StageConfirmed}
	close(d.gateway.handle.events)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := d.workflow.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}

	d.do(t, "GET", "/api/v1/orders/state", "", &st)
	if st.State.Phase != "confirmed" {
		t.Errorf("phase = %s, want confirmed", st.State.Phase)
	}

	var draft order.DraftValues
	d.do(t, "GET", "/api/v1/draft", "", &draft)
	if draft.Amount != "" || draft.Price != "" {
		t.Errorf("draft not reset: %+v", draft)
	}

	var history []stateBody
	d.do(t, "GET", "/api/v1/orders?limit=5", "", &history)
	if len(history) != 1 || history[0].State.Phase != "confirmed" {
		t.Errorf("history = %+v", history)
	}
	if code := d.do(t, "GET", "/api/v1/orders/"+history[0].ID, "", nil); code != http.StatusOK {
		t.Errorf("get by id status = %d", code)
	}
	if code := d.do(t, "GET", "/api/v1/orders/nope", "", nil); code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", code)
	}
	if code := d.do(t, "GET", "/api/v1/orders?limit=-1", "", nil); code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", code)
	}
}

func TestWallet(t *testing.T) {
	d := newTestDesk(t, false)
	var e ErrorResponse
	if code := d.do(t, "POST", "/api/v1/wallet/connect", "", &e); code != http.StatusConflict {
		t.Errorf("connect without key = %d, want 409", code)
	}

	d = newTestDesk(t, true)
	var sess order.Session
	d.do(t, "POST", "/api/v1/wallet/connect", "", &sess)
	if !sess.Connected || sess.Address == nil {
		t.Errorf("session = %+v", sess)
	}
	d.do(t, "POST", "/api/v1/wallet/disconnect", "", &sess)
	if sess.Connected || sess.Address != nil {
		t.Errorf("session after disconnect = %+v", sess)
	}
}

func TestSettings(t *testing.T) {
	d := newTestDesk(t, false)

	var s settings.Settings
	if code := d.do(t, "PUT", "/api/v1/settings", `{"gasPreference":"fast","tradeAlerts":false}`, &s); code != http.StatusOK {
		t.Fatalf("put status = %d", code)
	}
	if s.GasPreference != settings.GasFast || s.TradeAlerts {
		t.Errorf("settings = %+v", s)
	}

	var e ErrorResponse
	if code := d.do(t, "PUT", "/api/v1/settings", `{"timezone":"MARS"}`, &e); code != http.StatusBadRequest {
		t.Errorf("invalid put status = %d, want 400", code)
	}
	if !strings.Contains(e.Message, "timezone") {
		t.Errorf("message = %q", e.Message)
	}

	d.do(t, "POST", "/api/v1/settings/reset", "", &s)
	if s.GasPreference != settings.GasStandard || !s.TradeAlerts {
		t.Errorf("settings after reset = %+v", s)
	}
}

func TestCancelAndOnchain(t *testing.T) {
	d := newTestDesk(t, true)

	if code := d.do(t, "POST", "/api/v1/orders/7/cancel", "", nil); code != http.StatusConflict {
		t.Errorf("cancel while disconnected = %d, want 409", code)
	}
	d.wallet.Connect()

	var tx TxResponse
	if code := d.do(t, "POST", "/api/v1/orders/7/cancel", "", &tx); code != http.StatusAccepted {
		t.Fatalf("cancel status = %d", code)
	}
	if tx.TxHash != common.HexToHash("0xcc") || len(d.chain.cancelled) != 1 || d.chain.cancelled[0].Int64() != 7 {
		t.Errorf("cancel = %+v, calls %v", tx, d.chain.cancelled)
	}
	if code := d.do(t, "POST", "/api/v1/orders/x7/cancel", "", nil); code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", code)
	}

	var o struct {
		Symbol string `json:"symbol"`
		Active bool   `json:"active"`
	}
	if code := d.do(t, "GET", "/api/v1/orders/7/onchain", "", &o); code != http.StatusOK || o.Symbol != "BTC" || !o.Active {
		t.Errorf("onchain = %d %+v", code, o)
	}
}

func TestCORS(t *testing.T) {
	d := newTestDesk(t, false)
	req, _ := http.NewRequest("OPTIONS", d.ts.URL+"/api/v1/settings", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestWebSocketNotifications(t *testing.T) {
	d := newTestDesk(t, false)

	url := "ws" + strings.TrimPrefix(d.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	if err := conn.WriteJSON(WSSubscribeRequest{Op: "subscribe", Channels: []string{ChannelNotifications, ChannelState}}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil || ack.Type != "subscribed" {
		t.Fatalf("ack = %+v, %v", ack, err)
	}

	// rejected submission: one state push then one error notification
	if code := d.do(t, "POST", "/api/v1/orders", "", nil); code != http.StatusAccepted {
		t.Fatalf("submit status = %d", code)
	}

	var types []string
	var note Notification
	for len(types) < 3 {
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v (got %v)", err, types)
		}
		types = append(types, msg.Type)
		if msg.Type == "notification" {
			json.Unmarshal(msg.Data, &note)
		}
	}
	if strings.Join(types, ",") != "state,notification,state" {
		t.Errorf("message types = %v, want [state notification state]", types)
	}
	if note.Level != "error" || note.Message != order.MsgConnectWallet {
		t.Errorf("notification = %+v", note)
	}
}

func TestChat(t *testing.T) {
	d := newTestDesk(t, false)

	var msgs []chat.Message
	if code := d.do(t, "GET", "/api/v1/chat", "", &msgs); code != http.StatusOK || len(msgs) != 4 {
		t.Fatalf("chat = %d, %d messages, want 200 and 4", code, len(msgs))
	}

	url := "ws" + strings.TrimPrefix(d.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.WriteJSON(WSSubscribeRequest{Op: "subscribe", Channels: []string{ChannelChat}}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil || ack.Type != "subscribed" {
		t.Fatalf("ack = %+v, %v", ack, err)
	}

	var e ErrorResponse
	if code := d.do(t, "POST", "/api/v1/chat", `{"message":"   "}`, &e); code != http.StatusBadRequest {
		t.Errorf("blank message status = %d, want 400", code)
	}

	var sent chat.Message
	if code := d.do(t, "POST", "/api/v1/chat", `{"message":"Can do 50 BTC"}`, &sent); code != http.StatusCreated {
		t.Fatalf("send status = %d, want 201", code)
	}
	if sent.User != chat.OwnDesk || sent.Message != "Can do 50 BTC" {
		t.Errorf("sent = %+v", sent)
	}

	var push struct {
		Type string       `json:"type"`
		Data chat.Message `json:"data"`
	}
	if err := conn.ReadJSON(&push); err != nil {
		t.Fatalf("read: %v", err)
	}
	if push.Type != ChannelChat || push.Data.ID != sent.ID {
		t.Errorf("push = %+v, want chat message %s", push, sent.ID)
	}

	d.do(t, "GET", "/api/v1/chat", "", &msgs)
	if len(msgs) != 5 || msgs[4].ID != sent.ID {
		t.Errorf("history = %+v, want 5 messages ending in %s", msgs, sent.ID)
	}
}
