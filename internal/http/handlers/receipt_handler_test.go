package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/receipt-processor/internal/domain"
	"github.com/tbourn/receipt-processor/internal/http/middleware"
	"github.com/tbourn/receipt-processor/internal/repo"
	"github.com/tbourn/receipt-processor/internal/scoring"
	"github.com/tbourn/receipt-processor/internal/services"
)

// ----- fixtures -----

const (
	targetReceipt = `{
  "retailer": "Target",
  "purchaseDate": "2022-01-01",
  "purchaseTime": "13:01",
  "items": [
    {"shortDescription": "Mountain Dew 12PK", "price": "6.49"},
    {"shortDescription": "Emils Cheese Pizza", "price": "12.25"},
    {"shortDescription": "Knorr Creamy Chicken", "price": "1.26"},
    {"shortDescription": "Doritos Nacho Cheese", "price": "3.35"},
    {"shortDescription": "   Klarbrunn 12-PK 12 FL OZ  ", "price": "12.00"}
  ],
  "total": "35.35"
}`
	mmReceipt = `{
  "retailer": "M&M Corner Market",
  "purchaseDate": "2022-03-20",
  "purchaseTime": "14:33",
  "items": [
    {"shortDescription": "Gatorade", "price": "2.25"},
    {"shortDescription": "Gatorade", "price": "2.25"},
    {"shortDescription": "Gatorade", "price": "2.25"},
    {"shortDescription": "Gatorade", "price": "2.25"}
  ],
  "total": "9.00"
}`
	morningReceipt = `{
  "retailer": "Walgreens",
  "purchaseDate": "2022-01-02",
  "purchaseTime": "08:13",
  "total": "2.65",
  "items": [
    {"shortDescription": "Pepsi - 12-oz", "price": "1.25"},
    {"shortDescription": "Dasani", "price": "1.40"}
  ]
}`
	simpleReceipt = `{
  "retailer": "Target",
  "purchaseDate": "2022-01-02",
  "purchaseTime": "13:13",
  "total": "1.25",
  "items": [
    {"shortDescription": "Pepsi - 12-oz", "price": "1.25"}
  ]
}`
)

type testServer struct {
	r      *gin.Engine
	store  *repo.MemoryStore
	scored *atomic.Int64
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repo.NewMemoryStore()
	ledger := services.NewLedger(store)
	var scored atomic.Int64
	ledger.Scorer = func(r domain.Receipt) int {
		scored.Add(1)
		return scoring.Score(r)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 4<<10)
		c.Next()
	})
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, key string, now time.Time) (string, bool, error) {
			rec, err := store.GetIdempotency(ctx, key, now)
			if err != nil {
				return "", false, nil
			}
			return rec.ReceiptID, true, nil
		}))

	h := New(ledger, store, time.Hour)
	r.POST("/receipts/process", h.ProcessReceipt)
	r.GET("/receipts/:id/points", h.GetPoints)
	return testServer{r: r, store: store, scored: &scored}
}

func (s testServer) do(method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func (s testServer) process(t *testing.T, body string) string {
	t.Helper()
	w := s.do(http.MethodPost, "/receipts/process", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("POST status=%d body=%s", w.Code, w.Body.String())
	}
	var resp ProcessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.ID == "" {
		t.Fatalf("bad process response %s: %v", w.Body.String(), err)
	}
	return resp.ID
}

func (s testServer) points(t *testing.T, id string) int {
	t.Helper()
	w := s.do(http.MethodGet, "/receipts/"+id+"/points", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET status=%d body=%s", w.Code, w.Body.String())
	}
	var resp PointsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad points response %s: %v", w.Body.String(), err)
	}
	return resp.Points
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("bad error body %s: %v", w.Body.String(), err)
	}
	return er
}

// ----- tests -----

func TestProcessThenPoints_Scenarios(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"target", targetReceipt, 28},
		{"corner market", mmReceipt, 109},
		{"morning", morningReceipt, 15},
		{"simple", simpleReceipt, 31},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			id := s.process(t, tc.body)
			if got := s.points(t, id); got != tc.want {
				t.Fatalf("points = %d; want %d", got, tc.want)
			}
		})
	}
}

func TestProcess_DistinctIDsForIdenticalReceipts(t *testing.T) {
	s := newTestServer(t)
	a := s.process(t, simpleReceipt)
	b := s.process(t, simpleReceipt)
	if a == b {
		t.Fatalf("identical submissions must get distinct ids, both %q", a)
	}
	if n, _ := s.store.CountReceipts(context.Background()); n != 2 {
		t.Fatalf("stored %d receipts; want 2", n)
	}
}

func TestPoints_MemoizedAcrossRequests(t *testing.T) {
	s := newTestServer(t)
	id := s.process(t, mmReceipt)
	for i := 0; i < 3; i++ {
		if got := s.points(t, id); got != 109 {
			t.Fatalf("call %d: points = %d", i, got)
		}
	}
	if n := s.scored.Load(); n != 1 {
		t.Fatalf("scored %d times; want 1", n)
	}
}

func TestPoints_UnknownID_404(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/receipts/does-not-exist/points", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d; want 404", w.Code)
	}
	er := decodeError(t, w)
	if er.Code != ErrCodeNotFound || er.Message != "No receipt found for that id" || er.RequestID == "" {
		t.Fatalf("unexpected body: %+v", er)
	}
}

func TestPoints_WhitespaceID_400(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/receipts/a%20b/points", "", nil)
	if w.Code != http.StatusBadRequest || decodeError(t, w).Code != ErrCodeBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestProcess_InvalidReceipts_400(t *testing.T) {
	replace := func(old, new string) string { return strings.Replace(simpleReceipt, old, new, 1) }
	cases := map[string]struct {
		body   string
		detail string
	}{
		"empty retailer only":   {`{"retailer": ""}`, "retailer failed required"},
		"malformed json":        {`{"retailer": `, ""},
		"no items":              {replace(`"items": [
    {"shortDescription": "Pepsi - 12-oz", "price": "1.25"}
  ]`, `"items": []`), "items failed min=1"},
		"bad retailer chars":    {replace(`"Target"`, `"Target*"`), "retailer failed retailer"},
		"bad description":       {replace(`"Pepsi - 12-oz"`, `"Pepsi!"`), "items[0].shortDescription failed description"},
		"one decimal price":     {replace(`"price": "1.25"`, `"price": "1.2"`), "items[0].price failed amount"},
		"integer total":         {replace(`"total": "1.25"`, `"total": "1"`), "total failed amount"},
		"negative total":        {replace(`"total": "1.25"`, `"total": "-1.25"`), "total failed amount"},
		"impossible date":       {replace(`"2022-01-02"`, `"2022-13-02"`), "purchaseDate failed datetime=2006-01-02"},
		"impossible time":       {replace(`"13:13"`, `"25:13"`), "purchaseTime failed clock"},
		"bad seconds":           {replace(`"13:13"`, `"13:13:75"`), "purchaseTime failed clock"},
		"13-digit price":        {replace(`"price": "1.25"`, `"price": "1000000000000.00"`), "items[0].price failed amount"},
		"21-digit total":        {replace(`"total": "1.25"`, `"total": "100000000000000000000.00"`), "total failed amount"},
		"number instead of str": {replace(`"total": "1.25"`, `"total": 1.25`), ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			s := newTestServer(t)
			w := s.do(http.MethodPost, "/receipts/process", tc.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d; want 400 (%s)", w.Code, w.Body.String())
			}
			er := decodeError(t, w)
			if er.Code != ErrCodeBadRequest || er.Message != msgInvalidReceipt || len(er.Details) == 0 {
				t.Fatalf("unexpected body: %+v", er)
			}
			if tc.detail != "" && !containsString(er.Details, tc.detail) {
				t.Fatalf("details %v missing %q", er.Details, tc.detail)
			}
			if n, _ := s.store.CountReceipts(context.Background()); n != 0 {
				t.Fatalf("invalid receipt was stored")
			}
		})
	}
}

func TestProcess_UnicodeRetailerAccepted(t *testing.T) {
	s := newTestServer(t)
	id := s.process(t, strings.Replace(simpleReceipt, `"Target"`, `"Café Zoë"`, 1))
	// 7 letters, plus the rules shared with the simple receipt minus Target's 6.
	if got := s.points(t, id); got != 32 {
		t.Fatalf("points = %d; want 32", got)
	}
}

func TestProcess_UnicodeSpacesAccepted(t *testing.T) {
	s := newTestServer(t)
	body := strings.Replace(simpleReceipt, `"Target"`, "\"Café\u00a0Zoë\"", 1)
	body = strings.Replace(body, `"Pepsi - 12-oz"`, "\"Pepsi\u00a0-\u00a012-oz\"", 1)
	id := s.process(t, body)
	if got := s.points(t, id); got != 32 {
		t.Fatalf("points = %d; want 32", got)
	}
}

func TestProcess_TimeWithSeconds(t *testing.T) {
	s := newTestServer(t)
	id := s.process(t, strings.Replace(simpleReceipt, `"13:13"`, `"14:00:30"`, 1))
	// simple receipt's 31 plus the afternoon bonus.
	if got := s.points(t, id); got != 41 {
		t.Fatalf("points = %d; want 41", got)
	}
}

func TestProcess_BodyTooLarge_413(t *testing.T) {
	s := newTestServer(t)
	body := `{"retailer": "` + strings.Repeat("a", 8<<10) + `"}`
	w := s.do(http.MethodPost, "/receipts/process", body, nil)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d; want 413", w.Code)
	}
	if er := decodeError(t, w); er.Code != ErrCodeBadRequest || er.Message != msgBodyTooLarge {
		t.Fatalf("unexpected body: %+v", er)
	}
}

func TestProcess_IdempotencyKeyReplaysSameID(t *testing.T) {
	s := newTestServer(t)
	hdr := map[string]string{middleware.HeaderIdempotencyKey: "retry-1"}

	w1 := s.do(http.MethodPost, "/receipts/process", mmReceipt, hdr)
	w2 := s.do(http.MethodPost, "/receipts/process", mmReceipt, hdr)
	if w1.Code != http.StatusOK || w2.Code != http.StatusOK {
		t.Fatalf("statuses %d/%d", w1.Code, w2.Code)
	}
	var r1, r2 ProcessResponse
	_ = json.Unmarshal(w1.Body.Bytes(), &r1)
	_ = json.Unmarshal(w2.Body.Bytes(), &r2)
	if r1.ID == "" || r1.ID != r2.ID {
		t.Fatalf("replay returned %q, first was %q", r2.ID, r1.ID)
	}
	if w1.Header().Get(middleware.HeaderIdempotencyReplayed) != "" || w2.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay header wrong: first=%q second=%q",
			w1.Header().Get(middleware.HeaderIdempotencyReplayed), w2.Header().Get(middleware.HeaderIdempotencyReplayed))
	}
	if n, _ := s.store.CountReceipts(context.Background()); n != 1 {
		t.Fatalf("stored %d receipts; want 1", n)
	}

	other := s.do(http.MethodPost, "/receipts/process", mmReceipt, map[string]string{middleware.HeaderIdempotencyKey: "retry-2"})
	var r3 ProcessResponse
	_ = json.Unmarshal(other.Body.Bytes(), &r3)
	if r3.ID == r1.ID {
		t.Fatalf("different key must produce a new id")
	}
}

func TestProcess_BadIdempotencyKey_400(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodPost, "/receipts/process", mmReceipt, map[string]string{middleware.HeaderIdempotencyKey: "no spaces allowed"})
	if w.Code != http.StatusBadRequest || decodeError(t, w).Code != "bad_idempotency_key" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

// ----- service doubles -----

type stubLedger struct {
	id        string
	submitErr error
	points    int
	pointsErr error
}

func (s stubLedger) Submit(context.Context, domain.Receipt) (string, error) { return s.id, s.submitErr }
func (s stubLedger) Points(context.Context, string) (int, error)            { return s.points, s.pointsErr }

// racedIdem simulates a concurrent request that recorded the key first.
type racedIdem struct{ winner string }

func (racedIdem) CreateIdempotency(context.Context, string, string, time.Duration) (*domain.Idempotency, error) {
	return nil, repo.ErrDuplicate
}

func (r racedIdem) GetIdempotency(_ context.Context, key string, _ time.Time) (*domain.Idempotency, error) {
	return &domain.Idempotency{Key: key, ReceiptID: r.winner}, nil
}

func stubServer(l ReceiptLedger, idem IdempotencyStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	h := New(l, idem, time.Minute)
	r.POST("/receipts/process", h.ProcessReceipt)
	r.GET("/receipts/:id/points", h.GetPoints)
	return r
}

func TestHandlers_ServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		ledger stubLedger
		method string
		path   string
		status int
		code   string
	}{
		{"submit invalid", stubLedger{submitErr: services.ErrInvalidReceipt}, http.MethodPost, "/receipts/process", http.StatusBadRequest, ErrCodeBadRequest},
		{"submit storage", stubLedger{submitErr: errors.New("disk full")}, http.MethodPost, "/receipts/process", http.StatusInternalServerError, ErrCodeSubmitFailed},
		{"points corrupt", stubLedger{pointsErr: services.ErrLedgerCorrupt}, http.MethodGet, "/receipts/x/points", http.StatusInternalServerError, ErrCodePointsFailed},
		{"points missing", stubLedger{pointsErr: services.ErrReceiptNotFound}, http.MethodGet, "/receipts/x/points", http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := stubServer(tc.ledger, nil)
			body := ""
			if tc.method == http.MethodPost {
				body = simpleReceipt
			}
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status || decodeError(t, w).Code != tc.code {
				t.Fatalf("got %d %s; want %d %s", w.Code, w.Body.String(), tc.status, tc.code)
			}
		})
	}
}

func TestProcess_ConcurrentSameKeyAgreesOnWinner(t *testing.T) {
	r := stubServer(stubLedger{id: "loser"}, racedIdem{winner: "winner"})
	req := httptest.NewRequest(http.MethodPost, "/receipts/process", strings.NewReader(simpleReceipt))
	req.Header.Set(middleware.HeaderIdempotencyKey, "k")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp ProcessResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if w.Code != http.StatusOK || resp.ID != "winner" {
		t.Fatalf("got %d %+v; want winner id", w.Code, resp)
	}
	if w.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("expected replay header")
	}
}

func containsString(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
