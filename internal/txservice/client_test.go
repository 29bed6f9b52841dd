package txservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

const testSafe = "0x1c8b9B78e3085866521FE206fa4c1a67F49f153A"

func newTestClient(serverURL string) *Client {
	logger := zerolog.New(nil)
	return NewClient(
		100, // high rate limit for tests
		2,
		time.Millisecond,
		time.Second,
		map[string]string{"ethereum": serverURL},
		&logger,
	)
}

func TestGetSafeInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/safes/"+testSafe+"/" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(SafeInfo{
			Address:   testSafe,
			Nonce:     7,
			Threshold: 2,
			Owners:    []string{"0xaaa", "0xbbb", "0xccc"},
			Version:   "1.3.0",
		})
	}))
	defer server.Close()

	info, err := newTestClient(server.URL).GetSafeInfo(context.Background(), "ethereum", testSafe)
	if err != nil {
		t.Fatalf("GetSafeInfo: %v", err)
	}
	if info.Version != "1.3.0" || info.Threshold != 2 || info.Nonce != 7 {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestGetSafeInfoNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetSafeInfo(context.Background(), "ethereum", testSafe)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetTransactionsSendsModifiedSince(t *testing.T) {
	var gotQuery atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query().Get("modified__gte"))
		fmt.Fprint(w, `{"count":1,"results":[{"safeTxHash":"0xabc","to":"0xdef","value":"0","nonce":"1"}]}`)
	}))
	defer server.Close()

	since := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	txs, err := newTestClient(server.URL).GetTransactions(context.Background(), "ethereum", testSafe, &since)
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(txs) != 1 || txs[0].SafeTxHash != "0xabc" {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
	if got := gotQuery.Load().(string); got != "2024-05-01T12:00:00Z" {
		t.Errorf("modified__gte = %q", got)
	}
}

func TestGetTransactionsFollowsPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "1" {
			fmt.Fprint(w, `{"count":2,"results":[{"safeTxHash":"0xsecond"}]}`)
			return
		}
		next := server.URL + r.URL.Path + "?offset=1"
		fmt.Fprintf(w, `{"count":2,"next":%q,"results":[{"safeTxHash":"0xfirst"}]}`, next)
	}))
	defer server.Close()

	txs, err := newTestClient(server.URL).GetTransactions(context.Background(), "ethereum", testSafe, nil)
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(txs) != 2 || txs[0].SafeTxHash != "0xfirst" || txs[1].SafeTxHash != "0xsecond" {
		t.Fatalf("unexpected transactions: %+v", txs)
	}
}

func TestTransientErrorsAreRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"count":0,"results":[]}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetTransactions(context.Background(), "ethereum", testSafe, nil)
	if err != nil {
		t.Fatalf("GetTransactions after retry: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestNotFoundIsNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetTransactions(context.Background(), "ethereum", testSafe, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1 (404 must be definitive)", calls)
	}
}

func TestUnknownNetworkFailsFast(t *testing.T) {
	client := newTestClient("http://unused")
	if _, err := client.GetTransactions(context.Background(), "dogecoin", testSafe, nil); err == nil {
		t.Fatal("expected error for unknown network")
	}
}
