package quote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newProvider(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/last/USD-BRL":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"USDBRL":{"code":"USD","codein":"BRL","name":"Dólar Americano/Real Brasileiro","bid":"5.1000","ask":"5.1010"}}`))
		case "/last/EUR-BRL":
			_, _ = w.Write([]byte(`{"EURBRL":{"code":"EUR","codein":"BRL","name":"Euro/Real Brasileiro","bid":"n/a"}}`))
		case "/last/GBP-BRL":
			_, _ = w.Write([]byte(`{}`))
		case "/last/JPY-BRL":
			http.Error(w, "boom", http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status":404,"code":"CoinNotExists","message":"moeda nao encontrada"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLatest(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newProvider(t, &hits)
	client := MustNew(Config{URL: srv.URL, HomeCurrency: "brl", Timeout: time.Second})

	got, err := client.Latest(context.Background(), " usd ", "")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	want := Rate{Code: "USD", Home: "BRL", Name: "Dólar Americano/Real Brasileiro", Bid: 5.1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Latest() mismatch (-want +got):\n%s", diff)
	}

	if _, err := client.Latest(context.Background(), "USD", "BRL"); err != nil {
		t.Fatalf("Latest() second call error = %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("provider hits = %d, want 1 (cached)", n)
	}
}

func TestLatestFailures(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := newProvider(t, &hits)
	client := MustNew(Config{URL: srv.URL, Timeout: time.Second})

	tests := []struct {
		code string
		want error
	}{
		{code: "XYZ", want: ErrNotFound},
		{code: "GBP", want: ErrNotFound},
		{code: "EUR", want: ErrUnavailable},
		{code: "JPY", want: ErrUnavailable},
		{code: "", want: ErrNotFound},
	}

	for _, tt := range tests {
		if _, err := client.Latest(context.Background(), tt.code, "BRL"); !errors.Is(err, tt.want) {
			t.Fatalf("Latest(%q) error = %v, want %v", tt.code, err, tt.want)
		}
	}
}

func TestLatestProviderDown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := MustNew(Config{URL: url, Timeout: 200 * time.Millisecond})
	if _, err := client.Latest(context.Background(), "USD", ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNewClientValidatesURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewClient(Config{URL: "not a url"}); err == nil {
		t.Fatal("expected error for invalid url")
	}
}
