package geo

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNominatimClient_Geocode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query != "Avenida Beira-Rio, Ubá, Minas Gerais" {
			t.Errorf("unexpected query: %q", query)
		}
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("expected format=json, got %q", r.URL.Query().Get("format"))
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected User-Agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat": "-21.1198", "lon": "-42.9412"}]`))
	}))
	defer server.Close()

	client := NewNominatimClient(server.Client(), testLogger(), "Ubá, Minas Gerais")
	client.endpoint = server.URL

	coord, err := client.Geocode(context.Background(), "Avenida Beira-Rio")
	if err != nil {
		t.Fatalf("Geocode returned error: %v", err)
	}
	if coord == nil {
		t.Fatal("expected coordinate, got nil")
	}
	if coord.Lat != -21.1198 || coord.Lng != -42.9412 {
		t.Errorf("unexpected coordinate: %+v", coord)
	}
}

// TestNominatimClient_Geocode_NoResult は該当なしの場合にnilが返ることを検証する。
// フォールバック座標の適用は呼び出し側の責務。
func TestNominatimClient_Geocode_NoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewNominatimClient(server.Client(), testLogger(), "Ubá, Minas Gerais")
	client.endpoint = server.URL

	coord, err := client.Geocode(context.Background(), "Rua Inexistente")
	if err != nil {
		t.Fatalf("Geocode returned error: %v", err)
	}
	if coord != nil {
		t.Errorf("expected nil coordinate, got %+v", coord)
	}
}

func TestNominatimClient_Geocode_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewNominatimClient(server.Client(), testLogger(), "Ubá, Minas Gerais")
	client.endpoint = server.URL

	_, err := client.Geocode(context.Background(), "Avenida Beira-Rio")
	if err == nil {
		t.Fatal("expected error on 503 response")
	}
}

func TestNominatimClient_Geocode_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewNominatimClient(server.Client(), testLogger(), "Ubá, Minas Gerais")
	client.endpoint = server.URL

	_, err := client.Geocode(context.Background(), "Avenida Beira-Rio")
	if err == nil {
		t.Fatal("expected error on invalid JSON")
	}
}
