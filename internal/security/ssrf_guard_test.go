package security

import (
	"testing"
	"time"
)

func TestValidateURL(t *testing.T) {
	guard := NewSSRFGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"正常なHTTPS URL", "https://nominatim.openstreetmap.org/search", false},
		{"正常なHTTP URL", "http://overpass-api.de/api/interpreter", false},
		{"空URL", "", true},
		{"ftpスキーム", "ftp://example.com/feed", true},
		{"fileスキーム", "file:///etc/passwd", true},
		{"javascriptスキーム", "javascript:alert(1)", true},
		{"ループバックIP", "http://127.0.0.1/admin", true},
		{"プライベートIP 10系", "http://10.0.0.5/internal", true},
		{"プライベートIP 172系", "http://172.16.1.1/internal", true},
		{"プライベートIP 192系", "http://192.168.1.1/router", true},
		{"リンクローカル（メタデータIP）", "http://169.254.169.254/latest/meta-data/", true},
		{"IPv6ループバック", "http://[::1]/admin", true},
		{"localhost", "http://localhost:8080/", true},
		{"大文字のLOCALHOST", "http://LOCALHOST/", true},
		{"ホストなし", "https:///path", true},
		{"グローバルIP", "http://93.184.216.34/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestNewSafeClient(t *testing.T) {
	guard := NewSSRFGuard()

	client := guard.NewSafeClient(10 * time.Second)
	if client == nil {
		t.Fatal("expected non-nil http client")
	}
	if client.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", client.Timeout)
	}
}
