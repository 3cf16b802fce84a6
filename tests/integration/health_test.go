//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/livez", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			resp := doGet(t, path)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d: %+v", resp.StatusCode, decodeJSON[healthResponse](t, resp))
			}
			body := decodeJSON[healthResponse](t, resp)
			if body.Status != "ok" || len(body.Checks) != 0 {
				t.Fatalf("unexpected body: %+v", body)
			}
		})
	}
}

func TestReadyz_PingsVendor(t *testing.T) {
	resp := doGet(t, "/readyz")
	resp.Body.Close()

	if len(vendorRequests(t, http.MethodGet, "/v2/locations/LOC1")) == 0 {
		t.Fatal("readiness check never reached the vendor")
	}
}
