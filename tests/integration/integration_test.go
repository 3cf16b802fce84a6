//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	baseURL    string
	vendorURL  string
	brokerURL  string
	httpClient *http.Client
)

// Response types are defined locally to keep tests black-box.

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type totals struct {
	Items          float64 `json:"items"`
	Tax            float64 `json:"tax"`
	Travel         float64 `json:"travel"`
	Tip            float64 `json:"tip"`
	TotalBeforeTip float64 `json:"total_before_tip"`
	FinalTotal     float64 `json:"final_total"`
}

type quoteResponse struct {
	Success    bool   `json:"success"`
	Totals     totals `json:"totals"`
	InvoiceID  string `json:"invoice_id"`
	InvoiceURL string `json:"invoice_url"`
}

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Coverage output of the instrumented binary.
	if err := os.MkdirAll("coverdir", 0o777); err != nil {
		log.Fatalf("create coverdir: %v", err)
	}

	dc, err := tc.NewDockerCompose("docker-compose.test.yml")
	if err != nil {
		log.Fatalf("compose init: %v", err)
	}

	err = dc.
		WaitForService("square", wait.ForHTTP("/__admin/health").WithPort("8080/tcp")).
		WaitForService("api", wait.ForHTTP("/readyz").WithPort("8080/tcp")).
		Up(ctx, tc.Wait(true))
	if err != nil {
		log.Fatalf("compose up: %v", err)
	}

	apiContainer, err := dc.ServiceContainer(ctx, "api")
	if err != nil {
		log.Fatalf("api container: %v", err)
	}
	baseURL = endpoint(ctx, dc, "api", "8080/tcp", "http://")
	vendorURL = endpoint(ctx, dc, "square", "8080/tcp", "http://")
	brokerURL = endpoint(ctx, dc, "rabbitmq", "5672/tcp", "amqp://guest:guest@") + "/"
	httpClient = &http.Client{Timeout: 30 * time.Second}
	log.Printf("API available at %s, vendor stub at %s", baseURL, vendorURL)

	result := m.Run()

	// SIGINT lets app.Run shut down cleanly and flush coverage to GOCOVERDIR.
	stopTimeout := 30 * time.Second
	if err := apiContainer.Stop(ctx, &stopTimeout); err != nil {
		log.Printf("stop api container: %v", err)
	}
	if err := dc.Down(context.Background(), tc.RemoveOrphans(true)); err != nil {
		log.Printf("compose down: %v", err)
	}
	return result
}

// endpoint resolves the host address of a compose service port.
func endpoint(ctx context.Context, dc *tc.DockerCompose, service, port, prefix string) string {
	c, err := dc.ServiceContainer(ctx, service)
	if err != nil {
		log.Fatalf("%s container: %v", service, err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		log.Fatalf("%s host: %v", service, err)
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		log.Fatalf("%s port: %v", service, err)
	}
	return fmt.Sprintf("%s%s:%s", prefix, host, mapped.Port())
}

// HTTP helpers.

func doGet(t *testing.T, path string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, baseURL+path, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func doPost(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	var data []byte
	switch b := body.(type) {
	case string:
		data = []byte(b)
	default:
		var err error
		if data, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, baseURL+path, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}
