package notify

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/catering-quote/internal/domain/quote"
)

var _ quote.Notifier = (*FormNotifier)(nil)

// FormNotifier posts the quote summary to a form-submission relay that
// forwards it to OwnerEmail.
type FormNotifier struct {
	endpoint string
	http     *http.Client
}

// NewFormNotifier creates a FormNotifier posting to <baseURL>/<ownerEmail>.
func NewFormNotifier(baseURL, ownerEmail string) *FormNotifier {
	return &FormNotifier{
		endpoint: strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(ownerEmail),
		http:     &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// Notify submits the summary as a urlencoded form.
func (f *FormNotifier) Notify(ctx context.Context, n quote.Notification) error {
	form := url.Values{
		"name":     {n.Request.Name},
		"email":    {n.Request.Email},
		"_subject": {Subject(n)},
		"message":  {Summary(n)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "build form request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "submit form")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.Errorf("form relay returned %d: %s", resp.StatusCode, body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
