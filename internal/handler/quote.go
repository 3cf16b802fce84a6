package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/catering-quote/internal/domain/pricing"
	"github.com/xenking/catering-quote/internal/domain/quote"
)

var errInvalidBody = errors.New("invalid JSON body")

// Quote prices the request, invoices it with the vendor and responds with the
// totals and the published invoice.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}

	req, err := readRequest(w, r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	res, err := h.quotes.Process(ctx, req)
	if err != nil {
		h.writeQuoteError(ctx, w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
		e.Field("totals", func(e *jx.Encoder) { encodeTotals(e, res.Estimate) })
		e.Field("invoice_id", func(e *jx.Encoder) { e.Str(res.InvoiceID) })
		e.Field("invoice_url", func(e *jx.Encoder) { e.Str(res.InvoiceURL) })
	})
}

// Estimate prices the request without contacting the vendor.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	if !allowPost(w, r) {
		return
	}

	req, err := readRequest(w, r)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	est, err := h.quotes.Estimate(req)
	if err != nil {
		h.writeQuoteError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
		e.Field("totals", func(e *jx.Encoder) { encodeTotals(e, est) })
	})
}

// writeQuoteError converts domain errors to HTTP error responses.
func (h *Handler) writeQuoteError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, quote.ErrMissingContact) {
		writeError(w, http.StatusBadRequest, "Missing name or email", "")
		return
	}

	var fieldErr *quote.InvalidFieldError
	if errors.As(err, &fieldErr) {
		writeError(w, http.StatusBadRequest, fieldErr.Error(), "")
		return
	}

	var upErr *quote.UpstreamError
	if errors.As(err, &upErr) {
		writeError(w, http.StatusInternalServerError, "Failed to "+string(upErr.Step), upErr.Err.Error())
		return
	}

	zctx.From(ctx).Error("Quote failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal server error", "")
}

// writeDecodeError reports a body that could not be turned into a request.
func writeDecodeError(w http.ResponseWriter, err error) {
	var fieldErr *quote.InvalidFieldError
	if errors.As(err, &fieldErr) {
		writeError(w, http.StatusBadRequest, fieldErr.Error(), "")
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid JSON body", "")
}

// readRequest reads and decodes the quote body. An empty body decodes as an
// empty request.
func readRequest(w http.ResponseWriter, r *http.Request) (pricing.Request, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return pricing.Request{}, errors.Wrap(err, "read body")
	}
	return decodeRequest(body)
}

// decodeRequest maps the wire fields onto a pricing request. Numeric fields
// accept numbers or numeric strings; anything else counts as zero.
func decodeRequest(body []byte) (pricing.Request, error) {
	var req pricing.Request
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	d := jx.DecodeBytes(body)
	if d.Next() != jx.Object {
		return req, errInvalidBody
	}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var dst *string
		var raw string
		switch key {
		case "name":
			dst = &req.Name
		case "email":
			dst = &req.Email
		case "event_address":
			dst = &req.EventAddress
		case "miles", "package_rate", "guests":
			dst = &raw
		default:
			return d.Skip()
		}

		v, err := scalar(d)
		if err != nil {
			return err
		}
		*dst = v

		switch key {
		case "miles":
			req.Miles, err = pricing.ParseAmount(raw)
		case "package_rate":
			req.PackageRate, err = pricing.ParseAmount(raw)
		case "guests":
			req.GuestCount, err = pricing.ParseCount(raw)
		}
		if errors.Is(err, pricing.ErrOutOfRange) {
			return &quote.InvalidFieldError{Field: key, Reason: quote.ReasonOutOfRange}
		}
		return err
	})
	if err != nil {
		return pricing.Request{}, errors.Wrap(err, "decode quote request")
	}
	// Only whitespace may follow the object.
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		return pricing.Request{}, errInvalidBody
	}
	return req, nil
}

// scalar reads a string or number as text. Null, booleans, objects and
// arrays yield an empty string.
func scalar(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", d.Skip()
	}
}

func encodeTotals(e *jx.Encoder, est pricing.Estimate) {
	e.Obj(func(e *jx.Encoder) {
		amount(e, "items", est.Items)
		amount(e, "tax", est.Tax)
		amount(e, "travel", est.Travel)
		amount(e, "tip", est.Tip)
		amount(e, "total_before_tip", est.TotalBeforeTip)
		amount(e, "final_total", est.FinalTotal)
	})
}

// amount writes d as an exact JSON number.
func amount(e *jx.Encoder, name string, d decimal.Decimal) {
	e.Field(name, func(e *jx.Encoder) { e.Num(jx.Num(d.String())) })
}
