// Package http serves the ledger as a JSON API.
//
// This file holds the helpers that turn path, query and body input into
// domain values, so handlers only deal with parsed requests.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"finances/internal/core"
)

const maxBodyBytes = 1 << 20

var errMalformedRequest = errors.New("malformed request")

// amountInput accepts an amount as a JSON number or as a string that may use
// a decimal comma.
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountInput(s)
		return nil
	}
	*a = amountInput(b)
	return nil
}

func (a amountInput) Decimal() (decimal.Decimal, error) {
	return core.ParseAmount(string(a))
}

type categoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type transactionRequest struct {
	Amount      amountInput `json:"amount"`
	Description string      `json:"description"`
	CategoryID  int64       `json:"category_id"`
	Type        string      `json:"type"`
	Date        string      `json:"date"`
}

// params validates the request fields that need parsing. An empty date
// means now.
func (req transactionRequest) params(now time.Time) (core.TransactionParams, error) {
	amount, err := req.Amount.Decimal()
	if err != nil {
		return core.TransactionParams{}, err
	}
	kind, err := core.ParseKind(req.Type)
	if err != nil {
		return core.TransactionParams{}, err
	}
	date := now.UTC()
	if strings.TrimSpace(req.Date) != "" {
		if date, err = core.ParseDate(req.Date); err != nil {
			return core.TransactionParams{}, err
		}
	}
	return core.TransactionParams{
		Amount:      amount,
		Description: sanitizeInput(req.Description),
		CategoryID:  req.CategoryID,
		Type:        kind,
		Date:        date,
	}, nil
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", errMalformedRequest)
	}
	return nil
}

// parseID reads the {id} path parameter.
func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidIdentifier, raw)
	}
	return id, nil
}

// optionalWindow reads start/end or preset from the query. It returns nil
// when none is given.
func optionalWindow(q url.Values, now time.Time) (*core.Window, error) {
	start, end := strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end"))
	preset := strings.TrimSpace(q.Get("preset"))

	switch {
	case start == "" && end == "" && preset == "":
		return nil, nil
	case preset != "" && (start != "" || end != ""):
		return nil, fmt.Errorf("%w: preset and start/end are exclusive", core.ErrInvalidWindow)
	case preset != "":
		w, err := core.PresetWindow(preset, now)
		if err != nil {
			return nil, err
		}
		return &w, nil
	case start == "" || end == "":
		return nil, fmt.Errorf("%w: start and end must be given together", core.ErrInvalidWindow)
	}

	w, err := core.ParseWindow(start, end)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// windowOrAll is optionalWindow defaulting to the whole history.
func windowOrAll(q url.Values, now time.Time) (core.Window, error) {
	w, err := optionalWindow(q, now)
	if err != nil {
		return core.Window{}, err
	}
	if w == nil {
		return core.PresetWindow(core.PresetAll, now)
	}
	return *w, nil
}

// requiredKind reads the type query parameter.
func requiredKind(q url.Values) (core.Kind, error) {
	return core.ParseKind(q.Get("type"))
}

// parseYear reads an optional year query parameter; 0 means absent.
func parseYear(q url.Values) (int, error) {
	raw := strings.TrimSpace(q.Get("year"))
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 || year > 9999 {
		return 0, fmt.Errorf("%w: year %q", core.ErrInvalidWindow, raw)
	}
	return year, nil
}
