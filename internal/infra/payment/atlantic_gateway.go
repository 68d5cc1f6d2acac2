package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"telegram-topup-bot/internal/config"
	"telegram-topup-bot/internal/domain/model"
	"telegram-topup-bot/internal/domain/ports/adapter"
)

var _ adapter.DepositGateway = (*AtlanticGateway)(nil)

// AtlanticGateway implements DepositGateway against the Atlantic H2H API
// using direct HTTP calls. All endpoints are form-encoded POSTs carrying the
// account api key.
type AtlanticGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAtlanticGateway creates a new direct Atlantic gateway client.
func NewAtlanticGateway(cfg *config.GatewayConfig) *AtlanticGateway {
	return &AtlanticGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *AtlanticGateway) Name() string { return "atlantic" }

// envelope is the common response wrapper of the Atlantic API.
type envelope struct {
	Status  bool            `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type methodPayload struct {
	Name   string `json:"name"`
	Metode string `json:"metode"`
	Type   string `json:"type"`
}

type invoicePayload struct {
	ID       string    `json:"id"`
	ReffID   string    `json:"reff_id"`
	Nominal  flexInt64 `json:"nominal"`
	QRString string    `json:"qr_string"`
}

type statusPayload struct {
	ID        string    `json:"id"`
	ReffID    string    `json:"reff_id"`
	Metode    string    `json:"metode"`
	Nominal   flexInt64 `json:"nominal"`
	CreatedAt string    `json:"created_at"`
	Status    string    `json:"status"`
}

func (g *AtlanticGateway) ListMethods(ctx context.Context) ([]model.DepositMethod, error) {
	form := url.Values{}

	data, err := g.post(ctx, "/deposit/metode", form)
	if err != nil {
		return nil, err
	}

	var payload []methodPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode method list: %w", err)
	}

	methods := make([]model.DepositMethod, 0, len(payload))
	for _, m := range payload {
		methods = append(methods, model.DepositMethod{
			Name: m.Name,
			Code: m.Metode,
			Type: m.Type,
		})
	}
	return methods, nil
}

func (g *AtlanticGateway) CreateDeposit(ctx context.Context, amount int64, methodCode, methodType, referenceID string) (*model.DepositInvoice, error) {
	form := url.Values{}
	form.Set("reff_id", referenceID)
	form.Set("nominal", strconv.FormatInt(amount, 10))
	form.Set("metode", methodCode)
	form.Set("type", methodType)

	data, err := g.post(ctx, "/deposit/create", form)
	if err != nil {
		return nil, err
	}

	var payload invoicePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode invoice: %w", err)
	}
	return &model.DepositInvoice{
		ID:          payload.ID,
		ReferenceID: payload.ReffID,
		QRString:    payload.QRString,
		Nominal:     int64(payload.Nominal),
	}, nil
}

func (g *AtlanticGateway) CheckStatus(ctx context.Context, depositID string) (*model.DepositStatusRecord, error) {
	form := url.Values{}
	form.Set("id", depositID)

	data, err := g.post(ctx, "/deposit/status", form)
	if err != nil {
		return nil, err
	}

	var payload statusPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &model.DepositStatusRecord{
		ID:          payload.ID,
		ReferenceID: payload.ReffID,
		MethodCode:  payload.Metode,
		Nominal:     int64(payload.Nominal),
		CreatedAt:   payload.CreatedAt,
		Status:      payload.Status,
	}, nil
}

func (g *AtlanticGateway) RequestInstant(ctx context.Context, amount int64, methodCode, referenceID string) (*model.DepositInvoice, error) {
	form := url.Values{}
	form.Set("reff_id", referenceID)
	form.Set("nominal", strconv.FormatInt(amount, 10))
	form.Set("metode", methodCode)

	data, err := g.post(ctx, "/deposit/instant", form)
	if err != nil {
		return nil, err
	}

	var payload invoicePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode instant invoice: %w", err)
	}
	return &model.DepositInvoice{
		ID:          payload.ID,
		ReferenceID: payload.ReffID,
		QRString:    payload.QRString,
		Nominal:     int64(payload.Nominal),
	}, nil
}

// post sends a form-encoded request and unwraps the response envelope.
func (g *AtlanticGateway) post(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	form.Set("api_key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}

	if !env.Status {
		return nil, fmt.Errorf("atlantic error: code %d, message: %s", env.Code, env.Message)
	}
	return env.Data, nil
}

// flexInt64 tolerates the API's mixed nominal encodings: integers, decimal
// strings, and floats, all truncated to whole rupiah.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse nominal %q: %w", s, err)
	}
	*f = flexInt64(int64(v))
	return nil
}
