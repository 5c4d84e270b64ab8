package pagseguro

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/resgatesabor/resgatesabor-backend/pkg/config"
	pkgerrors "github.com/resgatesabor/resgatesabor-backend/pkg/errors"
	"github.com/resgatesabor/resgatesabor-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"

	requestTimeout = 15 * time.Second
)

var (
	errAPIKeyRequired        = errors.New("pagseguro api key is required")
	errWebhookSecretRequired = errors.New("pagseguro webhook secret is required")
	errInvalidEnv            = fmt.Errorf("pagseguro environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired        = errors.New("pagseguro logger is required")
	errReceiversRequired     = errors.New("at least one split receiver is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://sandbox.api.pagseguro.com",
	productionEnv: "https://api.pagseguro.com",
}

// Client exposes PagSeguro charge primitives with centralized auth, logging,
// idempotency, and error mapping.
type Client struct {
	httpClient    *http.Client
	apiKey        string
	environment   string
	webhookSecret string
	baseURL       string
	logger        *logger.Logger
}

// NewClient initializes the PagSeguro wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PagSeguroConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: requestTimeout},
		apiKey:        apiKey,
		environment:   env,
		webhookSecret: webhookSecret,
		baseURL:       baseURLs[env],
		logger:        logg,
	}

	logg.Info(ctx, "pagseguro client initialized")
	return c, nil
}

// Environment reports the normalized PagSeguro environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook secret used for callback verification.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// NewIdempotencyKey returns a unique key for gateway operations.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "rs"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

// CreateCharge opens a split charge covering every order in a checkout.
// The receiver amounts must sum to params.TotalCents before calling.
func (c *Client) CreateCharge(ctx context.Context, params ChargeCreateParams) (*Charge, error) {
	if len(params.Receivers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, errReceiversRequired.Error())
	}
	var splitTotal int64
	for _, r := range params.Receivers {
		splitTotal += r.AmountCents
	}
	if splitTotal != params.TotalCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("split total %d does not match charge total %d", splitTotal, params.TotalCents))
	}

	c.log(ctx, "request", "create_charge", map[string]any{
		"reference_id": params.ReferenceID.String(),
		"method":       params.Method,
		"amount":       params.TotalCents,
		"receivers":    len(params.Receivers),
	})

	idempotencyKey := params.IdempotencyKey
	if strings.TrimSpace(idempotencyKey) == "" {
		idempotencyKey = c.NewIdempotencyKey("charge.create")
	}

	var charge Charge
	if err := c.do(ctx, http.MethodPost, "/charges", idempotencyKey, params.toRequest(), &charge); err != nil {
		c.log(ctx, "error", "create_charge", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_charge", map[string]any{
		"charge_id": charge.ID,
		"status":    charge.Status,
	})
	return &charge, nil
}

// GetCharge fetches the current gateway state of a charge.
func (c *Client) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	if strings.TrimSpace(chargeID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge id is required")
	}
	c.log(ctx, "request", "get_charge", map[string]any{"charge_id": chargeID})

	var charge Charge
	if err := c.do(ctx, http.MethodGet, "/charges/"+chargeID, "", nil, &charge); err != nil {
		c.log(ctx, "error", "get_charge", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "get_charge", map[string]any{
		"charge_id": charge.ID,
		"status":    charge.Status,
	})
	return &charge, nil
}

// VerifySignature checks the HMAC-SHA256 signature on a webhook payload.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	if c == nil || c.webhookSecret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode gateway request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pagseguro request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read gateway response")
	}

	if resp.StatusCode >= 400 {
		return c.mapGatewayError(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gateway response")
		}
	}
	return nil
}

func (c *Client) mapGatewayError(status int, raw []byte) error {
	var payload struct {
		Errors []struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error_messages"`
	}
	detail := ""
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Errors) > 0 {
		detail = payload.Errors[0].Description
	}

	code := domainCodeForStatus(status)
	msg := fmt.Sprintf("pagseguro returned %d", status)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return pkgerrors.New(code, msg)
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeIdempotency
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return pkgerrors.CodePaymentIntentFailed
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodePaymentIntentFailed
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("pagseguro %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("pagseguro %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "token", "cvv", "cvc", "secret", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidEnv
	}
}
