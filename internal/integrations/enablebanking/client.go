package enablebanking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Dan9191/daybal/internal/apperr"
	"github.com/Dan9191/daybal/internal/config"
	"github.com/Dan9191/daybal/internal/metrics"
	"github.com/Dan9191/daybal/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// maxPages bounds the continuation loop against a gateway that never stops paging
const maxPages = 200

// Client talks to the Enable Banking REST API
type Client struct {
	http    *resty.Client
	auth    AuthProvider
	log     *logrus.Logger
	metrics *metrics.Metrics
}

// NewClient initializes a new gateway client
func NewClient(cfg *config.Config, auth AuthProvider, log *logrus.Logger, m *metrics.Metrics) *Client {
	rc := resty.New().
		SetBaseURL(cfg.EBAPIURL).
		SetTimeout(cfg.HTTPTimeout).
		SetRetryCount(cfg.HTTPRetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if r == nil {
				return err != nil
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{
		http:    rc,
		auth:    auth,
		log:     log,
		metrics: m,
	}
}

// do sends one request with the given bearer token and decodes a 200 body into out
func (c *Client) do(ctx context.Context, op, token string, build func(*resty.Request) *resty.Request, method, path string, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token)
	if build != nil {
		req = build(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.metrics.ObserveUpstream(op, 0)
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	c.metrics.ObserveUpstream(op, resp.StatusCode())

	c.log.Debugf("gateway %s %s -> %d", method, path, resp.StatusCode())

	if resp.StatusCode() != http.StatusOK {
		c.log.Warnf("gateway %s returned %d: %s", op, resp.StatusCode(), resp.String())
		return &apperr.UpstreamError{Op: op, Status: resp.StatusCode(), Body: resp.String()}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// StartAuthorization asks the gateway for a bank login URL
func (c *Client) StartAuthorization(ctx context.Context, body AuthRequest) (*AuthResponse, error) {
	token, err := c.auth.Token()
	if err != nil {
		return nil, err
	}

	var res AuthResponse
	err = c.do(ctx, "auth", token, func(r *resty.Request) *resty.Request {
		return r.SetBody(body)
	}, http.MethodPost, "/auth", &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CreateSession exchanges an authorization code for a session
func (c *Client) CreateSession(ctx context.Context, code string) (*SessionResponse, error) {
	token, err := c.auth.Token()
	if err != nil {
		return nil, err
	}

	var res SessionResponse
	err = c.do(ctx, "sessions", token, func(r *resty.Request) *resty.Request {
		return r.SetBody(map[string]string{"code": code})
	}, http.MethodPost, "/sessions", &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetBalances fetches the balances of an account
func (c *Client) GetBalances(ctx context.Context, accountID string) (*BalancesResponse, error) {
	token, err := c.auth.Token()
	if err != nil {
		return nil, err
	}

	var res BalancesResponse
	err = c.do(ctx, "balances", token, func(r *resty.Request) *resty.Request {
		return r.SetPathParam("account", accountID)
	}, http.MethodGet, "/accounts/{account}/balances", &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// ListTransactions fetches a single page of transactions booked between from and to
func (c *Client) ListTransactions(ctx context.Context, token, accountID string, from, to time.Time, continuationKey string) (*TransactionsPage, error) {
	var res TransactionsPage
	err := c.do(ctx, "transactions", token, func(r *resty.Request) *resty.Request {
		r = r.SetPathParam("account", accountID).
			SetQueryParam("date_from", from.Format(models.DateLayout)).
			SetQueryParam("date_to", to.Format(models.DateLayout))
		if continuationKey != "" {
			r = r.SetQueryParam("continuation_key", continuationKey)
		}
		return r
	}, http.MethodGet, "/accounts/{account}/transactions", &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// FetchAllTransactions follows continuation keys until the feed is exhausted.
// Pages are fetched one after another with a single token.
func (c *Client) FetchAllTransactions(ctx context.Context, accountID string, from, to time.Time) ([]Transaction, error) {
	token, err := c.auth.Token()
	if err != nil {
		return nil, err
	}

	var (
		all []Transaction
		key string
	)
	for page := 0; ; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("transaction feed exceeded %d pages", maxPages)
		}
		res, err := c.ListTransactions(ctx, token, accountID, from, to, key)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page+1, err)
		}
		all = append(all, res.Transactions...)
		if res.ContinuationKey == "" {
			break
		}
		key = res.ContinuationKey
	}

	c.log.Infof("Fetched %d transactions for %s..%s", len(all), from.Format(models.DateLayout), to.Format(models.DateLayout))
	return all, nil
}
