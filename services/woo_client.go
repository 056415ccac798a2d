package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/k0go07022003/StripeWoocommerce-Sync/models"
)

const wooAPIPath = "/wp-json/wc/v3/"

// WooAPIError carries a non-success response from the WooCommerce REST
// API, preserved for diagnostics in order_creation failures.
type WooAPIError struct {
	StatusCode int
	Body       string
}

func (e *WooAPIError) Error() string {
	return fmt.Sprintf("woocommerce api returned %d: %s", e.StatusCode, e.Body)
}

// WooService talks to the WooCommerce REST v3 API with consumer
// key/secret auth. Calls are bounded by the client timeout; timeouts and
// connection failures get a short bounded retry before surfacing.
type WooService struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client
	retryAttempts  int
	retryBackoff   time.Duration
}

func NewWooService(baseURL, consumerKey, consumerSecret string, timeout time.Duration) *WooService {
	return &WooService{
		baseURL:        strings.TrimRight(baseURL, "/"),
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		httpClient:     &http.Client{Timeout: timeout},
		retryAttempts:  3,
		retryBackoff:   500 * time.Millisecond,
	}
}

// FindCustomerByEmail returns the customer registered under the email,
// or nil when none exists.
func (s *WooService) FindCustomerByEmail(ctx context.Context, email string) (*models.WooCustomer, error) {
	query := url.Values{"email": {email}, "per_page": {"1"}}
	var customers []models.WooCustomer
	if err := s.do(ctx, http.MethodGet, "customers", query, nil, &customers); err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, nil
	}
	return &customers[0], nil
}

func (s *WooService) CreateCustomer(ctx context.Context, email, firstName string) (*models.WooCustomer, error) {
	payload := map[string]string{"email": email, "first_name": firstName}
	var customer models.WooCustomer
	if err := s.do(ctx, http.MethodPost, "customers", nil, payload, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// ListOrdersAfter returns one page of orders created after the cutoff.
func (s *WooService) ListOrdersAfter(ctx context.Context, after time.Time, page, perPage int) ([]models.WooOrder, error) {
	query := url.Values{
		"after":    {after.UTC().Format(time.RFC3339)},
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	var orders []models.WooOrder
	if err := s.do(ctx, http.MethodGet, "orders", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *WooService) GetOrder(ctx context.Context, orderID int64) (*models.WooOrder, error) {
	var order models.WooOrder
	if err := s.do(ctx, http.MethodGet, "orders/"+strconv.FormatInt(orderID, 10), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *WooService) CreateOrder(ctx context.Context, req *models.WooOrderRequest) (*models.WooOrder, error) {
	var order models.WooOrder
	if err := s.do(ctx, http.MethodPost, "orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListProducts returns one page of published products.
func (s *WooService) ListProducts(ctx context.Context, page, perPage int) ([]models.WooProduct, error) {
	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
		"status":   {"publish"},
	}
	var products []models.WooProduct
	if err := s.do(ctx, http.MethodGet, "products", query, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// ListAllProducts walks every page of published products, capped at
// maxPages.
func (s *WooService) ListAllProducts(ctx context.Context, perPage, maxPages int) ([]models.WooProduct, error) {
	return fetchPages(maxPages, func(page int) ([]models.WooProduct, error) {
		return s.ListProducts(ctx, page, perPage)
	})
}

func (s *WooService) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("consumer_key", s.consumerKey)
	query.Set("consumer_secret", s.consumerSecret)
	endpoint := s.baseURL + wooAPIPath + path + "?" + query.Encode()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if IsTransient(err) && attempt < s.retryAttempts {
				time.Sleep(s.retryBackoff * time.Duration(attempt))
				continue
			}
			return fmt.Errorf("woocommerce request failed: %w", err)
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read woocommerce response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &WooAPIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("failed to decode woocommerce response: %w", err)
			}
		}
		return nil
	}
	return fmt.Errorf("woocommerce request failed: %w", lastErr)
}

// IsTransient reports whether err is a timeout or connection failure
// worth one more attempt.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}
