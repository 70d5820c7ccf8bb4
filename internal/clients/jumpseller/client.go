package jumpseller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"liliapp-bi-service/internal/apperrors"
	"liliapp-bi-service/internal/models"
)

const defaultPageSize = 100

// Client talks to the Jumpseller Admin API using basic auth.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	login       string
	authToken   string
	rateLimiter *rate.Limiter
}

// NewClient creates a Jumpseller API client. rps caps outbound requests per
// second; Jumpseller throttles aggressively above 2/s.
func NewClient(baseURL, login, authToken string, timeout time.Duration, rps float64) *Client {
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		login:       login,
		authToken:   authToken,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// TestConnection verifies credentials against the orders count endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.CountOrders(ctx, "paid")
	return err
}

// GetOrders fetches one page of orders. status filters via the
// orders/status/{status} sub-resource; empty status fetches all.
func (c *Client) GetOrders(ctx context.Context, page, limit int, status string) ([]models.RawOrder, error) {
	endpoint := "orders"
	if status != "" {
		endpoint = "orders/status/" + status
	}
	body, err := c.doRequest(ctx, http.MethodGet, endpoint, pageParams(page, limit), nil, "order", page)
	if err != nil {
		return nil, err
	}
	var envelopes []models.OrderEnvelope
	if err := json.Unmarshal(body, &envelopes); err != nil {
		return nil, &apperrors.SourceFetchError{Entity: "order", Page: page, Err: fmt.Errorf("decode orders page: %w", err)}
	}
	orders := make([]models.RawOrder, 0, len(envelopes))
	for _, e := range envelopes {
		if e.Order != nil {
			orders = append(orders, *e.Order)
		}
	}
	return orders, nil
}

// GetOrder fetches a single order by its upstream ID.
func (c *Client) GetOrder(ctx context.Context, id int64) (*models.RawOrder, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("orders/%d", id), nil, nil, "order", 0)
	if err != nil {
		return nil, err
	}
	var envelope models.OrderEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &apperrors.SourceFetchError{Entity: "order", Err: fmt.Errorf("decode order %d: %w", id, err)}
	}
	return envelope.Order, nil
}

// GetProducts fetches one page of products, optionally filtered by status.
func (c *Client) GetProducts(ctx context.Context, page, limit int, status string) ([]models.RawProduct, error) {
	endpoint := "products"
	if status != "" {
		endpoint = "products/status/" + status
	}
	body, err := c.doRequest(ctx, http.MethodGet, endpoint, pageParams(page, limit), nil, "product", page)
	if err != nil {
		return nil, err
	}
	var envelopes []models.ProductEnvelope
	if err := json.Unmarshal(body, &envelopes); err != nil {
		return nil, &apperrors.SourceFetchError{Entity: "product", Page: page, Err: fmt.Errorf("decode products page: %w", err)}
	}
	products := make([]models.RawProduct, 0, len(envelopes))
	for _, e := range envelopes {
		if e.Product != nil {
			products = append(products, *e.Product)
		}
	}
	return products, nil
}

// GetProduct fetches a single product by its upstream ID.
func (c *Client) GetProduct(ctx context.Context, id int64) (*models.RawProduct, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("products/%d", id), nil, nil, "product", 0)
	if err != nil {
		return nil, err
	}
	var envelope models.ProductEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &apperrors.SourceFetchError{Entity: "product", Err: fmt.Errorf("decode product %d: %w", id, err)}
	}
	return envelope.Product, nil
}

// GetCategories fetches one page of categories.
func (c *Client) GetCategories(ctx context.Context, page, limit int) ([]models.RawCategory, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "categories", pageParams(page, limit), nil, "category", page)
	if err != nil {
		return nil, err
	}
	var envelopes []models.CategoryEnvelope
	if err := json.Unmarshal(body, &envelopes); err != nil {
		return nil, &apperrors.SourceFetchError{Entity: "category", Page: page, Err: fmt.Errorf("decode categories page: %w", err)}
	}
	categories := make([]models.RawCategory, 0, len(envelopes))
	for _, e := range envelopes {
		if e.Category != nil {
			categories = append(categories, *e.Category)
		}
	}
	return categories, nil
}

// CreateCategory creates a category upstream. parentID nests it under an
// existing category when non-nil.
func (c *Client) CreateCategory(ctx context.Context, name string, parentID *int64) (*models.RawCategory, error) {
	payload := map[string]interface{}{"name": name}
	if parentID != nil {
		payload["parent_id"] = *parentID
	}
	body, err := c.doRequest(ctx, http.MethodPost, "categories", nil, map[string]interface{}{"category": payload}, "category", 0)
	if err != nil {
		return nil, err
	}
	var envelope models.CategoryEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &apperrors.SourceFetchError{Entity: "category", Err: fmt.Errorf("decode created category: %w", err)}
	}
	return envelope.Category, nil
}

// UpdateCategory updates a category's name upstream.
func (c *Client) UpdateCategory(ctx context.Context, id int64, name string) (*models.RawCategory, error) {
	payload := map[string]interface{}{"category": map[string]interface{}{"name": name}}
	body, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("categories/%d", id), nil, payload, "category", 0)
	if err != nil {
		return nil, err
	}
	var envelope models.CategoryEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &apperrors.SourceFetchError{Entity: "category", Err: fmt.Errorf("decode updated category %d: %w", id, err)}
	}
	return envelope.Category, nil
}

// DeleteCategory removes a category upstream. The API sometimes answers
// 204 with an empty body, so the response is not decoded.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	_, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("categories/%d", id), nil, nil, "category", 0)
	return err
}

// UpdateCustomer updates customer fields upstream.
func (c *Client) UpdateCustomer(ctx context.Context, id int64, fields map[string]interface{}) (*models.RawCustomer, error) {
	payload := map[string]interface{}{"customer": fields}
	body, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("customers/%d", id), nil, payload, "customer", 0)
	if err != nil {
		return nil, err
	}
	var envelope models.CustomerEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &apperrors.SourceFetchError{Entity: "customer", Err: fmt.Errorf("decode updated customer %d: %w", id, err)}
	}
	return envelope.Customer, nil
}

// DeleteCustomer removes a customer upstream.
func (c *Client) DeleteCustomer(ctx context.Context, id int64) error {
	_, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("customers/%d", id), nil, nil, "customer", 0)
	return err
}

// GetCustomers fetches one page of customers.
func (c *Client) GetCustomers(ctx context.Context, page, limit int) ([]models.RawCustomer, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "customers", pageParams(page, limit), nil, "customer", page)
	if err != nil {
		return nil, err
	}
	var envelopes []models.CustomerEnvelope
	if err := json.Unmarshal(body, &envelopes); err != nil {
		return nil, &apperrors.SourceFetchError{Entity: "customer", Page: page, Err: fmt.Errorf("decode customers page: %w", err)}
	}
	customers := make([]models.RawCustomer, 0, len(envelopes))
	for _, e := range envelopes {
		if e.Customer != nil {
			customers = append(customers, *e.Customer)
		}
	}
	return customers, nil
}

// CountOrders returns the upstream order count, filtered by status when set.
func (c *Client) CountOrders(ctx context.Context, status string) (int, error) {
	endpoint := "orders/count"
	if status != "" {
		endpoint = "orders/status/" + status + "/count"
	}
	return c.count(ctx, endpoint, "order")
}

// CountProducts returns the upstream product count.
func (c *Client) CountProducts(ctx context.Context) (int, error) {
	return c.count(ctx, "products/count", "product")
}

// CountCustomers returns the upstream customer count.
func (c *Client) CountCustomers(ctx context.Context) (int, error) {
	return c.count(ctx, "customers/count", "customer")
}

func (c *Client) count(ctx context.Context, endpoint, entity string) (int, error) {
	body, err := c.doRequest(ctx, http.MethodGet, endpoint, nil, nil, entity, 0)
	if err != nil {
		return 0, err
	}
	var result models.EntityCount
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, &apperrors.SourceFetchError{Entity: entity, Err: fmt.Errorf("decode count: %w", err)}
	}
	return result.Count, nil
}

// FetchAllOrders walks every page of the given status until a short page
// signals the end of the collection.
func (c *Client) FetchAllOrders(ctx context.Context, status string) ([]models.RawOrder, error) {
	var all []models.RawOrder
	for page := 1; ; page++ {
		orders, err := c.GetOrders(ctx, page, defaultPageSize, status)
		if err != nil {
			return nil, err
		}
		all = append(all, orders...)
		if len(orders) < defaultPageSize {
			return all, nil
		}
	}
}

// FetchAllProducts walks every page of the given status.
func (c *Client) FetchAllProducts(ctx context.Context, status string) ([]models.RawProduct, error) {
	var all []models.RawProduct
	for page := 1; ; page++ {
		products, err := c.GetProducts(ctx, page, defaultPageSize, status)
		if err != nil {
			return nil, err
		}
		all = append(all, products...)
		if len(products) < defaultPageSize {
			return all, nil
		}
	}
}

// FetchAllCategories walks every category page.
func (c *Client) FetchAllCategories(ctx context.Context) ([]models.RawCategory, error) {
	var all []models.RawCategory
	for page := 1; ; page++ {
		categories, err := c.GetCategories(ctx, page, defaultPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, categories...)
		if len(categories) < defaultPageSize {
			return all, nil
		}
	}
}

// FetchAllCustomers walks every customer page.
func (c *Client) FetchAllCustomers(ctx context.Context) ([]models.RawCustomer, error) {
	var all []models.RawCustomer
	for page := 1; ; page++ {
		customers, err := c.GetCustomers(ctx, page, defaultPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, customers...)
		if len(customers) < defaultPageSize {
			return all, nil
		}
	}
}

// StreamOrders pages through orders and hands each one to fn as it arrives,
// so callers can emit line-delimited output without buffering the catalog.
func (c *Client) StreamOrders(ctx context.Context, status string, fn func(models.RawOrder) error) error {
	for page := 1; ; page++ {
		orders, err := c.GetOrders(ctx, page, defaultPageSize, status)
		if err != nil {
			return err
		}
		for _, o := range orders {
			if err := fn(o); err != nil {
				return err
			}
		}
		if len(orders) < defaultPageSize {
			return nil
		}
	}
}

// StreamProducts pages through products and hands each one to fn.
func (c *Client) StreamProducts(ctx context.Context, status string, fn func(models.RawProduct) error) error {
	for page := 1; ; page++ {
		products, err := c.GetProducts(ctx, page, defaultPageSize, status)
		if err != nil {
			return err
		}
		for _, p := range products {
			if err := fn(p); err != nil {
				return err
			}
		}
		if len(products) < defaultPageSize {
			return nil
		}
	}
}

// StreamCategories pages through categories and hands each one to fn.
func (c *Client) StreamCategories(ctx context.Context, fn func(models.RawCategory) error) error {
	for page := 1; ; page++ {
		categories, err := c.GetCategories(ctx, page, defaultPageSize)
		if err != nil {
			return err
		}
		for _, cat := range categories {
			if err := fn(cat); err != nil {
				return err
			}
		}
		if len(categories) < defaultPageSize {
			return nil
		}
	}
}

func pageParams(page, limit int) url.Values {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	return params
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values, body interface{}, entity string, page int) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := fmt.Sprintf("%s/%s.json", c.baseURL, endpoint)
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.login, c.authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apperrors.SourceFetchError{Entity: entity, Page: page, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.SourceFetchError{Entity: entity, Page: page, Err: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &apperrors.SourceFetchError{
			Entity:     entity,
			Page:       page,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("jumpseller API error: %s", string(respBody)),
		}
	}

	return respBody, nil
}
