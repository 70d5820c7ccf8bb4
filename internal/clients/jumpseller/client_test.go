package jumpseller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liliapp-bi-service/internal/apperrors"
	"liliapp-bi-service/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewClient(server.URL, "store@liliapp.cl", "token-123", 5*time.Second, 100)
	return client, server
}

func TestGetOrdersDecodesEnvelopes(t *testing.T) {
	var gotPath, gotQuery string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		login, token, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "store@liliapp.cl", login)
		assert.Equal(t, "token-123", token)
		fmt.Fprint(w, `[{"order":{"id":101,"total":45990,"status":"paid"}},{"order":{"id":102,"total":12500,"status":"paid"}}]`)
	})

	orders, err := client.GetOrders(context.Background(), 2, 50, "paid")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "/orders/status/paid.json", gotPath)
	assert.Equal(t, "limit=50&page=2", gotQuery)
	assert.Equal(t, int64(101), orders[0].ID)
	assert.Equal(t, 45990.0, orders[0].Total)
}

func TestGetOrdersWithoutStatusHitsBaseEndpoint(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `[]`)
	})

	orders, err := client.GetOrders(context.Background(), 1, 20, "")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, "/orders.json", gotPath)
}

func TestGetOrdersUpstreamErrorWrapsSourceFetch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
	})

	_, err := client.GetOrders(context.Background(), 3, 50, "paid")
	require.Error(t, err)

	var fetchErr *apperrors.SourceFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "order", fetchErr.Entity)
	assert.Equal(t, 3, fetchErr.Page)
	assert.Equal(t, http.StatusUnauthorized, fetchErr.StatusCode)
}

func TestFetchAllOrdersStopsOnShortPage(t *testing.T) {
	pages := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		pages++
		page := r.URL.Query().Get("page")
		if page == "1" {
			// full page keeps pagination going
			w.Write([]byte(fullOrderPage(t, defaultPageSize)))
			return
		}
		fmt.Fprint(w, `[{"order":{"id":9001}}]`)
	})

	orders, err := client.FetchAllOrders(context.Background(), "paid")
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	assert.Len(t, orders, defaultPageSize+1)
}

func TestFetchAllOrdersPropagatesMidPaginationError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			w.Write([]byte(fullOrderPage(t, defaultPageSize)))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.FetchAllOrders(context.Background(), "paid")
	var fetchErr *apperrors.SourceFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 2, fetchErr.Page)
}

func TestGetProductsDecodesNestedCollections(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"product":{"id":55,"name":"Gasfitería urgente","price":29990,"categories":[{"id":7,"name":"Hogar"}],"variants":[{"id":1,"price":29990,"options":[{"name":"Comuna","value":"Ñuñoa"}]}]}}]`)
	})

	products, err := client.GetProducts(context.Background(), 1, 50, "available")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Gasfitería urgente", products[0].Name)
	require.Len(t, products[0].Categories, 1)
	assert.Equal(t, int64(7), products[0].Categories[0].ID)
	require.Len(t, products[0].Variants, 1)
	assert.Equal(t, "Ñuñoa", products[0].Variants[0].Options[0].Value)
}

func TestCreateCategorySendsEnvelopePayload(t *testing.T) {
	var gotBody string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		fmt.Fprint(w, `{"category":{"id":42,"name":"Electricidad","parent_id":7}}`)
	})

	parent := int64(7)
	category, err := client.CreateCategory(context.Background(), "Electricidad", &parent)
	require.NoError(t, err)
	assert.Equal(t, int64(42), category.ID)
	assert.JSONEq(t, `{"category":{"name":"Electricidad","parent_id":7}}`, gotBody)
}

func TestUpdateCategorySendsEnvelopePayload(t *testing.T) {
	var gotPath, gotBody string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		fmt.Fprint(w, `{"category":{"id":42,"name":"Hogar y Jardín"}}`)
	})

	category, err := client.UpdateCategory(context.Background(), 42, "Hogar y Jardín")
	require.NoError(t, err)
	assert.Equal(t, "/categories/42.json", gotPath)
	assert.Equal(t, "Hogar y Jardín", category.Name)
	assert.JSONEq(t, `{"category":{"name":"Hogar y Jardín"}}`, gotBody)
}

func TestDeleteCategoryToleratesEmptyBody(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteCategory(context.Background(), 42))
	assert.Equal(t, "/categories/42.json", gotPath)
}

func TestUpdateCustomerSendsEnvelopePayload(t *testing.T) {
	var gotBody string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		fmt.Fprint(w, `{"customer":{"id":42,"email":"nuevo@x.cl"}}`)
	})

	customer, err := client.UpdateCustomer(context.Background(), 42, map[string]interface{}{"email": "nuevo@x.cl"})
	require.NoError(t, err)
	assert.Equal(t, "nuevo@x.cl", customer.Email)
	assert.JSONEq(t, `{"customer":{"email":"nuevo@x.cl"}}`, gotBody)
}

func TestCountOrdersParsesCountResource(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"count":1337}`)
	})

	count, err := client.CountOrders(context.Background(), "paid")
	require.NoError(t, err)
	assert.Equal(t, 1337, count)
	assert.Equal(t, "/orders/status/paid/count.json", gotPath)
}

func TestStreamOrdersInvokesCallbackPerOrder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"order":{"id":1}},{"order":{"id":2}},{"order":{"id":3}}]`)
	})

	var seen []int64
	err := client.StreamOrders(context.Background(), "paid", func(o models.RawOrder) error {
		seen = append(seen, o.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, seen)
}

func TestStreamOrdersStopsOnCallbackError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"order":{"id":1}},{"order":{"id":2}}]`)
	})

	calls := 0
	err := client.StreamOrders(context.Background(), "paid", func(o models.RawOrder) error {
		calls++
		return errors.New("sink closed")
	})
	assert.EqualError(t, err, "sink closed")
	assert.Equal(t, 1, calls)
}

func fullOrderPage(t *testing.T, size int) string {
	t.Helper()
	page := "["
	for i := 0; i < size; i++ {
		if i > 0 {
			page += ","
		}
		page += fmt.Sprintf(`{"order":{"id":%d}}`, i+1)
	}
	return page + "]"
}
