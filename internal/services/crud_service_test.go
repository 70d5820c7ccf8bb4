package services

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liliapp-bi-service/internal/apperrors"
	"liliapp-bi-service/internal/store"
)

func newTestCRUD() (*CRUDService, *store.MemoryStore) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	mem := store.NewMemoryStore()
	return NewCRUDService(mem, logger), mem
}

func TestCRUDListAndGet(t *testing.T) {
	svc, mem := newTestCRUD()
	mem.Seed("services", "55", map[string]interface{}{"name": "Gasfitería"})
	mem.Seed("services", "56", map[string]interface{}{"name": "Electricidad"})

	docs, err := svc.List(context.Background(), "services")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	doc, err := svc.Get(context.Background(), "services", "55")
	require.NoError(t, err)
	assert.Equal(t, "Gasfitería", doc["name"])
	assert.Equal(t, "55", doc["id"])
}

func TestCRUDGetMissing(t *testing.T) {
	svc, _ := newTestCRUD()

	_, err := svc.Get(context.Background(), "services", "999")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCRUDCreateWithExplicitID(t *testing.T) {
	svc, mem := newTestCRUD()

	id, err := svc.Create(context.Background(), "categories", map[string]interface{}{
		"id":   "10",
		"name": "Hogar",
	})
	require.NoError(t, err)
	assert.Equal(t, "10", id)

	doc, err := mem.GetDocument(context.Background(), "categories", "10")
	require.NoError(t, err)
	assert.Equal(t, "Hogar", doc["name"])
	assert.NotContains(t, doc, "id")
}

func TestCRUDCreateGeneratesID(t *testing.T) {
	svc, _ := newTestCRUD()

	id, err := svc.Create(context.Background(), "categories", map[string]interface{}{"name": "Jardín"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestCRUDCreateDuplicateID(t *testing.T) {
	svc, mem := newTestCRUD()
	mem.Seed("categories", "10", map[string]interface{}{"name": "Hogar"})

	_, err := svc.Create(context.Background(), "categories", map[string]interface{}{
		"id":   "10",
		"name": "Hogar otra vez",
	})
	var ve *apperrors.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestCRUDUpdateMergesFields(t *testing.T) {
	svc, mem := newTestCRUD()
	mem.Seed("services", "55", map[string]interface{}{"name": "Gasfitería", "price": 25000.0})

	err := svc.Update(context.Background(), "services", "55", map[string]interface{}{"price": 29990.0})
	require.NoError(t, err)

	doc, err := mem.GetDocument(context.Background(), "services", "55")
	require.NoError(t, err)
	assert.Equal(t, 29990.0, doc["price"])
	assert.Equal(t, "Gasfitería", doc["name"])
}

func TestCRUDUpdateIDMismatch(t *testing.T) {
	svc, mem := newTestCRUD()
	mem.Seed("services", "55", map[string]interface{}{"name": "Gasfitería"})

	err := svc.Update(context.Background(), "services", "55", map[string]interface{}{
		"id":   "56",
		"name": "Otro",
	})
	var ve *apperrors.ValidationError
	require.ErrorAs(t, err, &ve)

	// nothing was written
	doc, err := mem.GetDocument(context.Background(), "services", "55")
	require.NoError(t, err)
	assert.Equal(t, "Gasfitería", doc["name"])
}

func TestCRUDUpdateMissingDocument(t *testing.T) {
	svc, _ := newTestCRUD()

	err := svc.Update(context.Background(), "services", "999", map[string]interface{}{"name": "x"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCRUDDelete(t *testing.T) {
	svc, mem := newTestCRUD()
	mem.Seed("customers", "42", map[string]interface{}{"email": "a@example.com"})

	require.NoError(t, svc.Delete(context.Background(), "customers", "42"))

	_, err := mem.GetDocument(context.Background(), "customers", "42")
	assert.True(t, apperrors.IsNotFound(err))

	err = svc.Delete(context.Background(), "customers", "42")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCRUDNestedPaths(t *testing.T) {
	svc, mem := newTestCRUD()
	mem.Seed("services/55/variants", "900", map[string]interface{}{"sku": "GAS-01"})

	docs, err := svc.List(context.Background(), "services/55/variants")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "GAS-01", docs[0]["sku"])

	addrs, err := svc.List(context.Background(), "users/42/customer_profiles/42/addresses")
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestCRUDRejectsUnknownPath(t *testing.T) {
	svc, _ := newTestCRUD()

	var ve *apperrors.ValidationError
	_, err := svc.List(context.Background(), "secrets")
	assert.ErrorAs(t, err, &ve)

	_, err = svc.List(context.Background(), "services/55/images")
	assert.ErrorAs(t, err, &ve)
}
