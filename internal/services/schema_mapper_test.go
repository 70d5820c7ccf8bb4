package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liliapp-bi-service/internal/models"
)

func fixedClockMapper(t *testing.T) (*SchemaMapper, time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	return &SchemaMapper{now: func() time.Time { return now }}, now
}

func sampleRawOrder() models.RawOrder {
	return models.RawOrder{
		ID:                    7001,
		Total:                 45990,
		StatusEnum:            "paid",
		CreatedAt:             "2025-03-10 14:22:05 UTC",
		CompletedAt:           "2025-03-10 14:30:41 UTC",
		PaymentMethodType:     "webpay",
		PaymentNotificationID: "tx-889",
		Customer: &models.RawCustomer{
			ID:       42,
			FullName: "María José Rojas Pinto",
			Email:    "maria.rojas@example.cl",
			Phone:    "987654321",
			RUT:      "12.345.678-9",
		},
		ShippingAddress: &models.RawShippingAddress{
			Address:      "Av. Providencia",
			StreetNumber: "1234",
			Municipality: "Providencia",
			Region:       "Región Metropolitana",
			Complement:   "Depto 5B",
		},
		Products: []models.RawOrderProduct{
			{ID: 55, Name: "Gasfitería urgente", Quantity: 1, Price: 45990},
		},
		AdditionalFields: []models.RawAdditionalField{
			{Label: "Nombre de quien recibirá al profesional", Value: "Pedro Rojas"},
		},
	}
}

func TestMapOrderFansOutAllDocuments(t *testing.T) {
	mapper, now := fixedClockMapper(t)

	mapped, ok := mapper.MapOrder(sampleRawOrder())
	require.True(t, ok)

	assert.Equal(t, "42", mapped.User.ID)
	assert.Equal(t, "maria.rojas@example.cl", mapped.User.Email)
	assert.Equal(t, "+56987654321", mapped.User.Phone)
	assert.Equal(t, "customer", mapped.User.Role)

	assert.Equal(t, "María", mapped.Profile.FirstName)
	assert.Equal(t, "José Rojas Pinto", mapped.Profile.LastName)
	assert.True(t, mapped.Profile.RUTVerified)
	assert.Equal(t, 45990.0, mapped.Profile.TotalSpending)
	assert.Equal(t, 1, mapped.Profile.ServiceHistoryCount)
	assert.Equal(t, now, *mapped.Profile.UpdatedAt)

	assert.Equal(t, "42", mapped.Address.OwnerID)
	assert.Equal(t, "Av. Providencia", mapped.Address.Street)
	assert.Equal(t, "Providencia", mapped.Address.Commune)

	assert.Equal(t, "7001", mapped.Order.ID)
	assert.Equal(t, "42", mapped.Order.UserID)
	assert.Equal(t, mapped.Address.ID, mapped.Order.AddressID)
	assert.Equal(t, "paid", mapped.Order.Status)
	require.Len(t, mapped.Order.Items, 1)
	assert.Equal(t, "55", mapped.Order.Items[0].ServiceID)
	assert.Equal(t, "webpay", mapped.Order.PaymentDetails.Type)
	assert.Equal(t, "tx-889", mapped.Order.PaymentDetails.TransactionID)
	assert.Equal(t, "Depto 5B", mapped.Order.ServiceAddress.Instructions)
	assert.Equal(t, "Pedro Rojas", mapped.Order.ContactOnSite.Name)
	assert.Equal(t, "+56987654321", mapped.Order.ContactOnSite.Phone)
}

func TestMapOrderRejectsMissingCustomer(t *testing.T) {
	mapper, _ := fixedClockMapper(t)

	raw := sampleRawOrder()
	raw.Customer = nil
	mapped, ok := mapper.MapOrder(raw)
	assert.False(t, ok)
	assert.Nil(t, mapped)

	raw = sampleRawOrder()
	raw.Customer.ID = 0
	_, ok = mapper.MapOrder(raw)
	assert.False(t, ok)
}

func TestMapOrderStatusHistorySynthesis(t *testing.T) {
	mapper, _ := fixedClockMapper(t)

	mapped, ok := mapper.MapOrder(sampleRawOrder())
	require.True(t, ok)
	require.Len(t, mapped.Order.StatusHistory, 2)
	assert.Equal(t, "pending_payment", mapped.Order.StatusHistory[0].Status)
	assert.Equal(t, "customer", mapped.Order.StatusHistory[0].UpdatedBy)
	assert.Equal(t, "paid", mapped.Order.StatusHistory[1].Status)
	assert.Equal(t, "system", mapped.Order.StatusHistory[1].UpdatedBy)

	raw := sampleRawOrder()
	raw.CompletedAt = ""
	mapped, ok = mapper.MapOrder(raw)
	require.True(t, ok)
	require.Len(t, mapped.Order.StatusHistory, 1)
	assert.Equal(t, "pending_payment", mapped.Order.StatusHistory[0].Status)
}

func TestMapOrderContactFallback(t *testing.T) {
	mapper, _ := fixedClockMapper(t)

	raw := sampleRawOrder()
	raw.AdditionalFields = nil
	mapped, ok := mapper.MapOrder(raw)
	require.True(t, ok)
	assert.Equal(t, "No especificado", mapped.Order.ContactOnSite.Name)
	assert.Equal(t, "+56987654321", mapped.Order.ContactOnSite.Phone)
}

func TestMapOrderUnknownStatusAndMissingShipping(t *testing.T) {
	mapper, _ := fixedClockMapper(t)

	raw := sampleRawOrder()
	raw.StatusEnum = ""
	raw.ShippingAddress = nil
	mapped, ok := mapper.MapOrder(raw)
	require.True(t, ok)
	assert.Equal(t, "unknown", mapped.Order.Status)
	assert.Empty(t, mapped.Address.Street)
	assert.NotEmpty(t, mapped.Address.ID)
}

func TestParseTimestampLayouts(t *testing.T) {
	withZone := ParseTimestamp("2025-03-10 14:22:05 UTC")
	require.NotNil(t, withZone)
	assert.Equal(t, 2025, withZone.Year())

	withoutZone := ParseTimestamp("2025-03-10 14:22:05")
	require.NotNil(t, withoutZone)

	assert.Nil(t, ParseTimestamp(""))
	assert.Nil(t, ParseTimestamp("10/03/2025"))
}

func TestAddressIDIsStableAndNormalized(t *testing.T) {
	a := AddressID("42", "Av. Providencia", "Providencia")
	b := AddressID("42", "  av. providencia ", "PROVIDENCIA")
	assert.Equal(t, a, b)
	assert.True(t, len(a) > len("addr_"))
	assert.Contains(t, a, "addr_")

	other := AddressID("43", "Av. Providencia", "Providencia")
	assert.NotEqual(t, a, other)
}

func TestMapOrderToCustomerDenormalizes(t *testing.T) {
	mapper, _ := fixedClockMapper(t)

	customer, ok := mapper.MapOrderToCustomer(sampleRawOrder())
	require.True(t, ok)
	assert.Equal(t, "42", customer.ID)
	assert.Equal(t, "María", customer.FirstName)
	require.Len(t, customer.Addresses, 1)
	assert.Equal(t, 45990.0, customer.TotalSpending)
	assert.Equal(t, 1, customer.ServiceHistoryCount)
	// completed_at wins as last activity marker
	assert.Equal(t, 30, customer.LastLoginAt.Minute())

	raw := sampleRawOrder()
	raw.Customer = nil
	_, ok = mapper.MapOrderToCustomer(raw)
	assert.False(t, ok)
}

func TestMapProductSplitsCatalog(t *testing.T) {
	mapper, _ := fixedClockMapper(t)

	raw := models.RawProduct{
		ID:          55,
		Name:        "Gasfitería urgente",
		Description: "<p>Reparación de <b>fugas</b> y filtraciones</p>",
		Price:       29990,
		Status:      "available",
		CreatedAt:   "2024-11-01 09:00:00 UTC",
		Categories: []models.RawCategory{
			{ID: 7, Name: "Hogar", Description: "Servicios del hogar", ImageURL: "https://cdn/img7.png"},
			{ID: 8, Name: "Gasfitería"},
			{ID: 9, Name: "Urgencias"},
		},
		Variants: []models.RawProductVariant{
			{ID: 1, Price: 29990, SKU: "GAS-01", Stock: 10, Options: []models.RawVariantOption{{Name: "Comuna", Value: "Ñuñoa"}}},
		},
	}

	mapped := mapper.MapProduct(raw)

	assert.Equal(t, "55", mapped.Service.ID)
	assert.Equal(t, "Reparación de fugas y filtraciones", mapped.Service.Description)
	assert.Equal(t, "7", mapped.Service.CategoryID)
	assert.True(t, mapped.Service.HasVariants)
	assert.True(t, mapped.Service.HasSubcategories)

	require.NotNil(t, mapped.Category)
	assert.Equal(t, "7", mapped.Category.ID)
	assert.Equal(t, "Hogar", mapped.Category.Name)

	require.Len(t, mapped.Subcategories, 2)
	assert.Equal(t, "8", mapped.Subcategories[0].ID)
	assert.Equal(t, "55", mapped.Subcategories[0].ServiceID)

	require.Len(t, mapped.Variants, 1)
	assert.Equal(t, "GAS-01", mapped.Variants[0].SKU)
	assert.Equal(t, "Ñuñoa", mapped.Variants[0].Options[0].Value)
}

func TestStripHTMLSeparatesParagraphs(t *testing.T) {
	cases := map[string]struct {
		html string
		want string
	}{
		"adjacent paragraphs": {
			html: "<p>Primer parrafo.</p><p>Segundo parrafo.</p>",
			want: "Primer parrafo.\nSegundo parrafo.",
		},
		"line breaks": {
			html: "<p>Incluye:<br>materiales<br/>y traslado</p>",
			want: "Incluye:\nmateriales\ny traslado",
		},
		"list items": {
			html: "<ul><li>Diagnóstico</li><li>Reparación</li></ul>",
			want: "Diagnóstico\nReparación",
		},
		"intra-paragraph whitespace collapses": {
			html: "<p>Servicio   a\n\tdomicilio</p><p>Santiago</p>",
			want: "Servicio a domicilio\nSantiago",
		},
		"bare text": {
			html: "Sin markup",
			want: "Sin markup",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripHTML(tc.html))
		})
	}
}

func TestMapProductWithoutCategoriesOrVariants(t *testing.T) {
	mapper, _ := fixedClockMapper(t)

	mapped := mapper.MapProduct(models.RawProduct{ID: 60, Name: "Limpieza"})
	assert.Nil(t, mapped.Category)
	assert.Empty(t, mapped.Service.CategoryID)
	assert.False(t, mapped.Service.HasVariants)
	assert.False(t, mapped.Service.HasSubcategories)
	assert.Empty(t, mapped.Subcategories)
}
