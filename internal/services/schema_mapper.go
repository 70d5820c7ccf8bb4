package services

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"liliapp-bi-service/internal/models"
)

// Upstream timestamps come as "2006-01-02 15:04:05 UTC"; some older records
// omit the zone suffix.
var timestampLayouts = []string{
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
}

const unspecifiedContact = "No especificado"

// contactFieldLabel is the checkout custom field carrying the on-site
// contact name.
const contactFieldLabel = "Nombre de quien recibirá al profesional"

// MappedOrder is the full fan-out of one upstream order: the identity
// record, its profile, the shipping address and the order itself.
type MappedOrder struct {
	User    models.User
	Profile models.CustomerProfile
	Address models.Address
	Order   models.Order
}

// SchemaMapper transforms raw Jumpseller records into the target document
// shapes. All mapping methods are pure except for the clock.
type SchemaMapper struct {
	now func() time.Time
}

// NewSchemaMapper creates a mapper using the wall clock.
func NewSchemaMapper() *SchemaMapper {
	return &SchemaMapper{now: time.Now}
}

// MapOrder fans one upstream order out into user/profile/address/order
// documents. Returns false when the order carries no resolvable customer;
// such records are skipped, never partially loaded.
func (m *SchemaMapper) MapOrder(raw models.RawOrder) (*MappedOrder, bool) {
	if raw.Customer == nil || raw.Customer.ID == 0 {
		return nil, false
	}

	userID := strconv.FormatInt(raw.Customer.ID, 10)
	orderID := strconv.FormatInt(raw.ID, 10)
	createdAt := ParseTimestamp(raw.CreatedAt)
	completedAt := ParseTimestamp(raw.CompletedAt)
	now := m.now()

	firstName, lastName := splitFullName(raw.Customer.FullName)

	var street, number, commune, region, instructions string
	if raw.ShippingAddress != nil {
		street = raw.ShippingAddress.Address
		number = raw.ShippingAddress.StreetNumber
		commune = raw.ShippingAddress.Municipality
		region = raw.ShippingAddress.Region
		instructions = raw.ShippingAddress.Complement
	}

	address := models.Address{
		ID:        AddressID(userID, street, commune),
		OwnerID:   userID,
		Alias:     "Principal",
		Street:    street,
		Number:    number,
		Commune:   commune,
		Region:    region,
		IsPrimary: true,
		TimesUsed: 1,
	}

	items := make([]models.OrderItem, 0, len(raw.Products))
	for _, p := range raw.Products {
		items = append(items, models.OrderItem{
			ServiceID:   strconv.FormatInt(p.ID, 10),
			ServiceName: p.Name,
			Quantity:    p.Quantity,
			Price:       p.Price,
		})
	}

	status := raw.StatusEnum
	if status == "" {
		status = "unknown"
	}

	mapped := &MappedOrder{
		User: models.User{
			ID:            userID,
			Email:         raw.Customer.Email,
			Phone:         chileanPhone(raw.Customer.Phone),
			AccountType:   "customer",
			AccountStatus: "active",
			Role:          "customer",
			CreatedAt:     createdAt,
			LastLoginAt:   createdAt,
		},
		Profile: models.CustomerProfile{
			ID:                   userID,
			UserID:               userID,
			FirstName:            firstName,
			LastName:             lastName,
			DisplayName:          raw.Customer.FullName,
			RUT:                  raw.Customer.RUT,
			RUTVerified:          raw.Customer.RUT != "",
			PrimaryAddressRegion: region,
			TotalSpending:        raw.Total,
			ServiceHistoryCount:  1,
			CreatedAt:            createdAt,
			UpdatedAt:            &now,
		},
		Address: address,
		Order: models.Order{
			ID:        orderID,
			UserID:    userID,
			AddressID: address.ID,
			Total:     raw.Total,
			Status:    status,
			CreatedAt: createdAt,
			UpdatedAt: &now,
			Items:     items,
			PaymentDetails: models.PaymentDetails{
				Type:          raw.PaymentMethodType,
				TransactionID: raw.PaymentNotificationID,
			},
			ServiceAddress: models.ServiceAddress{
				AddressID:    address.ID,
				Commune:      commune,
				Region:       region,
				Instructions: instructions,
			},
			ContactOnSite: extractContactOnSite(raw),
			StatusHistory: buildStatusHistory(createdAt, completedAt),
		},
	}
	return mapped, true
}

// MapOrderToCustomer produces the denormalized customer-centric variant of
// the same order: account, profile and address array in one document.
func (m *SchemaMapper) MapOrderToCustomer(raw models.RawOrder) (*models.Customer, bool) {
	mapped, ok := m.MapOrder(raw)
	if !ok {
		return nil, false
	}

	lastLogin := mapped.User.LastLoginAt
	if completedAt := ParseTimestamp(raw.CompletedAt); completedAt != nil {
		lastLogin = completedAt
	}

	return &models.Customer{
		ID:                  mapped.User.ID,
		Email:               mapped.User.Email,
		Phone:               mapped.User.Phone,
		FirstName:           mapped.Profile.FirstName,
		LastName:            mapped.Profile.LastName,
		RUT:                 mapped.Profile.RUT,
		Addresses:           []models.Address{mapped.Address},
		TotalSpending:       raw.Total,
		ServiceHistoryCount: 1,
		CreatedAt:           mapped.User.CreatedAt,
		LastLoginAt:         lastLogin,
	}, true
}

// ParseTimestamp parses an upstream timestamp string, returning nil when
// the value is empty or matches no known layout.
func ParseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// AddressID derives a stable document ID from the owner and the normalized
// street/commune pair, so re-running the pipeline never duplicates an
// address.
func AddressID(ownerID, street, commune string) string {
	key := fmt.Sprintf("%s|%s|%s",
		ownerID,
		strings.ToLower(strings.TrimSpace(street)),
		strings.ToLower(strings.TrimSpace(commune)),
	)
	sum := sha1.Sum([]byte(key))
	return "addr_" + hex.EncodeToString(sum[:])[:12]
}

func splitFullName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func chileanPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return "+56" + phone
}

func extractContactOnSite(raw models.RawOrder) models.ContactOnSite {
	name := unspecifiedContact
	for _, field := range raw.AdditionalFields {
		if field.Label == contactFieldLabel {
			name = field.Value
			break
		}
	}
	var phone string
	if raw.Customer != nil {
		phone = chileanPhone(raw.Customer.Phone)
	}
	return models.ContactOnSite{Name: name, Phone: phone}
}

// buildStatusHistory synthesizes the order lifecycle from the two
// timestamps the source exposes: creation implies pending_payment and
// completed_at is the payment confirmation.
func buildStatusHistory(createdAt, completedAt *time.Time) []models.StatusEvent {
	var history []models.StatusEvent
	if createdAt != nil {
		history = append(history, models.StatusEvent{
			Status:    "pending_payment",
			Timestamp: createdAt,
			UpdatedBy: "customer",
		})
	}
	if completedAt != nil {
		history = append(history, models.StatusEvent{
			Status:    "paid",
			Timestamp: completedAt,
			UpdatedBy: "system",
		})
	}
	return history
}
