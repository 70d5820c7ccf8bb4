package models

// Raw Jumpseller payloads. The upstream API wraps every record in an
// envelope object ({"order": {...}}, {"product": {...}}); the client
// unwraps those before handing records to the mapper.

// OrderEnvelope is one element of the upstream orders listing.
type OrderEnvelope struct {
	Order *RawOrder `json:"order"`
}

// ProductEnvelope is one element of the upstream products listing.
type ProductEnvelope struct {
	Product *RawProduct `json:"product"`
}

// CategoryEnvelope is one element of the upstream categories listing.
type CategoryEnvelope struct {
	Category *RawCategory `json:"category"`
}

// CustomerEnvelope is one element of the upstream customers listing.
type CustomerEnvelope struct {
	Customer *RawCustomer `json:"customer"`
}

// RawOrder is an order as Jumpseller returns it.
type RawOrder struct {
	ID                    int64                `json:"id"`
	Total                 float64              `json:"total"`
	StatusEnum            string               `json:"status_enum"`
	CreatedAt             string               `json:"created_at"`
	CompletedAt           string               `json:"completed_at"`
	PaymentMethodType     string               `json:"payment_method_type"`
	PaymentNotificationID string               `json:"payment_notification_id"`
	Customer              *RawCustomer         `json:"customer"`
	ShippingAddress       *RawShippingAddress  `json:"shipping_address"`
	Products              []RawOrderProduct    `json:"products"`
	AdditionalFields      []RawAdditionalField `json:"additional_fields"`
}

// RawCustomer is the customer block embedded in an order, or a standalone
// customer record from the customers endpoint.
type RawCustomer struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullname"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	RUT      string `json:"taxid"`
}

// RawShippingAddress is the shipping block embedded in an order.
type RawShippingAddress struct {
	Address      string `json:"address"`
	StreetNumber string `json:"street_number"`
	Municipality string `json:"municipality"`
	Region       string `json:"region"`
	Complement   string `json:"complement"`
}

// RawOrderProduct is one line item of an order.
type RawOrderProduct struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"qty"`
	Price    float64 `json:"price"`
}

// RawAdditionalField is a checkout custom field (label/value pair).
type RawAdditionalField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// RawProduct is a product as Jumpseller returns it.
type RawProduct struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       float64             `json:"price"`
	Discount    float64             `json:"discount"`
	Status      string              `json:"status"`
	CreatedAt   string              `json:"created_at"`
	Categories  []RawCategory       `json:"categories"`
	Variants    []RawProductVariant `json:"variants"`
	Images      []RawProductImage   `json:"images"`
}

// RawCategory is a category either embedded in a product or returned by
// the categories endpoint.
type RawCategory struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	ParentID    *int64 `json:"parent_id"`
}

// RawProductVariant is one variant embedded in a product.
type RawProductVariant struct {
	ID      int64              `json:"id"`
	Price   float64            `json:"price"`
	SKU     string             `json:"sku"`
	Stock   int                `json:"stock"`
	Options []RawVariantOption `json:"options"`
}

// RawVariantOption is a single option of a variant.
type RawVariantOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RawProductImage is one image embedded in a product.
type RawProductImage struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// EntityCount is the response of the upstream "count" sub-resources.
type EntityCount struct {
	Count int `json:"count"`
}
