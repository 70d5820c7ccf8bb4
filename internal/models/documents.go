package models

import "time"

// Target document shapes for the Firestore-style store. Each type carries a
// ToDoc method producing the map the loader writes; the document ID travels
// inside the map under "id" and is stripped by the loader when it becomes
// the document path.

// User is the identity record in the users collection. Created from the
// first order seen for a customer; the pipeline never deletes one.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	AccountType   string     `json:"accountType"`
	AccountStatus string     `json:"accountStatus"`
	Role          string     `json:"role"`
	CreatedAt     *time.Time `json:"createdAt"`
	LastLoginAt   *time.Time `json:"lastLoginAt"`
	IsDeleted     bool       `json:"isDeleted"`
}

func (u *User) ToDoc() map[string]interface{} {
	return map[string]interface{}{
		"id":            u.ID,
		"email":         u.Email,
		"phone":         u.Phone,
		"accountType":   u.AccountType,
		"accountStatus": u.AccountStatus,
		"role":          u.Role,
		"createdAt":     u.CreatedAt,
		"lastLoginAt":   u.LastLoginAt,
		"isDeleted":     u.IsDeleted,
	}
}

// CustomerProfile lives at users/{userId}/customer_profiles/{userId}.
// Owned by the ETL loader; spending and history counters are additive.
type CustomerProfile struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"userId"`
	FirstName            string     `json:"firstName"`
	LastName             string     `json:"lastName"`
	DisplayName          string     `json:"displayName"`
	RUT                  string     `json:"rut"`
	RUTVerified          bool       `json:"rutVerified"`
	PrimaryAddressRegion string     `json:"primaryAddressRegion"`
	TotalSpending        float64    `json:"totalSpending"`
	ServiceHistoryCount  int        `json:"serviceHistoryCount"`
	CreatedAt            *time.Time `json:"createdAt"`
	UpdatedAt            *time.Time `json:"updatedAt"`
}

func (p *CustomerProfile) ToDoc() map[string]interface{} {
	return map[string]interface{}{
		"id":                   p.ID,
		"userId":               p.UserID,
		"firstName":            p.FirstName,
		"lastName":             p.LastName,
		"displayName":          p.DisplayName,
		"rut":                  p.RUT,
		"rutVerified":          p.RUTVerified,
		"primaryAddressRegion": p.PrimaryAddressRegion,
		"totalSpending":        p.TotalSpending,
		"serviceHistoryCount":  p.ServiceHistoryCount,
		"metadata": map[string]interface{}{
			"createdAt": p.CreatedAt,
			"updatedAt": p.UpdatedAt,
		},
	}
}

// Address lives under the owning profile. The ID is derived from
// (owner, street, commune) so repeated shipping addresses collapse to one
// document across runs.
type Address struct {
	ID        string `json:"id"`
	OwnerID   string `json:"ownerId"`
	Alias     string `json:"alias"`
	Street    string `json:"street"`
	Number    string `json:"number"`
	Commune   string `json:"commune"`
	Region    string `json:"region"`
	IsPrimary bool   `json:"isPrimary"`
	TimesUsed int    `json:"timesUsed"`
}

func (a *Address) ToDoc() map[string]interface{} {
	return map[string]interface{}{
		"id":        a.ID,
		"ownerId":   a.OwnerID,
		"alias":     a.Alias,
		"street":    a.Street,
		"number":    a.Number,
		"commune":   a.Commune,
		"region":    a.Region,
		"isPrimary": a.IsPrimary,
		"timesUsed": a.TimesUsed,
	}
}

// OrderItem is one service line inside an order document.
type OrderItem struct {
	ServiceID   string  `json:"serviceId"`
	ServiceName string  `json:"serviceName"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
}

// PaymentDetails is the payment block of an order document.
type PaymentDetails struct {
	Type          string  `json:"type"`
	TransactionID string  `json:"transactionId"`
	MethodID      *string `json:"methodId"`
}

// ServiceAddress is the denormalized address block of an order document.
type ServiceAddress struct {
	AddressID    string `json:"addressId"`
	Commune      string `json:"commune"`
	Region       string `json:"region"`
	Instructions string `json:"instructions"`
}

// ContactOnSite is who receives the professional at the service address.
type ContactOnSite struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// StatusEvent is one entry of an order's synthesized status history.
type StatusEvent struct {
	Status    string     `json:"status"`
	Timestamp *time.Time `json:"timestamp"`
	UpdatedBy string     `json:"updatedBy"`
}

// Order is the orders collection document. Immutable once created except
// for the updatedAt refresh.
type Order struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	AddressID      string         `json:"addressId"`
	ProfessionalID *string        `json:"professionalId"`
	Total          float64        `json:"total"`
	Status         string         `json:"status"`
	CreatedAt      *time.Time     `json:"createdAt"`
	UpdatedAt      *time.Time     `json:"updatedAt"`
	Items          []OrderItem    `json:"items"`
	PaymentDetails PaymentDetails `json:"paymentDetails"`
	ServiceAddress ServiceAddress `json:"serviceAddress"`
	ContactOnSite  ContactOnSite  `json:"contactOnSite"`
	StatusHistory  []StatusEvent  `json:"statusHistory"`
	Rating         *float64       `json:"rating"`
}

func (o *Order) ToDoc() map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]interface{}{
			"serviceId":   it.ServiceID,
			"serviceName": it.ServiceName,
			"quantity":    it.Quantity,
			"price":       it.Price,
		})
	}
	history := make([]map[string]interface{}, 0, len(o.StatusHistory))
	for _, ev := range o.StatusHistory {
		history = append(history, map[string]interface{}{
			"status":    ev.Status,
			"timestamp": ev.Timestamp,
			"updatedBy": ev.UpdatedBy,
		})
	}
	return map[string]interface{}{
		"id":             o.ID,
		"userId":         o.UserID,
		"addressId":      o.AddressID,
		"professionalId": o.ProfessionalID,
		"total":          o.Total,
		"status":         o.Status,
		"createdAt":      o.CreatedAt,
		"updatedAt":      o.UpdatedAt,
		"items":          items,
		"paymentDetails": map[string]interface{}{
			"type":          o.PaymentDetails.Type,
			"transactionId": o.PaymentDetails.TransactionID,
			"methodId":      o.PaymentDetails.MethodID,
		},
		"serviceAddress": map[string]interface{}{
			"addressId":    o.ServiceAddress.AddressID,
			"commune":      o.ServiceAddress.Commune,
			"region":       o.ServiceAddress.Region,
			"instructions": o.ServiceAddress.Instructions,
		},
		"contactOnSite": map[string]interface{}{
			"name":  o.ContactOnSite.Name,
			"phone": o.ContactOnSite.Phone,
		},
		"statusHistory": history,
		"rating":        o.Rating,
	}
}

// Customer is the denormalized customer-centric variant: account, profile
// and address array merged into one document. Trades write atomicity for
// single-document reads.
type Customer struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone"`
	FirstName           string     `json:"firstName"`
	LastName            string     `json:"lastName"`
	RUT                 string     `json:"rut"`
	Addresses           []Address  `json:"addresses"`
	TotalSpending       float64    `json:"totalSpending"`
	ServiceHistoryCount int        `json:"serviceHistoryCount"`
	CreatedAt           *time.Time `json:"createdAt"`
	LastLoginAt         *time.Time `json:"lastLoginAt"`
}

func (c *Customer) ToDoc() map[string]interface{} {
	addrs := make([]map[string]interface{}, 0, len(c.Addresses))
	for i := range c.Addresses {
		addrs = append(addrs, c.Addresses[i].ToDoc())
	}
	return map[string]interface{}{
		"id":                  c.ID,
		"email":               c.Email,
		"phone":               c.Phone,
		"firstName":           c.FirstName,
		"lastName":            c.LastName,
		"rut":                 c.RUT,
		"addresses":           addrs,
		"totalSpending":       c.TotalSpending,
		"serviceHistoryCount": c.ServiceHistoryCount,
		"createdAt":           c.CreatedAt,
		"lastLoginAt":         c.LastLoginAt,
	}
}

// ServiceStats is the denormalized counters block of a service document.
type ServiceStats struct {
	ViewCount     int     `json:"viewCount"`
	PurchaseCount int     `json:"purchaseCount"`
	AverageRating float64 `json:"averageRating"`
}

// Service is the services collection document. In the normalized model the
// variants/subcategories travel as subcollections; in the hybrid model they
// are embedded arrays on this document.
type Service struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Description      string       `json:"description"`
	CategoryID       string       `json:"categoryId"`
	Price            float64      `json:"price"`
	Discount         float64      `json:"discount"`
	Status           string       `json:"status"`
	CreatedAt        *time.Time   `json:"createdAt"`
	HasVariants      bool         `json:"hasVariants"`
	HasSubcategories bool         `json:"hasSubcategories"`
	Stats            ServiceStats `json:"stats"`
}

func (s *Service) ToDoc() map[string]interface{} {
	return map[string]interface{}{
		"id":               s.ID,
		"name":             s.Name,
		"description":      s.Description,
		"categoryId":       s.CategoryID,
		"price":            s.Price,
		"discount":         s.Discount,
		"status":           s.Status,
		"createdAt":        s.CreatedAt,
		"hasVariants":      s.HasVariants,
		"hasSubcategories": s.HasSubcategories,
		"stats": map[string]interface{}{
			"viewCount":     s.Stats.ViewCount,
			"purchaseCount": s.Stats.PurchaseCount,
			"averageRating": s.Stats.AverageRating,
		},
	}
}

// Category is the globally deduplicated categories collection document.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

func (c *Category) ToDoc() map[string]interface{} {
	return map[string]interface{}{
		"id":          c.ID,
		"name":        c.Name,
		"description": c.Description,
		"imageUrl":    c.ImageURL,
	}
}

// VariantOption is a single name/value option of a variant.
type VariantOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Variant is a child of a service (subcollection in the normalized model).
type Variant struct {
	ID        string          `json:"id"`
	ServiceID string          `json:"serviceId"`
	Price     float64         `json:"price"`
	SKU       string          `json:"sku"`
	Stock     int             `json:"stock"`
	Options   []VariantOption `json:"options"`
}

func (v *Variant) ToDoc() map[string]interface{} {
	opts := make([]map[string]interface{}, 0, len(v.Options))
	for _, o := range v.Options {
		opts = append(opts, map[string]interface{}{"name": o.Name, "value": o.Value})
	}
	return map[string]interface{}{
		"id":        v.ID,
		"serviceId": v.ServiceID,
		"price":     v.Price,
		"sku":       v.SKU,
		"stock":     v.Stock,
		"options":   opts,
	}
}

// Subcategory is a child of a service derived from the trailing entries of
// the upstream category list.
type Subcategory struct {
	ID        string `json:"id"`
	ServiceID string `json:"serviceId"`
	Name      string `json:"name"`
}

func (s *Subcategory) ToDoc() map[string]interface{} {
	return map[string]interface{}{
		"id":        s.ID,
		"serviceId": s.ServiceID,
		"name":      s.Name,
	}
}
