package firestore

import (
	"time"

	"storefront/internal/domain"

	"github.com/shopspring/decimal"
)

// Collection layout:
//
//	products/{id}                 variants embedded as an array
//	categories/{id}
//	banners/{id}
//	users/{uid}/addresses/{id}
//	users/{uid}/orders/{id}       items embedded as an array
const (
	colProducts   = "products"
	colCategories = "categories"
	colBanners    = "banners"
	colUsers      = "users"
	colAddresses  = "addresses"
	colOrders     = "orders"
)

// Prices are stored as plain numbers so existing mobile readers keep working.
func money(f float64) decimal.Decimal  { return decimal.NewFromFloat(f).Round(2) }
func number(d decimal.Decimal) float64 { return d.InexactFloat64() }

type variantDoc struct {
	Size          string  `firestore:"size"`
	Color         string  `firestore:"color"`
	Price         float64 `firestore:"price"`
	OriginalPrice float64 `firestore:"originalPrice"`
	Stock         int     `firestore:"stock"`
	SKU           string  `firestore:"sku"`
	CartonSize    int     `firestore:"cartonSize"`
}

type productDoc struct {
	Title         string       `firestore:"title"`
	Brand         string       `firestore:"brand"`
	Category      string       `firestore:"category"`
	Description   string       `firestore:"description"`
	Rating        float64      `firestore:"rating"`
	Reviews       int          `firestore:"reviews"`
	Media         []string     `firestore:"media"`
	Variants      []variantDoc `firestore:"variants"`
	Price         float64      `firestore:"price"`
	OriginalPrice float64      `firestore:"originalPrice"`
	Discount      int          `firestore:"discount"`
	IsNew         bool         `firestore:"isNew"`
	IsBestseller  bool         `firestore:"isBestseller"`
	IsFeatured    bool         `firestore:"isFeatured"`
	IsPublished   bool         `firestore:"isPublished"`
	CreatedAt     time.Time    `firestore:"createdAt"`
	UpdatedAt     time.Time    `firestore:"updatedAt"`
}

func variantsToDocs(vs []domain.Variant) []variantDoc {
	out := make([]variantDoc, len(vs))
	for i, v := range vs {
		out[i] = variantDoc{
			Size:          v.Size,
			Color:         v.Color,
			Price:         number(v.Price),
			OriginalPrice: number(v.OriginalPrice),
			Stock:         v.Stock,
			SKU:           v.SKU,
			CartonSize:    v.CartonSize,
		}
	}
	return out
}

func productDocFromDomain(p *domain.Product) productDoc {
	media := p.Media
	if media == nil {
		media = []string{}
	}
	return productDoc{
		Title:         p.Title,
		Brand:         p.Brand,
		Category:      p.Category,
		Description:   p.Description,
		Rating:        p.Rating,
		Reviews:       p.Reviews,
		Media:         media,
		Variants:      variantsToDocs(p.Variants),
		Price:         number(p.Price),
		OriginalPrice: number(p.OriginalPrice),
		Discount:      p.Discount,
		IsNew:         p.IsNew,
		IsBestseller:  p.IsBestseller,
		IsFeatured:    p.IsFeatured,
		IsPublished:   p.IsPublished,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (d productDoc) toDomain(id string) *domain.Product {
	p := &domain.Product{
		ID:            id,
		Title:         d.Title,
		Brand:         d.Brand,
		Category:      d.Category,
		Description:   d.Description,
		Rating:        d.Rating,
		Reviews:       d.Reviews,
		Media:         d.Media,
		Price:         money(d.Price),
		OriginalPrice: money(d.OriginalPrice),
		Discount:      d.Discount,
		IsNew:         d.IsNew,
		IsBestseller:  d.IsBestseller,
		IsFeatured:    d.IsFeatured,
		IsPublished:   d.IsPublished,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for _, v := range d.Variants {
		p.Variants = append(p.Variants, domain.Variant{
			Size:          v.Size,
			Color:         v.Color,
			Price:         money(v.Price),
			OriginalPrice: money(v.OriginalPrice),
			Stock:         v.Stock,
			SKU:           v.SKU,
			CartonSize:    v.CartonSize,
		})
	}
	return p
}

type categoryDoc struct {
	Name        string    `firestore:"name"`
	Description string    `firestore:"description"`
	ImageURL    string    `firestore:"imageUrl"`
	Position    int       `firestore:"position"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func categoryDocFromDomain(c *domain.Category) categoryDoc {
	return categoryDoc{
		Name:        c.Name,
		Description: c.Description,
		ImageURL:    c.ImageURL,
		Position:    c.Position,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (d categoryDoc) toDomain(id string) *domain.Category {
	return &domain.Category{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		ImageURL:    d.ImageURL,
		Position:    d.Position,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type bannerDoc struct {
	Title     string    `firestore:"title"`
	ImageURL  string    `firestore:"imageUrl"`
	Link      string    `firestore:"link"`
	Position  int       `firestore:"position"`
	IsActive  bool      `firestore:"isActive"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func bannerDocFromDomain(b *domain.Banner) bannerDoc {
	return bannerDoc{
		Title:     b.Title,
		ImageURL:  b.ImageURL,
		Link:      b.Link,
		Position:  b.Position,
		IsActive:  b.IsActive,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func (d bannerDoc) toDomain(id string) *domain.Banner {
	return &domain.Banner{
		ID:        id,
		Title:     d.Title,
		ImageURL:  d.ImageURL,
		Link:      d.Link,
		Position:  d.Position,
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type addressDoc struct {
	Type      string    `firestore:"type"`
	Name      string    `firestore:"name"`
	Address   string    `firestore:"address"`
	City      string    `firestore:"city"`
	State     string    `firestore:"state"`
	Pincode   string    `firestore:"pincode"`
	Phone     string    `firestore:"phone"`
	IsDefault bool      `firestore:"isDefault"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func addressDocFromDomain(a *domain.Address) addressDoc {
	return addressDoc{
		Type:      string(a.Type),
		Name:      a.Name,
		Address:   a.Address,
		City:      a.City,
		State:     a.State,
		Pincode:   a.Pincode,
		Phone:     a.Phone,
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (d addressDoc) toDomain(userID, id string) *domain.Address {
	return &domain.Address{
		ID:        id,
		UserID:    userID,
		Type:      domain.AddressType(d.Type),
		Name:      d.Name,
		Address:   d.Address,
		City:      d.City,
		State:     d.State,
		Pincode:   d.Pincode,
		Phone:     d.Phone,
		IsDefault: d.IsDefault,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type orderItemDoc struct {
	ProductID string  `firestore:"productId"`
	Name      string  `firestore:"name"`
	Image     string  `firestore:"image"`
	SKU       string  `firestore:"sku"`
	Size      string  `firestore:"size"`
	Color     string  `firestore:"color"`
	Price     float64 `firestore:"price"`
	Quantity  int     `firestore:"quantity"`
	Total     float64 `firestore:"total"`
}

type orderDoc struct {
	UserID          string         `firestore:"userId"`
	OrderNumber     string         `firestore:"orderNumber"`
	Items           []orderItemDoc `firestore:"items"`
	DeliveryAddress string         `firestore:"deliveryAddress"`
	PaymentMethod   string         `firestore:"paymentMethod"`
	SubTotal        float64        `firestore:"subTotal"`
	DeliveryFee     float64        `firestore:"deliveryFee"`
	TaxPercentage   float64        `firestore:"taxPercentage"`
	TaxAmount       float64        `firestore:"taxAmount"`
	PlatformFee     float64        `firestore:"platformFee"`
	Discount        float64        `firestore:"discount"`
	FinalTotal      float64        `firestore:"finalTotal"`
	Status          string         `firestore:"status"`
	OrderDate       time.Time      `firestore:"orderDate"`
	GatewayOrderID  string         `firestore:"razorpayOrderId"`
	ReceiptID       string         `firestore:"receiptId"`
	PaymentID       string         `firestore:"paymentId"`
	CreatedAt       time.Time      `firestore:"createdAt"`
	UpdatedAt       time.Time      `firestore:"updatedAt"`
}

func orderDocFromDomain(o *domain.Order) orderDoc {
	items := make([]orderItemDoc, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemDoc{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			SKU:       it.SKU,
			Size:      it.Size,
			Color:     it.Color,
			Price:     number(it.Price),
			Quantity:  it.Quantity,
			Total:     number(it.Total),
		}
	}
	return orderDoc{
		UserID:          o.UserID,
		OrderNumber:     o.OrderNumber,
		Items:           items,
		DeliveryAddress: o.DeliveryAddress,
		PaymentMethod:   string(o.PaymentMethod),
		SubTotal:        number(o.SubTotal),
		DeliveryFee:     number(o.DeliveryFee),
		TaxPercentage:   number(o.TaxPercentage),
		TaxAmount:       number(o.TaxAmount),
		PlatformFee:     number(o.PlatformFee),
		Discount:        number(o.Discount),
		FinalTotal:      number(o.FinalTotal),
		Status:          string(o.Status),
		OrderDate:       o.OrderDate,
		GatewayOrderID:  o.GatewayOrderID,
		ReceiptID:       o.ReceiptID,
		PaymentID:       o.PaymentID,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func (d orderDoc) toDomain(userID, id string) *domain.Order {
	o := &domain.Order{
		ID:              id,
		UserID:          userID,
		OrderNumber:     d.OrderNumber,
		Items:           make([]domain.OrderItem, len(d.Items)),
		DeliveryAddress: d.DeliveryAddress,
		PaymentMethod:   domain.PaymentMethod(d.PaymentMethod),
		SubTotal:        money(d.SubTotal),
		DeliveryFee:     money(d.DeliveryFee),
		TaxPercentage:   money(d.TaxPercentage),
		TaxAmount:       money(d.TaxAmount),
		PlatformFee:     money(d.PlatformFee),
		Discount:        money(d.Discount),
		FinalTotal:      money(d.FinalTotal),
		Status:          domain.OrderStatus(d.Status),
		OrderDate:       d.OrderDate,
		GatewayOrderID:  d.GatewayOrderID,
		ReceiptID:       d.ReceiptID,
		PaymentID:       d.PaymentID,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	for i, it := range d.Items {
		o.Items[i] = domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			SKU:       it.SKU,
			Size:      it.Size,
			Color:     it.Color,
			Price:     money(it.Price),
			Quantity:  it.Quantity,
			Total:     money(it.Total),
		}
	}
	return o
}
