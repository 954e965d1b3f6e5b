package api

import (
	"strings"
	"time"

	"shop-api/internal/models"

	"github.com/shopspring/decimal"
)

const categoryPlaceholderImage = "https://via.placeholder.com/800x600?text=Category"

var defaultCategoryImages = map[string]string{
	"electronics":   "https://images.unsplash.com/photo-1498049794561-7780e7231661?w=800&h=600&fit=crop&q=80",
	"clothing":      "https://images.unsplash.com/photo-1445205170230-053b83016050?w=800&h=600&fit=crop&q=80",
	"home-garden":   "https://images.unsplash.com/photo-1586023492125-27b2c045efd7?w=800&h=600&fit=crop&q=80",
	"sports":        "https://images.unsplash.com/photo-1571019613454-1cb2f99b2d8b?w=800&h=600&fit=crop&q=80",
	"books":         "https://images.unsplash.com/photo-1544947950-fa07a98d237f?w=800&h=600&fit=crop&q=80",
	"toys-games":    "https://images.unsplash.com/photo-1558618666-fcd25c85cd64?w=800&h=600&fit=crop&q=80",
	"beauty-health": "https://images.unsplash.com/photo-1522338242992-e1a54906a8da?w=800&h=600&fit=crop&q=80",
	"automotive":    "https://images.unsplash.com/photo-1492144534655-ae79c964c9d7?w=800&h=600&fit=crop&q=80",
}

// mediaURL makes an uploaded file path absolute against the media base URL
func mediaURL(mediaBase, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(mediaBase, "/") + "/" + strings.TrimLeft(path, "/")
}

// resolveCategoryImage picks the uploaded image, then the per-slug default, then a placeholder
func resolveCategoryImage(c models.Category, mediaBase string) string {
	if c.Image != nil && *c.Image != "" {
		return mediaURL(mediaBase, *c.Image)
	}
	if img, ok := defaultCategoryImages[c.Slug]; ok {
		return img
	}
	return categoryPlaceholderImage
}

// resolveProductImage prefers the external image URL over the uploaded image
func resolveProductImage(p models.Product, mediaBase string) *string {
	if p.ImageURL != nil && *p.ImageURL != "" {
		u := *p.ImageURL
		return &u
	}
	if p.Image != nil && *p.Image != "" {
		u := mediaURL(mediaBase, *p.Image)
		return &u
	}
	return nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullDecimal(d decimal.NullDecimal, places int32) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.StringFixed(places)
	return &s
}

type categoryResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
}

type productResponse struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Slug          string            `json:"slug"`
	Description   string            `json:"description"`
	Image         *string           `json:"image"`
	ImageURL      *string           `json:"image_url"`
	Price         string            `json:"price"`
	OriginalPrice *string           `json:"original_price"`
	Discount      int               `json:"discount"`
	Category      *categoryResponse `json:"category"`
	Stock         int               `json:"stock"`
	Rating        string            `json:"rating"`
	ReviewsCount  int               `json:"reviews_count"`
	IsActive      bool              `json:"is_active"`
	CreatedAt     time.Time         `json:"created_at"`
}

type cartLineResponse struct {
	ID         int64           `json:"id"`
	Product    productResponse `json:"product"`
	Quantity   int             `json:"quantity"`
	TotalPrice string          `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

type cartTotalResponse struct {
	Total string `json:"total"`
	Count int    `json:"count"`
}

type addressResponse struct {
	ID          int64     `json:"id"`
	FullName    string    `json:"full_name"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	ZipCode     string    `json:"zip_code"`
	Country     string    `json:"country"`
	AddressType string    `json:"address_type"`
	IsDefault   bool      `json:"is_default"`
	Lat         *string   `json:"lat"`
	Lng         *string   `json:"lng"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type orderItemResponse struct {
	ID          int64  `json:"id"`
	Product     *int64 `json:"product"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
	Total       string `json:"total"`
}

type orderResponse struct {
	ID              int64               `json:"id"`
	OrderNumber     string              `json:"order_number"`
	DeliveryAddress *addressResponse    `json:"delivery_address"`
	Status          string              `json:"status"`
	Subtotal        string              `json:"subtotal"`
	ShippingCost    string              `json:"shipping_cost"`
	Discount        string              `json:"discount"`
	Total           string              `json:"total"`
	PaymentMethod   string              `json:"payment_method"`
	Notes           string              `json:"notes"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// presenter renders models into response shapes
type presenter struct {
	mediaBase string
}

func (p presenter) category(c models.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Image:       resolveCategoryImage(c, p.mediaBase),
		CreatedAt:   c.CreatedAt,
	}
}

func (p presenter) categories(cs []models.Category) []categoryResponse {
	out := make([]categoryResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, p.category(c))
	}
	return out
}

func (p presenter) product(pr models.Product) productResponse {
	resp := productResponse{
		ID:            pr.ID,
		Name:          pr.Name,
		Slug:          pr.Slug,
		Description:   pr.Description,
		Image:         resolveProductImage(pr, p.mediaBase),
		ImageURL:      pr.ImageURL,
		Price:         money(pr.Price),
		OriginalPrice: nullDecimal(pr.OriginalPrice, 2),
		Discount:      pr.Discount,
		Stock:         pr.Stock,
		Rating:        money(pr.Rating),
		ReviewsCount:  pr.ReviewsCount,
		IsActive:      pr.IsActive,
		CreatedAt:     pr.CreatedAt,
	}
	if pr.Category != nil {
		c := p.category(*pr.Category)
		resp.Category = &c
	}
	return resp
}

func (p presenter) products(ps []models.Product) []productResponse {
	out := make([]productResponse, 0, len(ps))
	for _, pr := range ps {
		out = append(out, p.product(pr))
	}
	return out
}

func (p presenter) cartLine(l models.CartLine) cartLineResponse {
	return cartLineResponse{
		ID:         l.ID,
		Product:    p.product(l.Product),
		Quantity:   l.Quantity,
		TotalPrice: money(models.LineTotal(l)),
		CreatedAt:  l.CreatedAt,
	}
}

func (p presenter) cartLines(ls []models.CartLine) []cartLineResponse {
	out := make([]cartLineResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, p.cartLine(l))
	}
	return out
}

func (p presenter) address(a models.Address) addressResponse {
	return addressResponse{
		ID:          a.ID,
		FullName:    a.FullName,
		Phone:       a.Phone,
		Address:     a.Address,
		City:        a.City,
		State:       a.State,
		ZipCode:     a.ZipCode,
		Country:     a.Country,
		AddressType: a.AddressType,
		IsDefault:   a.IsDefault,
		Lat:         nullDecimal(a.Lat, 6),
		Lng:         nullDecimal(a.Lng, 6),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func (p presenter) addresses(as []models.Address) []addressResponse {
	out := make([]addressResponse, 0, len(as))
	for _, a := range as {
		out = append(out, p.address(a))
	}
	return out
}

func (p presenter) order(o models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ID:          it.ID,
			Product:     it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       money(it.Price),
			Total:       money(it.Total),
		})
	}

	resp := orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		Subtotal:      money(o.Subtotal),
		ShippingCost:  money(o.ShippingCost),
		Discount:      money(o.Discount),
		Total:         money(o.Total),
		PaymentMethod: o.PaymentMethod,
		Notes:         o.Notes,
		Items:         items,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.DeliveryAddress != nil {
		a := p.address(*o.DeliveryAddress)
		resp.DeliveryAddress = &a
	}
	return resp
}

func (p presenter) orders(os []models.Order) []orderResponse {
	out := make([]orderResponse, 0, len(os))
	for _, o := range os {
		out = append(out, p.order(o))
	}
	return out
}

func (p presenter) user(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
