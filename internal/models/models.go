package models

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"unique;not null"          json:"name"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  uint    `gorm:"index"                    json:"category_id"`
	Name        string  `gorm:"not null"                 json:"name"`
	Description string  `json:"description"`
	Price       float64 `gorm:"not null"                 json:"price"`
	Discount    uint    `gorm:"default:0"                json:"discount"`
	Stock       uint    `gorm:"default:0"                json:"stock"`
	Image       string  `json:"image"`
}

// EffectivePrice is the unit price after the percentage discount.
func (p Product) EffectivePrice() float64 {
	return p.Price * float64(100-p.Discount) / 100
}

type Customer struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	FullName     string `json:"full_name"`
	Role         string `gorm:"not null;default:user"    json:"role"`
}

// A cart with paid=false is the customer's open cart; the cart service keeps
// at most one of those per customer.
type Cart struct {
	ID        uint  `gorm:"primaryKey;autoIncrement" json:"id"`
	CusID     uint  `gorm:"index;not null"           json:"cus_id"`
	Paid      bool  `gorm:"default:false"            json:"paid"`
	CreatedAt int64 `json:"created_at"`
}

type CartDetail struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"              json:"id"`
	CartID    uint    `gorm:"uniqueIndex:idx_cart_product;not null" json:"cart_id"`
	ProductID uint    `gorm:"uniqueIndex:idx_cart_product;not null" json:"product_id"`
	Quantity  uint    `json:"quantity"`
	Price     float64 `json:"price"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	CusID     uint   `gorm:"index;not null"  json:"cus_id"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}
