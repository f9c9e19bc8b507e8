package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/lcu1903/ProjectThoiTrang/internal/models"
)

const MsgCartNotFound = "Cart not found or no details available."

type AddToCartResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type DeleteProductResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type CartDetailsResult struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	CartID  uint                `json:"cart_id,omitempty"`
	Count   int                 `json:"count"`
	Items   []models.CartDetail `json:"items,omitempty"`
}

// Service maintains the cart invariants: one open cart per customer, one
// detail row per (cart, product) pair, quantity never above stock.
//
// Recoverable conditions (missing product, stock exceeded, empty cart) come
// back as Success=false results; only store faults are returned as errors.
type Service struct {
	DB *gorm.DB

	locks sync.Map // customer id -> *sync.Mutex
}

// lock serializes cart mutations per customer. Two concurrent AddToCart
// calls for the same customer would otherwise race on the lazy cart
// creation and the quantity read-modify-write.
func (s *Service) lock(customerID uint) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(customerID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// AddToCart puts quantity units of a product into the customer's open cart,
// creating the cart on first use. A brand-new line is clamped to the
// available stock; topping up an existing line past the stock fails instead
// of clamping.
func (s *Service) AddToCart(ctx context.Context, customerID, productID, quantity uint) (AddToCartResult, error) {
	mu := s.lock(customerID)
	mu.Lock()
	defer mu.Unlock()

	var res AddToCartResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				res = AddToCartResult{Message: "Product not available."}
				return nil
			}
			return err
		}

		var openCart models.Cart
		err := tx.Where("cus_id = ? AND paid = ?", customerID, false).First(&openCart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			openCart = models.Cart{CusID: customerID}
			if err := tx.Create(&openCart).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		var detail models.CartDetail
		err = tx.Where("cart_id = ? AND product_id = ?", openCart.ID, productID).First(&detail).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			detail = models.CartDetail{
				CartID:    openCart.ID,
				ProductID: product.ID,
				Quantity:  min(quantity, product.Stock),
				Price:     product.EffectivePrice(),
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if detail.Quantity+quantity > product.Stock {
				res = AddToCartResult{
					Message: fmt.Sprintf("Only %d items of %q in stock.", product.Stock, product.Name),
				}
				return nil
			}
			detail.Quantity += quantity
			if err := tx.Save(&detail).Error; err != nil {
				return err
			}
		}

		res = AddToCartResult{Success: true, Message: "Product added to cart."}
		return nil
	})
	if err != nil {
		return AddToCartResult{}, err
	}
	return res, nil
}

// DeleteProduct removes exactly one line from the customer's open cart.
func (s *Service) DeleteProduct(ctx context.Context, customerID, productID uint) (DeleteProductResult, error) {
	mu := s.lock(customerID)
	mu.Lock()
	defer mu.Unlock()

	var res DeleteProductResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var openCart models.Cart
		if err := tx.Where("cus_id = ? AND paid = ?", customerID, false).First(&openCart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				res = DeleteProductResult{Message: "Cart not found."}
				return nil
			}
			return err
		}

		var detail models.CartDetail
		if err := tx.Where("cart_id = ? AND product_id = ?", openCart.ID, productID).First(&detail).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				res = DeleteProductResult{Message: "Product not found in cart."}
				return nil
			}
			return err
		}

		if err := tx.Delete(&detail).Error; err != nil {
			return err
		}
		res = DeleteProductResult{Success: true, Message: "Product removed from cart."}
		return nil
	})
	if err != nil {
		return DeleteProductResult{}, err
	}
	return res, nil
}

// GetCartDetails returns the open cart's lines and their count. A customer
// with no open cart, or an open cart with zero lines, gets a not-found
// result.
func (s *Service) GetCartDetails(ctx context.Context, customerID uint) (CartDetailsResult, error) {
	var openCart models.Cart
	if err := s.DB.WithContext(ctx).Where("cus_id = ? AND paid = ?", customerID, false).First(&openCart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CartDetailsResult{Message: MsgCartNotFound}, nil
		}
		return CartDetailsResult{}, err
	}

	var items []models.CartDetail
	if err := s.DB.WithContext(ctx).Where("cart_id = ?", openCart.ID).Find(&items).Error; err != nil {
		return CartDetailsResult{}, err
	}
	if len(items) == 0 {
		return CartDetailsResult{Message: MsgCartNotFound}, nil
	}

	return CartDetailsResult{
		Success: true,
		CartID:  openCart.ID,
		Count:   len(items),
		Items:   items,
	}, nil
}
