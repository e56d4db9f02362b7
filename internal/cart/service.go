// Package cart implements the session-scoped cart and its checkout
// transition. Quantities in the map are always at least 1; hitting zero
// removes the key instead of storing it.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/techhouse/storefront/internal/audit"
	"github.com/techhouse/storefront/internal/models"
	"github.com/techhouse/storefront/internal/session"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrEmptyCart = errors.New("cart is empty")
)

// StockError aborts a checkout and names the first item that could not be
// fulfilled; nothing before it is left decremented.
type StockError struct {
	Product string
}

func (e *StockError) Error() string {
	return fmt.Sprintf("low stock: %s", e.Product)
}

type Service struct {
	DB       *gorm.DB
	Sessions *session.Store
	Sink     *audit.Sink
}

type Line struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
	Subtotal float64        `json:"subtotal"`
}

type Summary struct {
	Items []Line  `json:"items"`
	Total float64 `json:"total"`
}

func (s *Service) product(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

// Detail renders the cart with per-line subtotals and the running total.
func (s *Service) Detail(ctx context.Context, sess *models.Session) (*Summary, error) {
	cart, err := session.Cart(sess)
	if err != nil {
		return nil, err
	}

	ids := sortedIDs(cart)
	summary := &Summary{Items: []Line{}}
	for _, id := range ids {
		p, err := s.product(ctx, id)
		if err != nil {
			return nil, err
		}
		qty := cart[id]
		line := Line{Product: *p, Quantity: qty, Subtotal: p.Price * float64(qty)}
		summary.Items = append(summary.Items, line)
		summary.Total += line.Subtotal
	}
	return summary, nil
}

// Add increments the quantity for a product, creating the key at 1.
func (s *Service) Add(ctx context.Context, sess *models.Session, ip string, productID uint) (int, error) {
	p, err := s.product(ctx, productID)
	if err != nil {
		return 0, err
	}

	cart, err := session.Cart(sess)
	if err != nil {
		return 0, err
	}
	cart[productID]++
	if err := s.Sessions.SaveCart(ctx, sess, cart); err != nil {
		return 0, err
	}

	s.Sink.Record(ctx, &sess.UserID,
		fmt.Sprintf("CART UPDATE: Increased quantity for %s", p.Name), "", ip)
	return cart[productID], nil
}

// Decrease lowers the quantity by one, dropping the key when it would reach
// zero. A product that is not in the cart is a silent no-op.
func (s *Service) Decrease(ctx context.Context, sess *models.Session, ip string, productID uint) (int, error) {
	cart, err := session.Cart(sess)
	if err != nil {
		return 0, err
	}
	qty, ok := cart[productID]
	if !ok {
		return 0, nil
	}

	p, err := s.product(ctx, productID)
	if err != nil {
		return 0, err
	}

	var action string
	if qty > 1 {
		cart[productID] = qty - 1
		action = fmt.Sprintf("REDUCED QUANTITY: %s", p.Name)
	} else {
		delete(cart, productID)
		action = fmt.Sprintf("REMOVED FROM CART: %s", p.Name)
	}
	if err := s.Sessions.SaveCart(ctx, sess, cart); err != nil {
		return 0, err
	}

	s.Sink.Record(ctx, &sess.UserID, action, "", ip)
	return cart[productID], nil
}

// Remove drops the key outright regardless of quantity.
func (s *Service) Remove(ctx context.Context, sess *models.Session, ip string, productID uint) error {
	cart, err := session.Cart(sess)
	if err != nil {
		return err
	}
	if _, ok := cart[productID]; !ok {
		return nil
	}

	p, err := s.product(ctx, productID)
	if err != nil {
		return err
	}

	delete(cart, productID)
	if err := s.Sessions.SaveCart(ctx, sess, cart); err != nil {
		return err
	}

	s.Sink.Record(ctx, &sess.UserID,
		fmt.Sprintf("PERMANENTLY REMOVED FROM CART: %s", p.Name), "", ip)
	return nil
}

// Checkout decrements stock for every cart line in one transaction. The first
// item with insufficient stock rolls the whole thing back and is reported;
// on success the cart is cleared and exactly one completion entry recorded.
func (s *Service) Checkout(ctx context.Context, sess *models.Session, ip string) (*Summary, error) {
	cart, err := session.Cart(sess)
	if err != nil {
		return nil, err
	}
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}

	ids := sortedIDs(cart)
	var (
		purchased []string
		summary   Summary
	)

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			qty := cart[id]

			var p models.Product
			if err := tx.First(&p, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("product %d: %w", id, ErrNotFound)
				}
				return err
			}

			// Conditional decrement: the WHERE guard makes the stock check
			// and the write one atomic statement, so concurrent checkouts
			// cannot both spend the same units.
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", id, qty).
				Update("stock", gorm.Expr("stock - ?", qty))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &StockError{Product: p.Name}
			}

			purchased = append(purchased, fmt.Sprintf("%s (x%d)", p.Name, qty))
			line := Line{Product: p, Quantity: qty, Subtotal: p.Price * float64(qty)}
			line.Product.Stock -= qty
			summary.Items = append(summary.Items, line)
			summary.Total += line.Subtotal
		}

		// Clearing the cart rides the same transaction as the decrements.
		return tx.Model(sess).Update("cart", "{}").Error
	})
	if txErr != nil {
		return nil, txErr
	}

	sess.Cart = "{}"
	s.Sink.Record(ctx, &sess.UserID,
		"TRANSACTION: Checkout Complete",
		fmt.Sprintf("Purchased: %s", strings.Join(purchased, ", ")),
		ip)
	return &summary, nil
}

func sortedIDs(cart map[uint]int) []uint {
	ids := make([]uint, 0, len(cart))
	for id := range cart {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
