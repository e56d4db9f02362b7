package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"gorm.io/gorm"

	"github.com/techhouse/storefront/internal/models"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
)

// Product names follow a strict allowlist so stored values can never carry
// markup or injection payloads.
var nameAllowlist = regexp.MustCompile(`^[a-zA-Z0-9 ]+$`)

type ProductRepo struct {
	DB        *gorm.DB
	Observers []Observer
}

func validateProduct(p *models.Product) error {
	if !nameAllowlist.MatchString(p.Name) {
		return fmt.Errorf("name: only alphanumeric characters and spaces are allowed: %w", ErrValidation)
	}
	if !models.ValidCategory(p.Category) {
		return fmt.Errorf("category %q is not one of RAM/GPU/CPU/HDD: %w", p.Category, ErrValidation)
	}
	if p.Price <= 0 {
		return fmt.Errorf("price must be greater than zero: %w", ErrValidation)
	}
	if p.Stock < 0 {
		return fmt.Errorf("stock must not be negative: %w", ErrValidation)
	}
	return nil
}

func (r *ProductRepo) Get(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

// List returns products ordered by id, optionally filtered by a
// case-insensitive substring match on name or description.
func (r *ProductRepo) List(ctx context.Context, query string, offset, limit int) ([]models.Product, int64, error) {
	tx := r.DB.WithContext(ctx).Model(&models.Product{})
	if query != "" {
		like := "%" + query + "%"
		tx = tx.Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Product
	if err := tx.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *ProductRepo) Create(ctx context.Context, actor Actor, p *models.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := r.DB.WithContext(ctx).Create(p).Error; err != nil {
		return err
	}
	notify(ctx, r.Observers, Event{
		Op:      OpCreated,
		Entity:  "Product",
		ID:      p.ID,
		Name:    p.Name,
		Actor:   actor,
		Payload: *p,
	})
	return nil
}

func (r *ProductRepo) Update(ctx context.Context, actor Actor, p *models.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := r.DB.WithContext(ctx).Save(p).Error; err != nil {
		return err
	}
	notify(ctx, r.Observers, Event{
		Op:      OpUpdated,
		Entity:  "Product",
		ID:      p.ID,
		Name:    p.Name,
		Actor:   actor,
		Payload: *p,
	})
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, actor Actor, id uint) (*models.Product, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Delete(&models.Product{}, id).Error; err != nil {
		return nil, err
	}
	notify(ctx, r.Observers, Event{
		Op:      OpDeleted,
		Entity:  "Product",
		ID:      id,
		Name:    p.Name,
		Actor:   actor,
		Payload: *p,
	})
	return p, nil
}
