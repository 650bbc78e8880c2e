package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	gosqlmysql "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"shopgrid/internal/pkg/config"
	"shopgrid/internal/service/inventory/domain"
)

type productRecord struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)"`
	Name      string  `gorm:"type:varchar(100);not null"`
	Price     float64 `gorm:"type:decimal(12,2);not null"`
	Quantity  int     `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (productRecord) TableName() string { return "products" }

// MySQLProductRepository implements domain.ProductRepository on MySQL via
// gorm. The Quantity column only seeds the stock store; it is not updated by
// reservations.
type MySQLProductRepository struct {
	db *gorm.DB
}

func NewMySQLProductRepository(cfg *config.MySQLConfig) (*MySQLProductRepository, error) {
	db, err := gorm.Open(gormmysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}
	if err := db.AutoMigrate(&productRecord{}); err != nil {
		return nil, fmt.Errorf("migrate product schema: %w", err)
	}
	return &MySQLProductRepository{db: db}, nil
}

func (r *MySQLProductRepository) Create(ctx context.Context, product *domain.Product) error {
	rec := toProductRecord(product)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		var myErr *gosqlmysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == 1062 {
			return fmt.Errorf("%w: product %s already exists", domain.ErrValidation, product.ID)
		}
		return fmt.Errorf("create product: %w", err)
	}
	product.CreatedAt = rec.CreatedAt
	product.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *MySQLProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var rec productRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return fromProductRecord(&rec), nil
}

func (r *MySQLProductRepository) FindAll(ctx context.Context) ([]domain.Product, error) {
	var recs []productRecord
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	products := make([]domain.Product, 0, len(recs))
	for i := range recs {
		products = append(products, *fromProductRecord(&recs[i]))
	}
	return products, nil
}

func (r *MySQLProductRepository) Update(ctx context.Context, product *domain.Product) error {
	tx := r.db.WithContext(ctx).
		Model(&productRecord{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"name":       product.Name,
			"price":      product.Price,
			"quantity":   product.Quantity,
			"updated_at": time.Now(),
		})
	if tx.Error != nil {
		return fmt.Errorf("update product: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *MySQLProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&productRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func toProductRecord(p *domain.Product) *productRecord {
	return &productRecord{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Quantity: p.Quantity,
	}
}

func fromProductRecord(rec *productRecord) *domain.Product {
	return &domain.Product{
		ID:        rec.ID,
		Name:      rec.Name,
		Price:     rec.Price,
		Quantity:  rec.Quantity,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
