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
	"shopgrid/internal/service/order/domain"
)

// orderRecord is the gorm mapping of the order aggregate. Line items live in
// their own table and are loaded with the order.
type orderRecord struct {
	ID          string  `gorm:"primaryKey;type:varchar(36)"`
	OwnerID     string  `gorm:"type:varchar(36);not null;index"`
	OwnerName   string  `gorm:"type:varchar(100);not null"`
	TotalAmount float64 `gorm:"type:decimal(12,2);not null"`
	Status      string  `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Items []orderItemRecord `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderRecord) TableName() string { return "orders" }

type orderItemRecord struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	OrderID   string  `gorm:"type:varchar(36);not null;index"`
	ProductID string  `gorm:"type:varchar(36);not null"`
	Name      string  `gorm:"type:varchar(100);not null"`
	Price     float64 `gorm:"type:decimal(12,2);not null"`
	Quantity  int     `gorm:"not null"`
}

func (orderItemRecord) TableName() string { return "order_items" }

// MySQLOrderRepository implements domain.OrderRepository on MySQL via gorm.
type MySQLOrderRepository struct {
	db *gorm.DB
}

func NewMySQLOrderRepository(cfg *config.MySQLConfig) (*MySQLOrderRepository, error) {
	db, err := gorm.Open(gormmysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}
	if err := db.AutoMigrate(&orderRecord{}, &orderItemRecord{}); err != nil {
		return nil, fmt.Errorf("migrate order schema: %w", err)
	}
	return &MySQLOrderRepository{db: db}, nil
}

func (r *MySQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	rec := toRecord(order)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		var myErr *gosqlmysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == 1062 {
			return fmt.Errorf("%w: order %s already exists", domain.ErrConflict, order.ID)
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var rec orderRecord
	err := r.db.WithContext(ctx).Preload("Items").First(&rec, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return fromRecord(&rec), nil
}

func (r *MySQLOrderRepository) FindByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	var recs []orderRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list orders by owner: %w", err)
	}
	return fromRecords(recs), nil
}

func (r *MySQLOrderRepository) FindAll(ctx context.Context) ([]domain.Order, error) {
	var recs []orderRecord
	err := r.db.WithContext(ctx).
		Preload("Items").
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	return fromRecords(recs), nil
}

func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.Order, error) {
	tx := r.db.WithContext(ctx).
		Model(&orderRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()})
	if tx.Error != nil {
		return nil, fmt.Errorf("update order status: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	return r.FindByID(ctx, id)
}

func (r *MySQLOrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&orderItemRecord{}).Error; err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&orderRecord{})
		if res.Error != nil {
			return fmt.Errorf("delete order: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
		}
		return nil
	})
}

func toRecord(order *domain.Order) *orderRecord {
	rec := &orderRecord{
		ID:          order.ID,
		OwnerID:     order.OwnerID,
		OwnerName:   order.OwnerName,
		TotalAmount: order.TotalAmount,
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
	for _, item := range order.Items {
		rec.Items = append(rec.Items, orderItemRecord{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return rec
}

func fromRecord(rec *orderRecord) *domain.Order {
	order := &domain.Order{
		ID:          rec.ID,
		OwnerID:     rec.OwnerID,
		OwnerName:   rec.OwnerName,
		TotalAmount: rec.TotalAmount,
		Status:      domain.Status(rec.Status),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	for _, item := range rec.Items {
		order.Items = append(order.Items, domain.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}
	return order
}

func fromRecords(recs []orderRecord) []domain.Order {
	orders := make([]domain.Order, 0, len(recs))
	for i := range recs {
		orders = append(orders, *fromRecord(&recs[i]))
	}
	return orders
}
