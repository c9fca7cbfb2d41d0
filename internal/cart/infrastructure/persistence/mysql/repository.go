package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/ecommerce/internal/cart/domain"
	"gorm.io/gorm"
)

type cartRepository struct{ db *gorm.DB }

func NewCartRepository(db *gorm.DB) domain.CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetBySession(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.db.WithContext(ctx).Preload("Items").Where("session_id = ?", sessionID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart
	err := r.db.WithContext(ctx).Preload("Items").Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(cart).Error; err != nil {
			return err
		}
		// 删除本次保存中被移除的行
		keep := make([]uint, 0, len(cart.Items))
		for i := range cart.Items {
			keep = append(keep, cart.Items[i].ID)
		}
		query := tx.Where("cart_id = ?", cart.ID)
		if len(keep) > 0 {
			query = query.Where("id NOT IN ?", keep)
		}
		return query.Delete(&domain.CartItem{}).Error
	})
}

func (r *cartRepository) Delete(ctx context.Context, cartID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart domain.Cart
		err := tx.Where("cart_id = ?", cartID).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&cart).Error
	})
}

func (r *cartRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var expired []domain.Cart
	if err := r.db.WithContext(ctx).Where("expires_at < ?", before).Find(&expired).Error; err != nil {
		return 0, err
	}
	for i := range expired {
		if err := r.Delete(ctx, expired[i].CartID); err != nil {
			return int64(i), err
		}
	}
	return int64(len(expired)), nil
}

type savedItemRepository struct{ db *gorm.DB }

func NewSavedItemRepository(db *gorm.DB) domain.SavedItemRepository {
	return &savedItemRepository{db: db}
}

func (r *savedItemRepository) Save(ctx context.Context, item *domain.SavedItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *savedItemRepository) Get(ctx context.Context, savedItemID string) (*domain.SavedItem, error) {
	var item domain.SavedItem
	err := r.db.WithContext(ctx).Where("saved_item_id = ?", savedItemID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *savedItemRepository) ListByUser(ctx context.Context, userID string) ([]*domain.SavedItem, error) {
	var items []*domain.SavedItem
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("saved_at DESC").Find(&items).Error
	return items, err
}

func (r *savedItemRepository) Delete(ctx context.Context, savedItemID string) error {
	return r.db.WithContext(ctx).Where("saved_item_id = ?", savedItemID).Delete(&domain.SavedItem{}).Error
}
