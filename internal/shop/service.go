package shop

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/hanabira/hanabira/backend/go-services/internal/economy"
	"github.com/hanabira/hanabira/backend/go-services/internal/storage"
	"github.com/hanabira/hanabira/backend/go-services/pkg/logger"
)

// Service ties the catalog to the petal economy: purchases are spends with the
// product recorded in the ledger entry metadata.
type Service struct {
	repo    ProductRepository
	economy *economy.Service
	media   *storage.MinIOStorage // optional; nil disables image URLs/uploads
}

func NewService(repo ProductRepository, eco *economy.Service, media *storage.MinIOStorage) *Service {
	return &Service{repo: repo, economy: eco, media: media}
}

// ListProducts returns the active catalog, attaching presigned image URLs when
// media storage is configured.
func (s *Service) ListProducts(ctx context.Context) ([]*Product, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if s.media != nil {
		for _, p := range products {
			if p.ImageKey == "" {
				continue
			}
			u, err := s.media.PresignedURL(ctx, p.ImageKey, time.Hour)
			if err != nil {
				logger.Warnf("presign image %s: %v", p.ImageKey, err)
				continue
			}
			p.ImageURL = u
		}
	}
	return products, nil
}

// Purchase debits the product price from the buyer and returns the new petal
// balance. The ledger entry carries the product id for audit replay.
func (s *Service) Purchase(ctx context.Context, userID int64, productID string) (int64, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, ErrProductNotFound
	}
	if !p.Active {
		return 0, ErrProductUnavailable
	}
	return s.economy.Spend(ctx, userID, economy.CurrencyPetals, p.PricePetals, "SHOP_PURCHASE", map[string]any{
		"product_id": p.ID,
		"product":    p.Name,
	})
}

// UpsertProduct validates and stores a catalog item (admin surface).
func (s *Service) UpsertProduct(ctx context.Context, p *Product) (*Product, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if p.ID == "" || p.Name == "" || p.PricePetals <= 0 {
		return nil, ErrInvalidProduct
	}
	return s.repo.Upsert(ctx, p)
}

// UploadImage stores product media and links it to the product.
func (s *Service) UploadImage(ctx context.Context, productID string, r io.Reader, size int64, contentType string) error {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrProductNotFound
	}
	if s.media == nil {
		return ErrProductUnavailable
	}
	key := "products/" + p.ID
	if err := s.media.Upload(ctx, key, r, size, contentType); err != nil {
		return err
	}
	p.ImageKey = key
	_, err = s.repo.Upsert(ctx, p)
	return err
}
