package service

import (
	"context"
	"io"

	"pos-service/internal/apperr"
	"pos-service/internal/assets"
	"pos-service/internal/models"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// CatalogStore is the record-store slice behind the catalog.
type CatalogStore interface {
	GetProductByCode(ctx context.Context, code string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, code string) error
}

// CatalogService handles product CRUD and the image asset lifecycle.
type CatalogService struct {
	store  CatalogStore
	assets assets.Store
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore, assetStore assets.Store) *CatalogService {
	return &CatalogService{
		store:  store,
		assets: assetStore,
		logger: util.GetLogger(),
	}
}

// AddProduct validates and persists a new product. If an image reader
// is given it is stored first and its reference recorded on the record.
func (s *CatalogService) AddProduct(ctx context.Context, p *models.Product, image io.Reader, imageName string) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.AddProduct")
	defer span.End()

	if p.Code == "" {
		return apperr.NewValidationError("product code is required")
	}
	if p.Name == "" {
		return apperr.NewValidationError("product name is required")
	}
	if p.Price < 0 {
		return apperr.NewValidationError("price must be non-negative")
	}
	if p.Stock < 0 {
		return apperr.NewValidationError("stock must be non-negative")
	}

	if image != nil {
		ref, err := s.assets.Save(ctx, imageName, image)
		if err != nil {
			return apperr.NewStoreError("failed to store product image", err)
		}
		p.Image = ref
	}

	if err := s.store.CreateProduct(ctx, p); err != nil {
		if p.Image != "" {
			// Do not leak the just-stored blob when the record
			// insert fails.
			if delErr := s.assets.Delete(ctx, p.Image); delErr != nil {
				s.logger.Warn("Failed to clean up orphaned asset",
					zap.String("ref", p.Image), zap.Error(delErr))
			}
		}
		return err
	}

	s.logger.Info("Product added", zap.String("code", p.Code))
	return nil
}

// ListProducts returns the catalog sorted by name
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.store.ListProducts(ctx)
}

// GetProduct returns a product by code
func (s *CatalogService) GetProduct(ctx context.Context, code string) (*models.Product, error) {
	return s.store.GetProductByCode(ctx, code)
}

// DeleteProduct removes the record and asks the asset store to release
// the image. Asset deletion failure never blocks the record deletion.
func (s *CatalogService) DeleteProduct(ctx context.Context, code string) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct")
	defer span.End()

	product, err := s.store.GetProductByCode(ctx, code)
	if err != nil {
		return err
	}

	if product.Image != "" {
		if err := s.assets.Delete(ctx, product.Image); err != nil {
			s.logger.Warn("Failed to delete product image, continuing",
				zap.String("code", code),
				zap.String("ref", product.Image),
				zap.Error(err))
		}
	}

	if err := s.store.DeleteProduct(ctx, code); err != nil {
		return err
	}

	s.logger.Info("Product deleted", zap.String("code", code))
	return nil
}
