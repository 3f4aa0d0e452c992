package services

import (
	"context"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/rentledger/rentledger/internal/models"
)

// CatalogService serves the chargeable item catalog consumed by the
// invoice line editor.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

var searchSanitizer = regexp.MustCompile(`[^a-zA-Z0-9 \-_]`)

// Search returns catalog items matching query against code, name or
// category. An empty query lists everything (up to limit).
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]models.CatalogItem, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	dbq := s.db.WithContext(ctx).Model(&models.CatalogItem{})
	q := strings.TrimSpace(query)
	if q != "" {
		safe := searchSanitizer.ReplaceAllString(q, "")
		like := "%" + strings.ToLower(safe) + "%"
		dbq = dbq.Where("lower(code) LIKE ? OR lower(name) LIKE ? OR lower(category) LIKE ?", like, like, like)
	}
	var items []models.CatalogItem
	if err := dbq.Order("code").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetByID fetches a single catalog item.
func (s *CatalogService) GetByID(ctx context.Context, id uint) (*models.CatalogItem, error) {
	var item models.CatalogItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}
