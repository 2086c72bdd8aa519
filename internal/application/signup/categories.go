package signup

import (
	"context"
	"log/slog"

	"github.com/grainlyyy/pds-api/internal/domain"
)

// Categories reads the category-wise statistics from the contract. When the
// contract cannot be read, or lists nothing, the default categories are
// served instead.
func (s *service) Categories(ctx context.Context) (*domain.CategoryList, error) {
	stats, err := s.chain.CategoryStats(ctx)
	if err != nil {
		slog.Warn("category stats unavailable, serving defaults", "err", err)
	}
	if err != nil || len(stats) == 0 {
		return &domain.CategoryList{
			Categories: append([]string(nil), domain.DefaultConsumerCategories...),
			Source:     domain.CategorySourceDefault,
		}, nil
	}
	list := &domain.CategoryList{Stats: stats, Source: domain.CategorySourceBlockchain}
	for _, st := range stats {
		list.Categories = append(list.Categories, st.Category)
	}
	return list, nil
}
