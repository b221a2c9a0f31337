package services

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/codyseavey/ptcg-carddb/internal/metrics"
	"github.com/codyseavey/ptcg-carddb/internal/models"
)

// VariantCache keeps the language variants of recently viewed primary cards.
// Entries expire after ttl so imports made by other processes become visible;
// imports and edits in this process invalidate immediately.
type VariantCache struct {
	lru *expirable.LRU[string, []models.LanguageVariant]
}

func NewVariantCache(size int, ttl time.Duration) *VariantCache {
	return &VariantCache{lru: expirable.NewLRU[string, []models.LanguageVariant](size, nil, ttl)}
}

// Get returns every variant of primaryCardID, including the one being viewed
func (c *VariantCache) Get(primaryCardID string) ([]models.LanguageVariant, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.lru.Get(primaryCardID)
	if ok {
		metrics.VariantCacheLookups.WithLabelValues("hit").Inc()
	} else {
		metrics.VariantCacheLookups.WithLabelValues("miss").Inc()
	}
	return v, ok
}

func (c *VariantCache) Add(primaryCardID string, variants []models.LanguageVariant) {
	if c == nil {
		return
	}
	c.lru.Add(primaryCardID, variants)
}

func (c *VariantCache) Invalidate(primaryCardIDs ...string) {
	if c == nil {
		return
	}
	for _, id := range primaryCardIDs {
		if id != "" {
			c.lru.Remove(id)
		}
	}
}
