package pagination

import (
	"math"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Page  int
	Limit int
}

// FromQuery reads ?page= and ?limit= with the usual defaults.
func FromQuery(c *fiber.Ctx) Params {
	return Params{Page: c.QueryInt("page", 1), Limit: c.QueryInt("limit", DefaultLimit)}.Normalize()
}

func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Scope applies limit and offset to a query.
func (p Params) Scope(db *gorm.DB) *gorm.DB {
	n := p.Normalize()
	return db.Limit(n.Limit).Offset(n.Offset())
}

type Result[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func NewResult[T any](items []T, p Params, total int64) Result[T] {
	p = p.Normalize()
	if items == nil {
		items = []T{}
	}
	return Result[T]{
		Items:      items,
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(p.Limit))),
	}
}
