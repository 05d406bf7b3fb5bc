// Package types holds request and response shapes shared by handlers.
package types

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageQuery binds ?page=&page_size=.
type PageQuery struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// Validate rejects negative values; zero means "use the default".
func (p PageQuery) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Page, validation.Min(0)),
		validation.Field(&p.PageSize, validation.Min(0), validation.Max(MaxPageSize)),
	)
}

func (p *PageQuery) ApplyDefaults() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

func (p PageQuery) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type PageMeta struct {
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Pages    int   `json:"pages"`
}

func NewPageMeta(total int64, page, size int) PageMeta {
	pages := 0
	if size > 0 {
		pages = int(total) / size
		if int(total)%size > 0 {
			pages++
		}
	}
	return PageMeta{Total: total, Page: page, PageSize: size, Pages: pages}
}
