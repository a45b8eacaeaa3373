package services

import (
	"context"
	"encoding/json"
	"math"
	"strings"

	"gorm.io/datatypes"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
	// maxPage keeps (page-1)*limit inside an int32 offset for every driver.
	maxPage = math.MaxInt32/maxPageLimit + 1
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// PageRequest selects one page of a listing.
type PageRequest struct {
	Page  int
	Limit int
}

// normalise clamps the limit into 1..100 (default 50) and the page into
// 1..maxPage.
func (p PageRequest) normalise() PageRequest {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.Limit
}

// Page is one page of results plus the total row count.
type Page[T any] struct {
	Items []T
	Page  int
	Limit int
	Total int64
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

// optionalID returns nil for blank identifiers.
func optionalID(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// jsonColumn converts raw JSON into a column value; empty or "null" input clears it.
func jsonColumn(raw json.RawMessage) datatypes.JSON {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	return datatypes.JSON(trimmed)
}
