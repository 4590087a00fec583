// Package pagination provides shared helpers for numbered-page list requests.
package pagination

// PageSizeConfig configures page size normalization.
type PageSizeConfig struct {
	Default int
	Max     int
}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int, cfg PageSizeConfig) int {
	pageSize := value
	if pageSize <= 0 {
		pageSize = cfg.Default
	}
	if cfg.Max > 0 && pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return pageSize
}

// ClampPage normalizes a 1-based page number.
func ClampPage(value int) int {
	if value < 1 {
		return 1
	}
	return value
}

// Offset converts a 1-based page and page size into a row offset.
func Offset(page, pageSize int) int {
	page = ClampPage(page)
	if pageSize < 1 {
		pageSize = 1
	}
	return (page - 1) * pageSize
}
