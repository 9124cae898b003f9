package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 10
	maxPageSize     = 10

	paginationKey = "pagination"
)

// Pagination is the sanitized page request attached by the middleware.
type Pagination struct {
	Page int
	Size int
}

// Paginate normalizes the page and size query parameters. Anything
// missing, unparsable or out of range falls back to defaults rather than
// failing the request.
func Paginate() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := strconv.Atoi(c.Query("page"))
		if err != nil || page < 0 {
			page = 0
		}

		size, err := strconv.Atoi(c.Query("size"))
		if err != nil || size < 1 || size > maxPageSize {
			size = defaultPageSize
		}

		c.Set(paginationKey, Pagination{Page: page, Size: size})
		c.Next()
	}
}

// GetPagination returns the Pagination set by Paginate, or defaults when
// the middleware did not run.
func GetPagination(c *gin.Context) Pagination {
	if v, ok := c.Get(paginationKey); ok {
		if p, ok := v.(Pagination); ok {
			return p
		}
	}
	return Pagination{Page: 0, Size: defaultPageSize}
}
