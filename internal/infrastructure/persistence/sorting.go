package persistence

import (
	"slices"
	"strings"

	"gorm.io/gorm/clause"
)

// sortColumns whitelists the columns a listing may be ordered by.
// The first column is the default. Every ordering ends on id so pages are stable.
type sortColumns []string

var (
	orderSortColumns   = sortColumns{"created_at", "updated_at", "total_price", "quantity", "approval_status", "fulfillment_status", "product_name"}
	accountSortColumns = sortColumns{"created_at", "updated_at", "email", "name", "role", "status"}
)

// orderBy builds the ORDER BY clause. Unknown columns fall back to the default and
// any direction other than asc sorts descending.
func (s sortColumns) orderBy(column, dir string) clause.OrderBy {
	column = strings.TrimSpace(column)
	if !slices.Contains(s, column) {
		column = s[0]
	}
	desc := !strings.EqualFold(strings.TrimSpace(dir), "asc")
	return clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: column}, Desc: desc},
		{Column: clause.Column{Name: "id"}, Desc: desc},
	}}
}
