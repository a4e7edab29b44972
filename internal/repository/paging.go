package repository

import "strings"

// pageWindow normalises page inputs and returns the LIMIT and OFFSET to apply.
func pageWindow(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}

// orderBy resolves a whitelisted sort column and direction.
func orderBy(allowed map[string]string, sortBy, sortOrder, fallback string) (string, string) {
	column, ok := allowed[sortBy]
	if !ok {
		column = allowed[fallback]
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return column, order
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}
