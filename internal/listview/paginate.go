package listview

import (
	"strconv"
	"strings"
)

// MatchFunc は正規化済みの検索語にitemが一致するかを判定する。
type MatchFunc[T any] func(item T, query string) bool

// normalizeQuery は検索語を大文字小文字を区別しない比較用に正規化する。
func normalizeQuery(q string) string {
	return strings.ToLower(q)
}

// Filter はqueryに一致する要素を元の順序のまま返す。空のqueryはすべてに一致する。
func Filter[T any](items []T, query string, match MatchFunc[T]) []T {
	if query == "" {
		return items
	}
	q := normalizeQuery(query)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if match(item, q) {
			out = append(out, item)
		}
	}
	return out
}

// TotalPages はceil(n / size)を返す。
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Paginate は1始まりのpageに該当する要素を返す。範囲外の場合は空を返す。
func Paginate[T any](items []T, page, size int) []T {
	if page < 1 || size <= 0 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := min(start+size, len(items))
	return items[start:end]
}

func containsFold(s, q string) bool {
	return strings.Contains(strings.ToLower(s), q)
}

func idContains(id int, q string) bool {
	return strings.Contains(strconv.Itoa(id), q)
}
