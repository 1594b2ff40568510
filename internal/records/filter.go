package records

import (
	"fmt"
	"strings"
)

// Filter is the closed set of supported list predicates. Text fields match
// case-insensitive substrings; Format and Category match exactly. Query is a
// free-text group ORed over artist/album/category and ANDed with the rest.
type Filter struct {
	Query    string
	Artist   string
	Album    string
	Format   Format
	Category Category
}

// CacheKey serializes the filter and page window into a stable cache key.
func (f Filter) CacheKey(p Page) string {
	return fmt.Sprintf("records|q=%s|artist=%s|album=%s|format=%s|category=%s|skip=%d|limit=%d",
		f.Query, f.Artist, f.Album, f.Format, f.Category, p.Skip, p.Limit)
}

// likeEscaper neutralizes LIKE metacharacters so filter text matches
// literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (f Filter) whereClause() (string, []any) {
	var conds []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Query != "" {
		p := next(likePattern(f.Query))
		conds = append(conds, fmt.Sprintf("(artist ILIKE %[1]s OR album ILIKE %[1]s OR category ILIKE %[1]s)", p))
	}
	if f.Artist != "" {
		conds = append(conds, "artist ILIKE "+next(likePattern(f.Artist)))
	}
	if f.Album != "" {
		conds = append(conds, "album ILIKE "+next(likePattern(f.Album)))
	}
	if f.Format != "" {
		conds = append(conds, "format = "+next(string(f.Format)))
	}
	if f.Category != "" {
		conds = append(conds, "category = "+next(string(f.Category)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
