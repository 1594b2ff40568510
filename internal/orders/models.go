package orders

import (
	"fmt"
	"time"

	"github.com/recordly/record-store/internal/records"
)

type Order struct {
	ID        string    `json:"id"`
	RecordID  string    `json:"recordId"`
	Quantity  int       `json:"quantity"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"lastModified"`
}

// Filter supports exact status matching; empty means any.
type Filter struct {
	Status Status
}

func (f Filter) CacheKey(p records.Page) string {
	return fmt.Sprintf("orders|status=%s|skip=%d|limit=%d", f.Status, p.Skip, p.Limit)
}

type PageResult struct {
	Items []Order `json:"items"`
	Total int     `json:"total"`
}
