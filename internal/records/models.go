package records

import "time"

type Format string

const (
	FormatVinyl    Format = "Vinyl"
	FormatCD       Format = "CD"
	FormatCassette Format = "Cassette"
	FormatDigital  Format = "Digital"
)

func (f Format) Valid() bool {
	switch f {
	case FormatVinyl, FormatCD, FormatCassette, FormatDigital:
		return true
	}
	return false
}

type Category string

const (
	CategoryRock        Category = "Rock"
	CategoryPop         Category = "Pop"
	CategoryJazz        Category = "Jazz"
	CategoryIndie       Category = "Indie"
	CategoryAlternative Category = "Alternative"
	CategoryClassical   Category = "Classical"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryRock, CategoryPop, CategoryJazz, CategoryIndie, CategoryAlternative, CategoryClassical:
		return true
	}
	return false
}

type Track struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Duration int    `json:"duration"` // milliseconds
}

type Record struct {
	ID          string    `json:"id"`
	Artist      string    `json:"artist"`
	Album       string    `json:"album"`
	Price       float64   `json:"price"`
	Qty         int       `json:"qty"`
	Format      Format    `json:"format"`
	Category    Category  `json:"category"`
	MBID        string    `json:"mbid,omitempty"`
	TrackList   []Track   `json:"trackList,omitempty"`
	ReleaseYear int       `json:"releaseYear,omitempty"`
	Country     string    `json:"country,omitempty"`
	CreatedAt   time.Time `json:"created"`
	UpdatedAt   time.Time `json:"lastModified"`
}

// Page is the skip/limit window applied to list queries.
type Page struct {
	Skip  int
	Limit int
}

type PageResult struct {
	Items []Record `json:"items"`
	Total int      `json:"total"`
}
