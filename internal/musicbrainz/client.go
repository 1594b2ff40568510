package musicbrainz

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/recordly/record-store/internal/records"
	"github.com/recordly/record-store/internal/redisx"
)

// Client fetches release metadata from the MusicBrainz XML web service.
// Successful lookups are cached in redis; cache failures fall through to the
// network.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	RDB     *redis.Client // optional
	Log     *zap.Logger
}

func New(baseURL string, rdb *redis.Client, log *zap.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		RDB:     rdb,
		Log:     log,
	}
}

func (c *Client) Lookup(ctx context.Context, mbid string) (*records.ReleaseInfo, error) {
	key := fmt.Sprintf(redisx.KeyMBIDLookup, mbid)
	if c.RDB != nil {
		if b, err := c.RDB.Get(ctx, key).Bytes(); err == nil {
			var rel records.ReleaseInfo
			if json.Unmarshal(b, &rel) == nil {
				return &rel, nil
			}
		}
	}

	rel, err := c.fetch(ctx, mbid)
	if err != nil {
		return nil, err
	}

	if c.RDB != nil {
		if b, err := json.Marshal(rel); err == nil {
			if err := c.RDB.Set(ctx, key, b, redisx.TTLMBIDLookup).Err(); err != nil {
				c.Log.Debug("mbid cache set failed", zap.String("mbid", mbid), zap.Error(err))
			}
		}
	}
	return rel, nil
}

func (c *Client) fetch(ctx context.Context, mbid string) (*records.ReleaseInfo, error) {
	url := fmt.Sprintf("%s/ws/2/release/%s?inc=recordings&fmt=xml", c.BaseURL, mbid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("musicbrainz: release %s: status %d", mbid, resp.StatusCode)
	}

	var meta mbMetadata
	if err := xml.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("musicbrainz: decode release %s: %w", mbid, err)
	}
	return releaseInfo(&meta)
}

type mbMetadata struct {
	XMLName xml.Name  `xml:"metadata"`
	Release mbRelease `xml:"release"`
}

type mbRelease struct {
	Title   string     `xml:"title"`
	Date    string     `xml:"date"`
	Country string     `xml:"country"`
	Media   []mbMedium `xml:"medium-list>medium"`
}

type mbMedium struct {
	Tracks []mbTrack `xml:"track-list>track"`
}

type mbTrack struct {
	Position  int `xml:"position"`
	Length    int `xml:"length"`
	Recording struct {
		Title string `xml:"title"`
	} `xml:"recording"`
}

func releaseInfo(meta *mbMetadata) (*records.ReleaseInfo, error) {
	rel := meta.Release
	if rel.Title == "" && len(rel.Media) == 0 {
		return nil, errors.New("musicbrainz: empty release")
	}

	info := &records.ReleaseInfo{
		Album:   rel.Title,
		Country: rel.Country,
	}
	if len(rel.Date) >= 4 {
		if y, err := strconv.Atoi(rel.Date[:4]); err == nil {
			info.ReleaseYear = y
		}
	}
	if len(rel.Media) > 0 {
		for _, t := range rel.Media[0].Tracks {
			info.TrackList = append(info.TrackList, records.Track{
				Position: t.Position,
				Title:    t.Recording.Title,
				Duration: t.Length,
			})
		}
	}
	return info, nil
}
