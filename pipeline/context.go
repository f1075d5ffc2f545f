package pipeline

import (
	"fmt"
	"time"

	"idx_sync/config"
	"idx_sync/extract"
	"idx_sync/reference"
	"idx_sync/transform"
)

// LoadRunContext reads the reference extracts and the hashtag vocabulary and
// builds the read-only data every worker of a run shares.
func LoadRunContext(feed *config.FeedConfig, now time.Time) (*transform.RunContext, error) {
	ohRows, err := extract.ReadOpenHouses(feed.Path(feed.OpenHouses))
	if err != nil {
		return nil, fmt.Errorf("read open houses: %w", err)
	}
	vtRows, err := extract.ReadVirtualTours(feed.Path(feed.VirtualTours))
	if err != nil {
		return nil, fmt.Errorf("read virtual tours: %w", err)
	}
	vocabulary, err := transform.LoadVocabulary(feed.Path(feed.Hashtags))
	if err != nil {
		return nil, err
	}

	builder := &reference.Builder{
		Allow:     reference.NewAllowList(feed.VideoHosts),
		Now:       now,
		Lookahead: feed.Lookahead(),
		Location:  feed.Location(),
	}

	return &transform.RunContext{
		Now:           now,
		OpenHouses:    builder.OpenHouses(ohRows),
		Tours:         builder.VirtualTours(vtRows),
		Vocabulary:    vocabulary,
		PhotoTemplate: feed.PhotoURLTemplate,
		StyleCodes:    feed.StyleCodes,
	}, nil
}
