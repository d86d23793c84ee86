package picker

import (
	"time"

	"github.com/banshee-data/onset.picker/internal/query"
)

// GenericPick is the hand-off format for downstream catalogues. Only the
// onset time and tag are filled; the remaining fields are reserved.
type GenericPick struct {
	OnsetTime time.Time  `json:"onset_time"`
	Tag       string     `json:"tag"`
	Polarity  *string    `json:"polarity"`
	Onset     *string    `json:"onset"`
	Weight    *float64   `json:"weight"`
	Class     *int       `json:"class"`
	Early     *time.Time `json:"early"`
	Late      *time.Time `json:"late"`
}

// Pick projects the earliest accepted pick by src. It reports false when
// the run accepted nothing with a time for src.
func (c *Controller) Pick(src query.Source) (GenericPick, bool) {
	item, ok := c.Query().First(src)
	if !ok {
		return GenericPick{}, false
	}
	return GenericPick{OnsetTime: item.Time, Tag: item.Tag}, true
}
