package explore

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-explore/internal/filter"
	"github.com/joeblew999/plat-explore/internal/qsstate"
)

// URL query keys.
const (
	KeyArea         = "areaId"
	KeyResource     = "resourceId"
	KeyMaxZoneScore = "maxZoneScore"
)

// DefaultMaxZoneScore is the score range before any user input.
var DefaultMaxZoneScore = filter.Range{Min: 0, Max: 1}

var errBadRange = errors.New("expected min,max")

// NewCodec returns the codec for the explore URL fields.
func NewCodec() *qsstate.Codec {
	return qsstate.New(
		qsstate.String(KeyArea, ""),
		qsstate.String(KeyResource, ""),
		qsstate.Field{
			Key:       KeyMaxZoneScore,
			Default:   DefaultMaxZoneScore,
			Hydrate:   parseRange,
			Dehydrate: formatRange,
		},
	)
}

func parseRange(s string) (any, error) {
	lo, hi, ok := strings.Cut(s, ",")
	if !ok {
		return nil, errBadRange
	}
	min, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return nil, err
	}
	max, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil, errBadRange
	}
	return filter.Range{Min: min, Max: max}.Normalize(), nil
}

func formatRange(v any) string {
	r, ok := v.(filter.Range)
	if !ok {
		return ""
	}
	return filter.FormatNumber(r.Min) + "," + filter.FormatNumber(r.Max)
}

// History receives every encoded query as a new navigable entry.
type History interface {
	Push(query string)
}

// HistoryFunc adapts a function to History.
type HistoryFunc func(query string)

// Push calls f.
func (f HistoryFunc) Push(query string) { f(query) }

type nopHistory struct{}

func (nopHistory) Push(string) {}
