package resolver

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-journey/utils"
)

// Method tells how a stop was resolved.
type Method string

const (
	MethodNone     Method = ""
	MethodSelected Method = "selected"
	MethodExact    Method = "exact"
	MethodGeocoded Method = "geocoded"
)

// MessageAddressNotFound is reported when geocoding yields nothing.
const MessageAddressNotFound = "address not found"

// Input is either an option picked from a previous suggestion list or free
// text. Commit asks for address resolution when the text matches no stop
// exactly.
type Input struct {
	Selected *StopOption
	Text     string
	Commit   bool
}

// Resolution is the outcome of resolving one input.
type Resolution struct {
	StopID      string       `json:"stop_id,omitempty"`
	DisplayName string       `json:"display_name,omitempty"`
	Method      Method       `json:"method,omitempty"`
	Found       bool         `json:"found"`
	Suggestions []StopOption `json:"suggestions,omitempty"`
	// Geocoded is the point the address resolved to.
	Geocoded   *Point  `json:"geocoded,omitempty"`
	DistanceKM float64 `json:"distance_km,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// Config tunes a Resolver.
type Config struct {
	Geocoder       Geocoder
	Qualifier      string
	RegionalTokens []string
	Debounce       time.Duration
	// Timers drives the debouncer; nil uses the system clock.
	Timers utils.Timers
	Logger zerolog.Logger
}

// Resolver maps user input onto stops of the current index.
type Resolver struct {
	store     *gtfs.Store
	geocoder  Geocoder
	qualifier string
	tokens    []string
	debounce  time.Duration
	debouncer *Debouncer
	logger    zerolog.Logger

	options atomic.Pointer[optionSet]
}

// New creates a resolver reading stops from store.
func New(store *gtfs.Store, cfg Config) *Resolver {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	tokens := cfg.RegionalTokens
	if len(tokens) == 0 {
		tokens = RegionalTokens(cfg.Qualifier)
	}
	return &Resolver{
		store:     store,
		geocoder:  cfg.Geocoder,
		qualifier: cfg.Qualifier,
		tokens:    tokens,
		debounce:  cfg.Debounce,
		debouncer: NewDebouncer(cfg.Timers),
		logger:    cfg.Logger,
	}
}

// optionSet returns the options of the store's current index, rebuilding
// them after a catalog swap.
func (r *Resolver) optionSet() *optionSet {
	idx := r.store.Current()
	if set := r.options.Load(); set != nil && set.idx == idx {
		return set
	}
	set := newOptionSet(idx)
	r.options.Store(set)
	return set
}

// Options returns every stop option of the current index.
func (r *Resolver) Options() []StopOption { return r.optionSet().options }

// Suggest ranks stops whose search text contains every token of query.
func (r *Resolver) Suggest(query string) []StopOption { return r.optionSet().suggest(query) }

// Resolve resolves in.Selected directly, else in.Text by exact match, and
// when in.Commit is set falls back to geocoding and the nearest stop.
func (r *Resolver) Resolve(ctx context.Context, in Input) Resolution {
	if in.Selected != nil {
		return Resolution{
			StopID:      in.Selected.StopID,
			DisplayName: in.Selected.DisplayName,
			Method:      MethodSelected,
			Found:       true,
		}
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Resolution{}
	}

	set := r.optionSet()
	if o, ok := set.exactMatch(text); ok {
		return Resolution{StopID: o.StopID, DisplayName: o.DisplayName, Method: MethodExact, Found: true}
	}

	res := Resolution{Suggestions: set.suggest(text)}
	if !in.Commit {
		return res
	}
	return r.geocode(ctx, set.idx, text, res)
}

func (r *Resolver) geocode(ctx context.Context, idx *gtfs.Index, text string, res Resolution) Resolution {
	if r.geocoder == nil {
		res.Message = MessageAddressNotFound
		return res
	}
	query := QualifyQuery(text, r.qualifier, r.tokens)
	p, err := r.geocoder.Geocode(ctx, query)
	if err != nil {
		if !errors.Is(err, ErrNoGeocodeResult) {
			r.logger.Warn().Err(err).Str("query", query).Msg("geocode failed")
		}
		res.Message = MessageAddressNotFound
		return res
	}

	stop, km, ok := idx.Spatial().Nearest(p.Lat, p.Lon)
	if !ok {
		res.Message = MessageAddressNotFound
		return res
	}
	r.logger.Debug().Str("query", query).Str("stop", stop.ID).Float64("km", km).Msg("address snapped to stop")
	return Resolution{
		StopID:      stop.ID,
		DisplayName: DisplayName(stop),
		Method:      MethodGeocoded,
		Found:       true,
		Geocoded:    &p,
		DistanceKM:  km,
	}
}

// ResolveAsync is the typing path for an input field. Text that matches a
// stop exactly or yields suggestions is answered at once and nothing is
// geocoded; otherwise a geocode runs after the debounce period, replacing
// any lookup still pending for the field. onDone is not called for a
// superseded lookup.
func (r *Resolver) ResolveAsync(field, text string, onDone func(Resolution)) {
	res := r.Resolve(context.Background(), Input{Text: text})
	if res.Found || len(res.Suggestions) > 0 || strings.TrimSpace(text) == "" {
		r.debouncer.Cancel(field)
		onDone(res)
		return
	}
	r.debouncer.Schedule(field, r.debounce, func(ctx context.Context) {
		out := r.Resolve(ctx, Input{Text: text, Commit: true})
		if ctx.Err() != nil {
			return
		}
		onDone(out)
	})
}

// CancelPending drops any debounced lookup of field.
func (r *Resolver) CancelPending(field string) { r.debouncer.Cancel(field) }

// Close stops pending lookups.
func (r *Resolver) Close() { r.debouncer.Stop() }
