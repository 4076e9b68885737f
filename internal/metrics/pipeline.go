package metrics

import (
	"context"
	"time"

	"stembed/internal/command"
	"stembed/internal/dictionary"
	"stembed/internal/stroke"
	"stembed/internal/translator"
)

// Pipeline holds the translation metrics.
type Pipeline struct {
	Strokes    *Counter
	Undos      *Counter
	Backspaces *Counter
	Characters *Counter

	LookupHits     *Counter
	LookupMisses   *Counter
	LookupDuration *Histogram

	last translator.Stats
}

// NewPipeline registers the translation metrics in r.
func NewPipeline(r *Registry) *Pipeline {
	lookups := func(result string) *Counter {
		return r.Counter("dictionary_lookups_total", "Dictionary lookups by result.", Labels{"result": result})
	}
	return &Pipeline{
		Strokes:        r.Counter("strokes_total", "Strokes translated.", nil),
		Undos:          r.Counter("undos_total", "Strokes that erased earlier output.", nil),
		Backspaces:     r.Counter("backspaces_total", "Characters erased.", nil),
		Characters:     r.Counter("characters_total", "Characters written.", nil),
		LookupHits:     lookups("hit"),
		LookupMisses:   lookups("miss"),
		LookupDuration: r.Histogram("dictionary_lookup_duration_seconds", "Time spent in dictionary lookups.", nil, nil),
	}
}

// RecordStats adds the growth of a translator's counters since the previous
// call.
func (p *Pipeline) RecordStats(s translator.Stats) {
	p.Strokes.Add(s.Strokes - p.last.Strokes)
	p.Undos.Add(s.Undos - p.last.Undos)
	p.Backspaces.Add(s.Backspaces - p.last.Backspaces)
	p.Characters.Add(s.Characters - p.last.Characters)
	p.last = s
}

// Instrumented is a dictionary decorator that times lookups.
type Instrumented[O any] struct {
	dictionary.Dictionary[O]
	p *Pipeline
}

// Instrument wraps d so its lookups are recorded in p.
func Instrument[O any](d dictionary.Dictionary[O], p *Pipeline) *Instrumented[O] {
	return &Instrumented[O]{Dictionary: d, p: p}
}

// Lookup implements dictionary.Dictionary.
func (d *Instrumented[O]) Lookup(ctx context.Context, outline stroke.Outline) (command.List[O], bool) {
	start := time.Now()
	list, ok := d.Dictionary.Lookup(ctx, outline)
	d.p.LookupDuration.ObserveDuration(time.Since(start))
	if ok {
		d.p.LookupHits.Inc()
	} else {
		d.p.LookupMisses.Inc()
	}
	return list, ok
}
