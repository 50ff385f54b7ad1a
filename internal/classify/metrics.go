package classify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

var (
	// classifiedTotal counts produced type objects by variant.
	classifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsexpand_classified_total",
		Help: "Type objects produced by variant",
	}, []string{"variant"})

	// unsupportedTotal counts classification gaps by reason.
	unsupportedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tsexpand_unsupported_total",
		Help: "Unsupported type objects by kind",
	}, []string{"kind"})

	unknownKeys = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tsexpand_unknown_store_keys_total",
		Help: "Property requests for store keys not held by the session",
	})
)

func (s *Session) count(t to.TypeObject) to.TypeObject {
	classifiedTotal.WithLabelValues(string(t.Variant())).Inc()
	if u, ok := t.(*to.Unsupported); ok {
		unsupportedTotal.WithLabelValues(string(u.Kind)).Inc()
	}
	return t
}
