package discover

import "github.com/ethdisc/ktable/metrics"

// Metric names registered by a Table. Names are stable across processes so
// a shared Registry can be scraped consistently.
const (
	metricProbesSent       = "discover.probes_sent"
	metricNodesInserted    = "discover.nodes_inserted"
	metricNodesReordered   = "discover.nodes_reordered"
	metricNodesRemoved     = "discover.nodes_removed"
	metricContestsWon      = "discover.contests_incumbent_won"
	metricContestsLost     = "discover.contests_challenger_won"
	metricPongsUnmatched   = "discover.pongs_unmatched"
	metricSendFailures     = "discover.send_failures"
	metricPendingProbes    = "discover.pending_probes"
)

// tableMetrics bundles the counters and gauges a Table updates. It is kept
// separate from Table itself so construction can be a single struct
// literal rather than a dozen inline registry lookups.
type tableMetrics struct {
	probesSent     *metrics.Counter
	nodesInserted  *metrics.Counter
	nodesReordered *metrics.Counter
	nodesRemoved   *metrics.Counter
	contestsWon    *metrics.Counter
	contestsLost   *metrics.Counter
	pongsUnmatched *metrics.Counter
	sendFailures   *metrics.Counter
	pendingProbes  *metrics.Gauge
}

func newTableMetrics(reg *metrics.Registry) tableMetrics {
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return tableMetrics{
		probesSent:     reg.Counter(metricProbesSent),
		nodesInserted:  reg.Counter(metricNodesInserted),
		nodesReordered: reg.Counter(metricNodesReordered),
		nodesRemoved:   reg.Counter(metricNodesRemoved),
		contestsWon:    reg.Counter(metricContestsWon),
		contestsLost:   reg.Counter(metricContestsLost),
		pongsUnmatched: reg.Counter(metricPongsUnmatched),
		sendFailures:   reg.Counter(metricSendFailures),
		pendingProbes:  reg.Gauge(metricPendingProbes),
	}
}
