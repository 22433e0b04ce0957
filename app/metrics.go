package app

import (
	"math"
	"strconv"

	"github.com/calehh/khrt-app/state"
	"github.com/calehh/khrt-app/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "khrt"

type appMetrics struct {
	height          prometheus.Gauge
	txResults       *prometheus.CounterVec
	totalSupply     prometheus.Gauge
	collateral      *prometheus.GaugeVec
	proposals       *prometheus.GaugeVec
	councilPower    prometheus.Gauge
	emergencyActive prometheus.Gauge
}

func newAppMetrics(reg prometheus.Registerer) *appMetrics {
	factory := promauto.With(reg)
	return &appMetrics{
		height: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "block_height",
			Help:      "last finalized block height",
		}),
		txResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tx_results_total",
			Help:      "finalized transactions by type and result code",
		}, []string{"type", "code"}),
		totalSupply: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "total_supply",
			Help:      "KHRT in circulation, in whole tokens",
		}),
		collateral: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "collateral_locked",
			Help:      "collateral held by the ledger, in whole asset units",
		}, []string{"asset"}),
		proposals: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "proposals",
			Help:      "council proposals by status",
		}, []string{"status"}),
		councilPower: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "council_voting_power",
			Help:      "total voting power of the active council",
		}),
		emergencyActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "emergency_active",
			Help:      "1 while registry emergency mode is on",
		}),
	}
}

func (m *appMetrics) observeTx(tp string, code uint32) {
	m.txResults.WithLabelValues(tp, strconv.FormatUint(uint64(code), 10)).Inc()
}

func scaled(v float64, decimals uint8) float64 {
	return v / math.Pow10(int(decimals))
}

// observeState refreshes the gauges from a finalized block's state.
func (m *appMetrics) observeState(st *state.State) {
	m.height.Set(float64(st.Header().Height))
	tk := st.Token()
	m.totalSupply.Set(scaled(tk.TotalSupply().Float64(), tk.Decimals()))
	for _, a := range st.Bank().Assets() {
		total := st.Collateral().TotalCollateral(a.Address)
		m.collateral.WithLabelValues(a.Symbol).Set(scaled(total.Float64(), a.Decimals))
	}
	counts := map[types.ProposalStatus]float64{
		types.ProposalStatusActive:    0,
		types.ProposalStatusDefeated:  0,
		types.ProposalStatusSucceeded: 0,
		types.ProposalStatusExecuted:  0,
	}
	st.Council().IterateProposals(func(p *state.Proposal) bool {
		counts[p.Status]++
		return true
	})
	for s, n := range counts {
		m.proposals.WithLabelValues(s.String()).Set(n)
	}
	m.councilPower.Set(float64(st.Council().TotalVotingPower()))
	if st.Authority().EmergencyMode() {
		m.emergencyActive.Set(1)
	} else {
		m.emergencyActive.Set(0)
	}
}
