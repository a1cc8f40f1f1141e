package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AssistantMetrics 问答指标，nil时所有方法为空操作
type AssistantMetrics struct {
	requests      *prometheus.CounterVec
	failures      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	emptyCorpus   prometheus.Counter
}

// NewAssistantMetrics 在reg上注册指标
func NewAssistantMetrics(reg prometheus.Registerer) *AssistantMetrics {
	factory := promauto.With(reg)
	return &AssistantMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_answers_total",
				Help: "Answers returned, by route taken",
			},
			[]string{"route"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_failures_total",
				Help: "Failed questions, by error code",
			},
			[]string{"code"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assistant_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		emptyCorpus: factory.NewCounter(prometheus.CounterOpts{
			Name: "assistant_empty_corpus_total",
			Help: "Questions that reached retrieval with an empty corpus",
		}),
	}
}

// RecordAnswer 记录一次成功回答
func (m *AssistantMetrics) RecordAnswer(route string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route).Inc()
}

// RecordFailure 记录一次失败
func (m *AssistantMetrics) RecordFailure(code string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(code).Inc()
}

// ObserveStage 记录阶段耗时
func (m *AssistantMetrics) ObserveStage(stage string, started time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// RecordEmptyCorpus 记录空语料告警
func (m *AssistantMetrics) RecordEmptyCorpus() {
	if m == nil {
		return
	}
	m.emptyCorpus.Inc()
}
