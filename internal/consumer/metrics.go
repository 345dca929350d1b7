package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	notificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "The total number of in-app notifications created from outbox events",
	}, []string{"kind"})
	relayMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_relay_messages_total",
		Help: "The total number of outbox events relayed to Kafka by result",
	}, []string{"result"})
)
