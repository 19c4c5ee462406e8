package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency   = metric.NewHistogram("1m1s")
	PacketsReceived   = metric.NewCounter("10s1s")
	PacketsSent       = metric.NewCounter("10s1s")
	PacketsDropped    = metric.NewCounter("10s1s")
	PacketsRejected   = metric.NewCounter("10s1s")
	SendFailures      = metric.NewCounter("10s1s")
	RouteImprovements = metric.NewCounter("1m1s")
	RelayedPackets    = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("dvr:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("dvr:RecvPacket/s", PacketsReceived)
	expvar.Publish("dvr:SentPacket/s", PacketsSent)
	expvar.Publish("dvr:DroppedPacket/s", PacketsDropped)
	expvar.Publish("dvr:RejectedPacket/s", PacketsRejected)
	expvar.Publish("dvr:SendFailure/s", SendFailures)
	expvar.Publish("dvr:RouteImproved/m", RouteImprovements)
	expvar.Publish("dvr:RelayedPacket/s", RelayedPackets)
}
