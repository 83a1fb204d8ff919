package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/ohler55/ojg/oj"

	"github.com/pitwall/strategy-engine-go/log"
	"github.com/pitwall/strategy-engine-go/pkg/model"
	"github.com/pitwall/strategy-engine-go/pkg/processing/history"
	"github.com/pitwall/strategy-engine-go/pkg/utils"
)

// NATS subjects. Telemetry arrives as one JSON TelemetrySample per
// message on telemetry.<sessionKey>; each processed sample produces a
// recommendation on strategy.<sessionKey>.
const (
	TelemetrySubjectPrefix = "telemetry."
	StrategySubjectPrefix  = "strategy."
)

type (
	// NatsIngest feeds the session processors from the telemetry
	// subjects and publishes fresh recommendations.
	NatsIngest struct {
		conn   *nats.Conn
		lookup *utils.SessionLookup
		sub    *nats.Subscription
		l      *log.Logger
	}
	Option func(*NatsIngest)
)

func WithLogger(l *log.Logger) Option {
	return func(n *NatsIngest) {
		n.l = l
	}
}

// Connect establishes the NATS connection with exponential backoff.
func Connect(url string, timeout time.Duration) (*nats.Conn, error) {
	var conn *nats.Conn
	op := func() error {
		var err error
		conn, err = nats.Connect(url,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = timeout
	if err := backoff.Retry(op, bo); err != nil {
		return nil, fmt.Errorf("could not connect to nats at %s: %w", url, err)
	}
	return conn, nil
}

func NewNatsIngest(conn *nats.Conn, lookup *utils.SessionLookup, opts ...Option) (
	*NatsIngest, error,
) {
	ret := &NatsIngest{
		conn:   conn,
		lookup: lookup,
		l:      log.Default().Named("ingest"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	var err error
	if ret.sub, err = conn.Subscribe(TelemetrySubjectPrefix+"*",
		func(msg *nats.Msg) { ret.handleTelemetry(msg) },
	); err != nil {
		return nil, err
	}
	return ret, nil
}

func (n *NatsIngest) Close() {
	if n.sub != nil {
		//nolint:errcheck // by design
		n.sub.Unsubscribe()
	}
}

func (n *NatsIngest) handleTelemetry(msg *nats.Msg) {
	key := strings.TrimPrefix(msg.Subject, TelemetrySubjectPrefix)
	spd, err := n.lookup.GetSession(key)
	if err != nil {
		n.l.Debug("telemetry for unknown session", log.String("key", key))
		return
	}
	var sample model.TelemetrySample
	if uErr := DecodeSample(msg.Data, &sample); uErr != nil {
		n.l.Error("error unmarshalling telemetry sample",
			log.String("key", key), log.ErrorField(uErr))
		return
	}
	if pErr := spd.Processor.ProcessSample(sample); pErr != nil {
		if errors.Is(pErr, history.ErrOutOfOrderSample) {
			n.l.Warn("rejected out-of-order sample",
				log.String("key", key),
				log.Int64("timestamp", sample.Timestamp),
				log.ErrorField(pErr))
		} else {
			n.l.Error("error processing sample",
				log.String("key", key), log.ErrorField(pErr))
		}
		return
	}
	spd.MarkData()
	n.publishRecommendation(key, spd)
}

func (n *NatsIngest) publishRecommendation(key string, spd *utils.SessionProcessingData) {
	rec := spd.Processor.Recommendation()
	spd.PublishRecommendation(rec)
	data, err := oj.Marshal(rec)
	if err != nil {
		n.l.Error("error marshalling recommendation",
			log.String("key", key), log.ErrorField(err))
		return
	}
	if pErr := n.conn.Publish(StrategySubjectPrefix+key, data); pErr != nil {
		n.l.Error("error publishing recommendation",
			log.String("key", key), log.ErrorField(pErr))
	}
}

// DecodeSample parses one JSON telemetry sample.
func DecodeSample(data []byte, sample *model.TelemetrySample) error {
	return oj.Unmarshal(data, sample)
}
