package dispatch

import (
	"context"
	"fmt"
	"time"

	"siriinsert/internal/classify"
	"siriinsert/internal/collab"
	"siriinsert/internal/wire"
)

// DefaultTimeout is insert_timeout_ms's default from spec §6.
const DefaultTimeout = 15 * time.Second

// Outcome is what Dispatch produces once every pool has settled or the
// job has timed out (spec §4.5's input).
type Outcome struct {
	TotalPoints int
	Failures    []PoolFailure
}

// Dispatcher fans a classified batch out to its constituent pools: the
// local pool is written directly through Registry/Storage, every other
// pool's sub-batch is forwarded through Transport. Dispatch waits for
// every pool to settle or for the shared Timeout to expire, whichever
// comes first (spec §4.4).
type Dispatcher struct {
	LocalPoolID uint16
	Registry    collab.Registry
	Storage     collab.Storage
	Transport   collab.Transport
	Clock       collab.Clock
	Timeout     time.Duration
}

// New builds a Dispatcher. A zero timeout is replaced with DefaultTimeout.
func New(localPoolID uint16, registry collab.Registry, storage collab.Storage, transport collab.Transport, clock collab.Clock, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		LocalPoolID: localPoolID,
		Registry:    registry,
		Storage:     storage,
		Transport:   transport,
		Clock:       clock,
		Timeout:     timeout,
	}
}

// Dispatch drives result through FANOUT and returns once every pool has
// settled or the timeout fires. ctx cancellation shortens the wait the
// same way the timeout does.
func (d *Dispatcher) Dispatch(ctx context.Context, result *classify.Result) (*Outcome, error) {
	if len(result.Packers) == 0 {
		return &Outcome{TotalPoints: result.TotalPoints}, nil
	}

	poolIDs := make([]uint16, 0, len(result.Packers))
	for poolID := range result.Packers {
		poolIDs = append(poolIDs, poolID)
	}

	j := newJob(poolIDs, d.Clock.NowMs())

	fctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	for poolID, enc := range result.Packers {
		poolID, body := poolID, enc.Bytes()
		go d.fanoutOne(fctx, j, poolID, body)
	}

	select {
	case <-j.done:
	case <-fctx.Done():
		j.expireRemaining(d.Clock.NowMs())
	}

	j.mu.Lock()
	failures := append([]PoolFailure(nil), j.failures...)
	j.state = JobReleased
	j.mu.Unlock()

	return &Outcome{TotalPoints: result.TotalPoints, Failures: failures}, nil
}

func (d *Dispatcher) fanoutOne(ctx context.Context, j *job, poolID uint16, body []byte) {
	var err error
	if poolID == d.LocalPoolID {
		err = d.writeLocal(body)
	} else {
		err = d.Transport.Send(ctx, poolID, body)
	}
	j.settle(poolID, err)
}

// writeLocal decodes one pool's encoded sub-batch (produced by
// internal/classify) and applies every point through the registry and
// storage collaborators, entirely in-process (spec §4.4 local path).
func (d *Dispatcher) writeLocal(body []byte) error {
	dec := wire.NewDecoder(body)
	var v wire.Value

	tok, err := dec.Next(&v)
	if err != nil {
		return err
	}
	if tok != wire.TokenMapOpen {
		return fmt.Errorf("dispatch: local sub-batch must start with MAP_OPEN, got %v", tok)
	}

	for {
		tok, err = dec.Next(&v)
		if err != nil {
			return err
		}
		if tok == wire.TokenMapClose {
			return nil
		}
		if tok != wire.TokenRawTerm && tok != wire.TokenRaw {
			return fmt.Errorf("dispatch: expected series name, got %v", tok)
		}
		name := append([]byte(nil), v.Raw...)

		if err := d.writeLocalSeries(dec, name); err != nil {
			return err
		}
	}
}

func (d *Dispatcher) writeLocalSeries(dec *wire.Decoder, name []byte) error {
	var v wire.Value

	tok, err := dec.Next(&v)
	if err != nil {
		return err
	}
	if tok != wire.TokenArrayOpen {
		return fmt.Errorf("dispatch: expected ARRAY_OPEN for points, got %v", tok)
	}

	var handle collab.SeriesHandle
	haveHandle := false

	for {
		tok, err = dec.Next(&v)
		if err != nil {
			return err
		}
		if tok == wire.TokenArrayClose {
			return nil
		}
		if tok != wire.TokenArray2 {
			return fmt.Errorf("dispatch: expected ARRAY2 point, got %v", tok)
		}

		tsTok, err := dec.Next(&v)
		if err != nil {
			return err
		}
		if tsTok != wire.TokenInt64 {
			return fmt.Errorf("dispatch: expected INT64 timestamp, got %v", tsTok)
		}
		ts := v.Int64

		valTok, err := dec.Next(&v)
		if err != nil {
			return err
		}

		var value any
		var inferred collab.ValueType
		switch valTok {
		case wire.TokenInt64:
			value, inferred = v.Int64, collab.ValueTypeInteger
		case wire.TokenDouble:
			value, inferred = v.Double, collab.ValueTypeFloat
		case wire.TokenRaw, wire.TokenRawTerm:
			value, inferred = string(v.Raw), collab.ValueTypeString
		default:
			return fmt.Errorf("dispatch: unsupported local value token %v", valTok)
		}

		if !haveHandle {
			handle, err = d.Registry.GetOrCreate(name, inferred)
			if err != nil {
				return err
			}
			haveHandle = true
		}
		if err := d.Storage.Append(handle, ts, value); err != nil {
			return err
		}
	}
}
