package sigform

import (
	"context"
	"errors"
	"reflect"

	"go.uber.org/zap"

	"github.com/reoring/sigform/signals"
)

type asyncStatus int

const (
	asyncIdle asyncStatus = iota
	asyncPending
	asyncResolved
	asyncFailed
)

// asyncParams is the derived loader input. ok=false means the load is
// suppressed: the field is skipped, has synchronous errors, or the
// validator's Params function opted out.
type asyncParams struct {
	value any
	ok    bool
}

// resource runs one async validator for one field. Parameters are derived
// reactively and compared deeply; only a genuinely new parameter value
// cancels the in-flight load and starts another. Completions arrive on a
// loader goroutine, take the form lock, and publish through the tick signal
// so dependent computations revalidate.
type resource struct {
	f  *FieldNode
	v  *AsyncValidator
	bl boundLogic

	params *signals.Computed[asyncParams]
	tick   *signals.Signal[int]

	seq         int
	launched    asyncParams
	hasLaunched bool
	cancel      context.CancelFunc

	state  asyncStatus
	result any
	err    error
}

func newResource(f *FieldNode, bl boundLogic, v *AsyncValidator) *resource {
	r := &resource{f: f, v: v, bl: bl, tick: signals.New(f.form.graph, 0)}
	r.params = signals.ComputeEq(f.form.graph, func() asyncParams {
		if f.skipped() {
			return asyncParams{}
		}
		if len(f.syncErrs.Get()) > 0 {
			return asyncParams{}
		}
		if !f.gatesPass(r.bl) {
			return asyncParams{}
		}
		if r.v.Params != nil {
			val, ok := r.v.Params(f.evalCtx(r.bl))
			if !ok {
				return asyncParams{}
			}
			return asyncParams{value: val, ok: true}
		}
		return asyncParams{value: f.structure.value(), ok: true}
	}, func(a, b asyncParams) bool { return reflect.DeepEqual(a, b) })
	return r
}

// poll reconciles the resource against its current parameters. It runs
// inside the field's async computation, so reading params and tick here is
// what subscribes the field's status and errors to the loader lifecycle.
func (r *resource) poll() {
	p := r.params.Get()
	r.tick.Get()
	if !p.ok {
		r.stop()
		if r.state != asyncIdle {
			r.state = asyncIdle
			r.result, r.err = nil, nil
		}
		r.hasLaunched = false
		return
	}
	if r.hasLaunched && reflect.DeepEqual(r.launched, p) {
		return
	}
	r.stop()
	r.launched = p
	r.hasLaunched = true
	r.seq++
	seq := r.seq
	ctx, cancel := context.WithCancel(r.f.form.ctx)
	r.cancel = cancel
	r.state = asyncPending
	r.result, r.err = nil, nil
	r.f.form.log.Debug("async validation started",
		zap.String("field", r.f.nameLocked()))
	go func() {
		res, err := r.v.Load(ctx, p.value)
		cancel()
		r.f.form.settle(r, seq, res, err)
	}()
}

// settle records a load outcome captured under the form lock. Results from
// superseded loads are discarded.
func (r *resource) settle(seq int, result any, err error) {
	if seq != r.seq || !r.hasLaunched {
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || r.f.form.ctx.Err() != nil {
			return
		}
		r.state = asyncFailed
		r.err = err
	} else {
		r.state = asyncResolved
		r.result = result
	}
	r.tick.Update(func(n int) int { return n + 1 })
}

// errors maps the settled state to validation errors. Must run after poll.
func (r *resource) errors() []FieldError {
	c := r.f.evalCtx(r.bl)
	switch r.state {
	case asyncResolved:
		if r.v.OnSettled == nil {
			return nil
		}
		return r.v.OnSettled(r.result, c)
	case asyncFailed:
		if r.v.OnError != nil {
			return r.v.OnError(r.err, c)
		}
		return []FieldError{{Kind: KindAsync, Message: r.err.Error()}}
	}
	return nil
}

func (r *resource) pending() bool { return r.state == asyncPending }

// stop cancels any in-flight load without clearing the settled state.
func (r *resource) stop() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.state == asyncPending {
		r.state = asyncIdle
	}
	r.seq++
}
