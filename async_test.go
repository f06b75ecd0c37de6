package sigform_test

import (
	"context"
	"testing"
	"time"

	"github.com/reoring/sigform"
)

type asyncCall struct {
	params  any
	release chan asyncReply
}

type asyncReply struct {
	result any
	err    error
}

// blockingLoader hands each load invocation to the test through a channel
// and blocks until the test replies or the load is cancelled.
func blockingLoader(calls chan asyncCall) func(context.Context, any) (any, error) {
	return func(ctx context.Context, params any) (any, error) {
		c := asyncCall{params: params, release: make(chan asyncReply, 1)}
		calls <- c
		select {
		case r := <-c.release:
			return r.result, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func waitForStatus(t *testing.T, f *sigform.FieldNode, want sigform.Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("field never reached status %v (stuck at %v)", want, f.Status())
}

func usernameForm(calls chan asyncCall, value string) *sigform.Form {
	schema := sigform.SchemaOf(func(p *sigform.FieldPath) {
		name := p.Child("username")
		sigform.Required(name)
		sigform.ValidateAsync(name, sigform.AsyncValidator{
			Load: blockingLoader(calls),
			OnSettled: func(result any, c *sigform.FieldContext) []sigform.FieldError {
				if result == "taken" {
					return []sigform.FieldError{sigform.CustomError("taken", "username is taken")}
				}
				return nil
			},
		})
	})
	return sigform.New(map[string]any{"username": value}, schema)
}

func TestAsyncLifecycle(t *testing.T) {
	calls := make(chan asyncCall, 4)
	form := usernameForm(calls, "ann")
	name := form.Root().Child("username")

	if got := name.Status(); got != sigform.StatusUnknown {
		t.Fatalf("status while loading = %v, want unknown", got)
	}
	if !name.Pending() {
		t.Fatalf("Pending() = false while load in flight")
	}

	call := <-calls
	if call.params != "ann" {
		t.Fatalf("loader params = %v, want ann", call.params)
	}
	call.release <- asyncReply{result: "taken"}

	waitForStatus(t, name, sigform.StatusInvalid)
	if !name.Errors().Has("taken") {
		t.Fatalf("want taken error, got %v", name.Errors())
	}
}

func TestAsyncResolvesValid(t *testing.T) {
	calls := make(chan asyncCall, 4)
	form := usernameForm(calls, "ann")
	name := form.Root().Child("username")

	name.Status() // start the load
	call := <-calls
	call.release <- asyncReply{result: "free"}
	waitForStatus(t, name, sigform.StatusValid)
}

// A parameter change supersedes the in-flight load; its late result must be
// discarded.
func TestAsyncStaleResultDiscarded(t *testing.T) {
	calls := make(chan asyncCall, 4)
	form := usernameForm(calls, "ann")
	name := form.Root().Child("username")

	name.Status()
	first := <-calls

	name.SetValue("bob")
	name.Status() // re-poll with the new params
	second := <-calls
	if second.params != "bob" {
		t.Fatalf("second load params = %v, want bob", second.params)
	}

	first.release <- asyncReply{result: "taken"} // stale, must be ignored
	second.release <- asyncReply{result: "free"}

	waitForStatus(t, name, sigform.StatusValid)
	if name.Errors().Has("taken") {
		t.Fatalf("stale result applied: %v", name.Errors())
	}
}

// Sync errors gate async validation: no load while the value fails the
// synchronous rules.
func TestAsyncGatedBySyncErrors(t *testing.T) {
	calls := make(chan asyncCall, 4)
	form := usernameForm(calls, "")
	name := form.Root().Child("username")

	if got := name.Status(); got != sigform.StatusInvalid {
		t.Fatalf("status = %v, want invalid from required", got)
	}
	select {
	case <-calls:
		t.Fatalf("loader ran despite sync errors")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAsyncLoadFailure(t *testing.T) {
	calls := make(chan asyncCall, 4)
	form := usernameForm(calls, "ann")
	name := form.Root().Child("username")

	name.Status()
	call := <-calls
	call.release <- asyncReply{err: context.DeadlineExceeded}

	waitForStatus(t, name, sigform.StatusInvalid)
	if !name.Errors().Has(sigform.KindAsync) {
		t.Fatalf("want async error from loader failure, got %v", name.Errors())
	}
}
