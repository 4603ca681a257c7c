package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/go-json-experiment/json/jsontext"
	"go.uber.org/zap"
)

//go:embed shim.js
var shimJS string

// dispatchBinding is the single CDP binding every exposed function funnels
// through. The shim multiplexes by name and sequence.
const dispatchBinding = "__wbDispatch"

// Handler is a host function callable from the page. Arguments arrive as the
// raw JSON values the page passed; the returned value is serialised back.
type Handler func(ctx context.Context, args []json.RawMessage) (any, error)

// bindingCall is the payload the shim sends through the CDP binding.
type bindingCall struct {
	Name string            `json:"name"`
	Seq  int64             `json:"seq"`
	Args []json.RawMessage `json:"args"`
}

// shimScript renders the dispatch shim for the registered function names.
func shimScript(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return strings.Replace(shimJS, "__EXPOSED_NAMES__", "["+strings.Join(quoted, ", ")+"]", 1)
}

// onBindingCalled handles one binding event: decode, run the handler on its
// own goroutine, and deliver the outcome back into the originating execution
// context.
func (r *Runtime) onBindingCalled(ev *runtime.EventBindingCalled) {
	if ev.Name != dispatchBinding {
		return
	}
	var call bindingCall
	if err := json.Unmarshal([]byte(ev.Payload), &call); err != nil {
		r.log.Warn("malformed binding payload", zap.Error(err))
		return
	}

	handler, ok := r.handlers[call.Name]
	if !ok {
		go r.deliver(ev.ExecutionContextID, call.Seq, nil, fmt.Errorf("unknown function %s", call.Name))
		return
	}

	go func() {
		result, err := handler(r.ctx, call.Args)
		r.deliver(ev.ExecutionContextID, call.Seq, result, err)
	}()
}

// deliver resolves or rejects the page-side promise for one call. Errors cross
// the boundary as their message only.
func (r *Runtime) deliver(ectx runtime.ExecutionContextID, seq int64, result any, callErr error) {
	args := make([]*runtime.CallArgument, 3)
	seqJSON, _ := json.Marshal(seq)
	args[0] = &runtime.CallArgument{Value: jsontext.Value(seqJSON)}

	if callErr != nil {
		args[1] = &runtime.CallArgument{Value: jsontext.Value("false")}
		msgJSON, _ := json.Marshal(callErr.Error())
		args[2] = &runtime.CallArgument{Value: jsontext.Value(msgJSON)}
	} else {
		args[1] = &runtime.CallArgument{Value: jsontext.Value("true")}
		resultJSON, err := json.Marshal(result)
		if err != nil {
			resultJSON = []byte("null")
		}
		args[2] = &runtime.CallArgument{Value: jsontext.Value(resultJSON)}
	}

	err := chromedp.Run(r.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, exception, err := runtime.
			CallFunctionOn(`function (seq, ok, payload) { window.__wbDeliver(seq, ok, payload); }`).
			WithExecutionContextID(ectx).
			WithArguments(args).
			Do(ctx)
		if err != nil {
			return err
		}
		if exception != nil {
			return exception
		}
		return nil
	}))
	if err != nil {
		// The page or its execution context is gone; the pending promise
		// died with it.
		r.log.Debug("binding delivery dropped", zap.Int64("seq", seq), zap.Error(err))
	}
}
