package browser

import (
	"encoding/json"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shimHarness = `
var dispatched = [];
var window = {
  __wbDispatch: function (payload) { dispatched.push(payload); },
};
`

func newShimVM(t *testing.T, names ...string) *goja.Runtime {
	t.Helper()
	vm := goja.New()
	_, err := vm.RunString(shimHarness)
	require.NoError(t, err)
	_, err = vm.RunString(shimScript(names))
	require.NoError(t, err)
	return vm
}

func TestShimScript(t *testing.T) {
	t.Run("renders the exposed names", func(t *testing.T) {
		s := shimScript([]string{"__rpcProxy", "__submitCapture"})
		assert.Contains(t, s, `["__rpcProxy", "__submitCapture"]`)
		assert.NotContains(t, s, "__EXPOSED_NAMES__")
	})

	t.Run("exposed calls serialise name, seq, and args", func(t *testing.T) {
		vm := newShimVM(t, "__rpcProxy")
		_, err := vm.RunString(`window.__rpcProxy('eth_chainId', [1, 'a'])`)
		require.NoError(t, err)

		v, err := vm.RunString(`dispatched[0]`)
		require.NoError(t, err)

		var call bindingCall
		require.NoError(t, json.Unmarshal([]byte(v.String()), &call))
		assert.Equal(t, "__rpcProxy", call.Name)
		assert.Equal(t, int64(1), call.Seq)
		require.Len(t, call.Args, 2)
		assert.Equal(t, `"eth_chainId"`, string(call.Args[0]))
		assert.Equal(t, `[1,"a"]`, string(call.Args[1]))
	})

	t.Run("sequence numbers distinguish concurrent calls", func(t *testing.T) {
		vm := newShimVM(t, "__rpcProxy")
		_, err := vm.RunString(`
			var results = {};
			window.__rpcProxy('a').then(function (r) { results.a = r; });
			window.__rpcProxy('b').then(function (r) { results.b = r; });
			// Deliver out of order.
			window.__wbDeliver(2, true, 'second');
			window.__wbDeliver(1, true, 'first');
		`)
		require.NoError(t, err)

		v, err := vm.RunString(`results.a + '/' + results.b`)
		require.NoError(t, err)
		assert.Equal(t, "first/second", v.String())
	})

	t.Run("deliver rejects with an Error carrying the message", func(t *testing.T) {
		vm := newShimVM(t, "__rpcProxy")
		_, err := vm.RunString(`
			var failure;
			window.__rpcProxy('x').catch(function (e) { failure = e.message; });
			window.__wbDeliver(1, false, 'upstream rpc failed: boom');
		`)
		require.NoError(t, err)

		v, err := vm.RunString(`failure`)
		require.NoError(t, err)
		assert.Equal(t, "upstream rpc failed: boom", v.String())
	})

	t.Run("deliver for an unknown seq is ignored", func(t *testing.T) {
		vm := newShimVM(t, "__rpcProxy")
		_, err := vm.RunString(`window.__wbDeliver(99, true, 'nobody')`)
		require.NoError(t, err)
	})

	t.Run("double installation keeps the first shim", func(t *testing.T) {
		vm := newShimVM(t, "__rpcProxy")
		first, err := vm.RunString(`window.__rpcProxy`)
		require.NoError(t, err)
		_, err = vm.RunString(shimScript([]string{"__rpcProxy"}))
		require.NoError(t, err)
		second, err := vm.RunString(`window.__rpcProxy`)
		require.NoError(t, err)
		assert.True(t, first.SameAs(second))
	})
}
