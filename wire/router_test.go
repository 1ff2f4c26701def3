package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRouterDispatchUnknownTask(t *testing.T) {
	r := NewRouter()
	resp := r.Dispatch(Request{Task: "nonsense"})

	require.Equal(t, "nonsense", resp.Task)
	require.Contains(t, resp.Error, "task not found")
}

func TestRouterDispatchSuccess(t *testing.T) {
	r := NewRouter()
	r.AddRoute("echo", func(data []byte) (any, error) {
		var s string
		if len(data) > 0 {
			_ = Request{Data: data}.Decode(&s)
		}
		return s, nil
	})

	req, err := NewRequest("echo", "hello")
	require.NoError(t, err)

	resp := r.Dispatch(req)
	require.Empty(t, resp.Error)

	var out string
	require.NoError(t, resp.Decode(&out))
	require.Equal(t, "hello", out)
}

func TestRouterDispatchHandlerError(t *testing.T) {
	r := NewRouter()
	r.AddRoute("boom", func(data []byte) (any, error) {
		return nil, errors.New("kaboom")
	})

	resp := r.Dispatch(Request{Task: "boom"})
	require.Equal(t, "kaboom", resp.Error)
}

func TestRouterDispatchHandlerPanic(t *testing.T) {
	r := NewRouter()
	r.AddRoute("panics", func(data []byte) (any, error) {
		panic("unexpected")
	})

	resp := r.Dispatch(Request{Task: "panics"})
	require.Contains(t, resp.Error, "handler panic")
}

func TestRouterAddRouteDuplicatePanics(t *testing.T) {
	r := NewRouter()
	r.AddRoute("dup", func(data []byte) (any, error) { return nil, nil })

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate route registration")
		}
	}()
	r.AddRoute("dup", func(data []byte) (any, error) { return nil, nil })
}
