// Package httpserver provides a small REST gateway over a stateflo runtime:
// health, the store catalog, point reads and writes on partition state,
// changelog listing with CEL filters and an SSE changelog tail.
//
// Example:
//
//	rt, _ := runtime.Open(opts)
//	s := httpserver.New(rt, logger, nil)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
