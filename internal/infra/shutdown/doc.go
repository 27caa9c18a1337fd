// Package shutdown coordinates graceful termination of the daemon.
//
// A Handler owns a context that is cancelled on SIGINT, SIGTERM or an
// explicit Trigger. Long-running components (the control loop, the HTTP
// server, device backends) run under that context and register cleanup
// hooks, which run in reverse registration order under a shared timeout.
//
// Usage:
//
//	h := shutdown.NewHandler(10*time.Second, log)
//	go guardian.Run(h.Context())
//	h.OnShutdown("http", srv.Shutdown)
//	err := h.Wait()
package shutdown
