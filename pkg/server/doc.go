// Package server runs a module pipeline behind an HTTP server.
//
// The package has two halves. Module is an ordinary pipeline module that
// contributes the server's configuration slice (listen address, timeouts,
// header limits) and never touches requests. Server is the transport
// collaborator: it owns the http.Server lifecycle, invokes the pipeline's
// filter for every request, and turns the pipeline's outcomes into wire
// responses — 404 when no module handled the request, the carried status
// for a *module.RequestError, and 500 for anything else.
//
//	srvMod := server.NewModule()
//	pipe, _ := module.New(srvMod, ...)
//	// load config, apply flags, pipe.Startup(...)
//	srv := server.New(srvMod.Settings(), pipe, logger)
//	err := srv.Start(ctx)
package server
