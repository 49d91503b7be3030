// Package indexcheck measures how long a remote indexed store takes to make
// freshly written records visible to queries.
//
// A run writes a known set of records into a collection that is unique to
// the run, polls the collection's query endpoint until every written record
// is returned, and then deletes everything matching the run's marker.
//
// # Basic Usage
//
//	cfg := indexcheck.DefaultConfig()
//	cfg.BaseURL = "https://api.usergrid.example.com"
//	cfg.Org = "my-org"
//	cfg.App = "sandbox"
//
//	runner, err := indexcheck.New(cfg, indexcheck.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rep, err := runner.Run(ctx)
//	fmt.Println(rep.Convergence.Elapsed)
//
// # Stages
//
// Run executes, strictly in order: the optional client_credentials token
// request, the bulk write, the convergence poll and the purge. Canceling
// ctx abandons the stage in progress (records already created are not
// rolled back) and skips the purge; Run then returns an error wrapping
// [domain.ErrInterrupted].
//
// A convergence budget that runs out still purges the written records and
// returns an error wrapping [domain.ErrConvergenceTimeout]. Purge failures
// are reported in the returned Report and logged, never returned as errors.
//
// # Event Handling
//
// Register an [EventHandler] with [WithEventHandler] to observe stage
// changes, individual writes and polls. OnWrite is called from the bulk
// writer's goroutines.
package indexcheck
