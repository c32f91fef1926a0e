// Package shellbridge provides an asynchronous, typed-envelope bridge to a
// single-session SQL shell engine hosted on its own worker goroutine.
//
// The control side never calls into the engine directly: it sends one
// shellExec request at a time over a bidirectional envelope channel and
// receives the engine's multiplexed output back as typed envelopes
// (stdout, stderr, load-progress status, and the working start/end bracket
// around each command). The worker core serializes all engine access,
// rejects concurrent requests instead of queuing them, and reports fatal
// engine termination so no further work is ever sent into a dead engine.
//
// # Basic Usage
//
// For a one-shot command against a fresh in-memory engine, use Exec:
//
//	ctx := context.Background()
//	res, err := shellbridge.Exec(ctx, "SELECT 1;")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, lines := range res.Stdout {
//	    for _, line := range lines {
//	        fmt.Println(line)
//	    }
//	}
//
// For an interactive session, build a Bridge and run commands through it:
//
//	bridge := shellbridge.New(
//	    shellbridge.WithDatabase("fiddle.db"),
//	    shellbridge.WithStdoutHandler(func(lines []string) {
//	        for _, line := range lines {
//	            fmt.Println(line)
//	        }
//	    }),
//	)
//	defer bridge.Close()
//
//	if err := bridge.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := bridge.WaitReady(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	if _, err := bridge.Run(ctx, "CREATE TABLE t (id INTEGER);"); err != nil {
//	    log.Fatal(err)
//	}
//
// By default, logging is disabled. Use WithLogger to enable it.
package shellbridge
