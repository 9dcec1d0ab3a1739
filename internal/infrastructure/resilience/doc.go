/*
Package resilience provides a circuit breaker for dependencies that may fail
repeatedly, such as an embedder-supplied random source.

# States

	Closed --[Failures in a row]-> Open --[Cooldown]-> Half-Open --[Probes successes]-> Closed
	                                                      |
	                                                  [failure]
	                                                      v
	                                                    Open

# Usage

	breaker := resilience.New("window.crypto", resilience.Settings{
		Failures: 3,
		Cooldown: 30 * time.Second,
	})

	if breaker.Ready() {
		err := breaker.Do(func() error {
			return source.Fill(p)
		})
	}
*/
package resilience
