package generator

// Config drives the synthetic transaction batch generator.
type Config struct {
	// NumAccounts is the size of the innocent background population that
	// transacts with each other in ordinary, non-suspicious pairs.
	NumAccounts int
	// BackgroundTransactions is the number of ordinary peer-to-peer
	// transactions layered in among the background accounts.
	BackgroundTransactions int

	// NumCycles is how many cycle rings (3-5 hop closed loops) to plant.
	NumCycles int
	// NumSmurfHubs is how many smurfing hubs (fan-out to >=10 counterparties
	// within a 72h window) to plant.
	NumSmurfHubs int
	// NumShellChains is how many layered pass-through chains (3-8 vertices,
	// i.e. 2-7 hops) to plant.
	NumShellChains int

	Seed int64
}

// DefaultConfig returns a modestly sized batch with a handful of each
// pattern planted among a larger innocent population.
func DefaultConfig() Config {
	return Config{
		NumAccounts:            500,
		BackgroundTransactions: 2000,
		NumCycles:              8,
		NumSmurfHubs:           5,
		NumShellChains:         6,
		Seed:                   42,
	}
}
