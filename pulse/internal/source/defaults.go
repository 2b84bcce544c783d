package source

import "log/slog"

// NewDefaultRegistry wires every production adapter against the public
// upstream hosts, sharing one rate-limited client.
func NewDefaultRegistry(logger *slog.Logger) *Registry {
	client := NewClient()
	wb := NewWorldBank(client, "")
	return NewRegistry(
		NewCO2Emissions(client, logger, "", ""),
		NewMilitarySpending(wb),
		NewWorldPopulation(wb),
		NewBitcoinPrice(client, logger, "", "", ""),
		NewRenewableCapacity(client, ""),
	)
}
