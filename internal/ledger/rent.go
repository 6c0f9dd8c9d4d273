package ledger

// Rent schedule defaults: every account pays for its data plus a fixed
// storage overhead, held for ExemptionYears.
const (
	AccountStorageOverhead     = 128
	DefaultLamportsPerByteYear = 3480
	DefaultExemptionYears      = 2
)

// Rent computes allocation deposits.
type Rent struct {
	LamportsPerByteYear uint64 `json:"lamports_per_byte_year" yaml:"lamports_per_byte_year"`
	ExemptionYears      uint64 `json:"exemption_years" yaml:"exemption_years"`
}

// DefaultRent returns the default rent schedule.
func DefaultRent() Rent {
	return Rent{
		LamportsPerByteYear: DefaultLamportsPerByteYear,
		ExemptionYears:      DefaultExemptionYears,
	}
}

// Deposit returns the lamports held by an account of the given data space.
func (r Rent) Deposit(space int) uint64 {
	return uint64(AccountStorageOverhead+space) * r.LamportsPerByteYear * r.ExemptionYears
}
