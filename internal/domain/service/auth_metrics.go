package service

// Login outcomes recorded by AuthMetrics.
const (
	LoginOutcomeSuccess       = "success"
	LoginOutcomeInvalid       = "invalid_credentials"
	LoginOutcomeNotVerified   = "not_verified"
	LoginOutcomeBanned        = "banned"
	LoginOutcomeInternalError = "error"
)

// AuthMetrics records authentication counters.
type AuthMetrics interface {
	ObserveLogin(method, outcome string)
	ObserveRefresh(success bool)
	ObserveRegistration()
	ObserveLegacyHashVerified()
}
