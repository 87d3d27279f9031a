package domain

type MFAMethod string

const (
	MFAMethodPassword MFAMethod = "Password"
	MFAMethodTOTP     MFAMethod = "Totp"
	MFAMethodRecovery MFAMethod = "Recovery"
)

// MFAChallenge is handed to the prompter for every attempt of a ticket.
// LastErr is set when the previous response was rejected.
type MFAChallenge struct {
	Ticket         string
	AllowedMethods []MFAMethod
	Attempt        int
	LastErr        error
}

type MFAResponse struct {
	Password     string `json:"password,omitempty"`
	TOTPCode     string `json:"totp_code,omitempty"`
	RecoveryCode string `json:"recovery_code,omitempty"`
}

func (r MFAResponse) Method() MFAMethod {
	switch {
	case r.TOTPCode != "":
		return MFAMethodTOTP
	case r.RecoveryCode != "":
		return MFAMethodRecovery
	default:
		return MFAMethodPassword
	}
}
