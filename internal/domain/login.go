package domain

type LoginResult string

const (
	LoginResultSuccess  LoginResult = "Success"
	LoginResultMFA      LoginResult = "MFA"
	LoginResultDisabled LoginResult = "Disabled"
)

// LoginData is either a password login or an MFA answer to a ticket.
type LoginData struct {
	Email        string
	Password     string
	MFATicket    string
	MFAResponse  *MFAResponse
	FriendlyName string
}

type LoginResponse struct {
	Result         LoginResult
	SessionID      string
	UserID         string
	Token          string
	Name           string
	Ticket         string
	AllowedMethods []MFAMethod
}

// ServerConfig is the capability descriptor served by the API root.
type ServerConfig struct {
	Version      string
	WebsocketURL string
	Features     map[string]bool
}

func (c ServerConfig) Feature(name string) bool {
	return c.Features[name]
}
