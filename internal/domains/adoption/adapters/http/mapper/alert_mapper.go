package mapper

import types "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application/types"

// Session is returned when a notification session opens.
type Session struct {
	SessionID string `json:"sessionId"`
}

// Alert is one feed entry streamed to a signed-in user.
type Alert struct {
	RequestID string `json:"requestId"`
	PetID     string `json:"petId"`
	PetName   string `json:"petName"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// FromAlert maps a feed entry.
func FromAlert(a types.Alert) Alert {
	return Alert{RequestID: a.RequestID, PetID: a.PetID, PetName: a.PetName, Kind: a.Kind, Message: a.Message}
}
