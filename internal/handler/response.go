package handler

import (
	"net/http"

	"github.com/unilocator/pairing-server-go/internal/httputil"
	"github.com/unilocator/pairing-server-go/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

// connectStatusCode maps a connection outcome to its HTTP status.
func connectStatusCode(status service.ConnectStatus) int {
	switch status {
	case service.StatusConnected:
		return http.StatusCreated
	case service.StatusAlreadyConnected, service.StatusSelfConnect:
		return http.StatusConflict
	case service.StatusInvalidCode:
		return http.StatusBadRequest
	case service.StatusTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
