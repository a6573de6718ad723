// Package queue moves cart repricing off the request path with asynq.
package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

// TypeCartReprice is the asynq task type that reprices one cart.
const TypeCartReprice = "cart:reprice"

// DefaultQueue is the asynq queue reprice tasks are routed to.
const DefaultQueue = "offers"

// RepricePayload is the JSON body of a TypeCartReprice task.
type RepricePayload struct {
	CartID string `json:"cart_id"`
}

var errEmptyCartID = errors.New("queue: cart id is required")

func encodeReprice(cartID string) ([]byte, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, errEmptyCartID
	}
	return json.Marshal(RepricePayload{CartID: cartID})
}

func decodeReprice(raw []byte) (RepricePayload, error) {
	var p RepricePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return RepricePayload{}, err
	}
	if strings.TrimSpace(p.CartID) == "" {
		return RepricePayload{}, errEmptyCartID
	}
	return p, nil
}
