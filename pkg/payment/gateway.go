package payment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Gateway talks to the crypto payment provider. Implemented against a
// NOWPayments-style REST API: create a payment, then poll its status until
// the transfer is observed on-chain.
type Gateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGateway(baseURL, apiKey string) *Gateway {
	return &Gateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type CreatePaymentRequest struct {
	PaymentID     string `json:"order_id"`
	Amount        int64  `json:"price_amount"`
	PriceCurrency string `json:"price_currency"`
	PayCurrency   string `json:"pay_currency"`
	Description   string `json:"order_description"`
}

type CreatePaymentResponse struct {
	PayAddress string `json:"pay_address"`
	PayAmount  string `json:"pay_amount"`
	Status     string `json:"payment_status"`
}

type paymentStatusResponse struct {
	Status string `json:"payment_status"`
}

// CreatePayment registers the payment with the gateway and returns the
// deposit address the user must send funds to.
func (g *Gateway) CreatePayment(req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshaling payment request: %v", err)
	}

	httpReq, err := http.NewRequest("POST", g.baseURL+"/v1/payment", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	httpReq.Header.Set("x-api-key", g.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error calling payment gateway: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading gateway response: %v", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment gateway error: %s", string(respBody))
	}

	var created CreatePaymentResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("error decoding gateway response: %v", err)
	}

	log.Printf("Created gateway payment %s (address %s)", req.PaymentID, created.PayAddress)
	return &created, nil
}

// Confirm reports whether the gateway has observed the payment. A payment
// that is not yet visible is not an error, just not confirmed.
func (g *Gateway) Confirm(paymentID string) (bool, error) {
	httpReq, err := http.NewRequest("GET", g.baseURL+"/v1/payment/"+paymentID, nil)
	if err != nil {
		return false, fmt.Errorf("error creating request: %v", err)
	}
	httpReq.Header.Set("x-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("error calling payment gateway: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("error reading gateway response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("payment gateway error: %s", string(respBody))
	}

	var status paymentStatusResponse
	if err := json.Unmarshal(respBody, &status); err != nil {
		return false, fmt.Errorf("error decoding gateway response: %v", err)
	}

	switch status.Status {
	case "finished", "confirmed":
		return true, nil
	default:
		return false, nil
	}
}
