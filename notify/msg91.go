package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const msg91SendURL = "https://api.msg91.com/api/v2/sendsms"

// MSG91Sender delivers SMS through the MSG91 transactional route.
type MSG91Sender struct {
	authKey     string
	countryCode string
	client      *http.Client
	log         *zap.Logger
	baseURL     string
}

func NewMSG91Sender(authKey, countryCode string, log *zap.Logger) *MSG91Sender {
	if log == nil {
		log = zap.NewNop()
	}
	return &MSG91Sender{
		authKey:     authKey,
		countryCode: countryCode,
		client:      &http.Client{Timeout: 10 * time.Second},
		log:         log,
		baseURL:     msg91SendURL,
	}
}

type msg91Request struct {
	Sender  string `json:"sender"`
	Route   string `json:"route"`
	Country string `json:"country"`
	SMS     []struct {
		Message string   `json:"message"`
		To      []string `json:"to"`
	} `json:"sms"`
}

// Send posts one message to the gateway. Any non-2xx answer is a failure.
func (s *MSG91Sender) Send(ctx context.Context, mobile, body string) error {
	payload := msg91Request{
		Sender:  "CHMPWD",
		Route:   "4",
		Country: s.countryCode,
	}
	payload.SMS = append(payload.SMS, struct {
		Message string   `json:"message"`
		To      []string `json:"to"`
	}{Message: body, To: []string{mobile}})

	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authkey", s.authKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("sms gateway unreachable", zap.Error(err))
		return fmt.Errorf("msg91 send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Error("sms gateway rejected message",
			zap.Int("status", resp.StatusCode), zap.String("mobile", mobile))
		return fmt.Errorf("msg91 send: status %d", resp.StatusCode)
	}

	s.log.Debug("sms sent", zap.String("mobile", mobile))
	return nil
}
