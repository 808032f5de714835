package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
)

func TestSMTPMailerBuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	m := NewSMTPMailer("mail.example.com", 587, "user", "pw", "noreply@x.com", nil)
	m.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	if err := m.Send(context.Background(), "a@x.com", "Hello", "body text"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAddr != "mail.example.com:587" || gotFrom != "noreply@x.com" {
		t.Fatalf("addr=%q from=%q", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "a@x.com" {
		t.Fatalf("to = %v", gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Hello\r\n") || !strings.HasSuffix(msg, "body text") {
		t.Fatalf("message = %q", msg)
	}
}

func TestSMTPMailerSurfacesFailure(t *testing.T) {
	m := NewSMTPMailer("mail.example.com", 587, "", "", "noreply@x.com", nil)
	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("relay refused")
	}

	if err := m.Send(context.Background(), "a@x.com", "s", "b"); err == nil {
		t.Fatal("expected error from refused relay")
	}
}

func TestMSG91SenderPostsPayload(t *testing.T) {
	var got msg91Request
	var gotAuthKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthKey = r.Header.Get("authkey")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewMSG91Sender("key-1", "91", nil)
	s.baseURL = srv.URL

	if err := s.Send(context.Background(), "9876543210", "Your OTP is: 123456"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAuthKey != "key-1" || got.Country != "91" {
		t.Fatalf("authkey=%q country=%q", gotAuthKey, got.Country)
	}
	if len(got.SMS) != 1 || got.SMS[0].To[0] != "9876543210" {
		t.Fatalf("sms = %+v", got.SMS)
	}
}

func TestMSG91SenderRejectsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	s := NewMSG91Sender("key", "91", nil)
	s.baseURL = srv.URL

	if err := s.Send(context.Background(), "9876543210", "hi"); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}
