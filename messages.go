package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	otpMailSubject         = "Your OTP for Verification"
	resetMailSubject       = "Password Reset OTP"
	resetConfirmedSubject  = "Password Reset Successful - Champions World"
	confirmationTimeLayout = "02 Jan 2006, 03:04 PM"
)

func otpMailBody(code string) string {
	return "Your OTP is: " + code + "\n\n" +
		"This OTP is valid for 5 minutes.\n" +
		"Do not share this OTP with anyone."
}

func otpSMSBody(code string) string {
	return "Your OTP is: " + code + ". It is valid for 5 minutes. Do not share it with anyone."
}

func resetMailBody(code string) string {
	return "Your OTP for password reset is: " + code +
		"\n\nThis OTP is valid for 15 minutes."
}

func resetConfirmedBody(email, role string, at time.Time) string {
	return fmt.Sprintf(
		"Hello,\n\n"+
			"Your %s account password has been reset successfully.\n\n"+
			"Reset Details:\n"+
			"- Email: %s\n"+
			"- Role: %s\n"+
			"- Date & Time: %s\n\n"+
			"If you did not perform this action, please contact support immediately.\n\n"+
			"Thank you,\n"+
			"Champions World Security Team",
		role, email, role, at.Format(confirmationTimeLayout),
	)
}

// sendOTPMail is the email-channel delivery hook handed to the OTP engine.
func (e *Engine) sendOTPMail(ctx context.Context, email, code string) error {
	return e.mailer.Send(ctx, email, otpMailSubject, otpMailBody(code))
}

// sendOTPSMS builds the phone-channel delivery hook. The SMS gateway is an
// optional collaborator; without one, phone OTP sends fail as delivery
// errors rather than panicking.
func (e *Engine) sendOTPSMS(sms SMSSender) func(ctx context.Context, mobile, code string) error {
	return func(ctx context.Context, mobile, code string) error {
		if sms == nil {
			return errors.New("sms gateway not configured")
		}
		return sms.Send(ctx, mobile, otpSMSBody(code))
	}
}
